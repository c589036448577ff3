package tool

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/mcprelay/internal/logger"
	"github.com/harunnryd/mcprelay/internal/model/contract"
)

// Runner invokes tools from one registry snapshot.
type Runner struct {
	snapshot *Snapshot
}

func NewRunner(snapshot *Snapshot) *Runner {
	if snapshot == nil {
		snapshot = emptySnapshot
	}
	return &Runner{snapshot: snapshot}
}

// Invoke looks up name, decodes and validates arguments, then runs the handler.
// Failures are *UnknownToolError, *ArgumentDecodeError or *ToolExecutionError.
func (r *Runner) Invoke(ctx context.Context, name, arguments string) (ToolResult, error) {
	resolved := NormalizeToolName(name)
	entry, ok := r.snapshot.lookup(resolved)
	if !ok {
		return ToolResult{}, &UnknownToolError{Name: resolved}
	}

	args, err := DecodeArguments(arguments)
	if err != nil {
		return ToolResult{}, &ArgumentDecodeError{Tool: resolved, Err: err}
	}
	if err := ValidateInput(entry.schema, args); err != nil {
		slog.Warn("Tool input validation failed", "tool", resolved, "error", err, "trace_id", logger.GetTraceID(ctx))
		return ToolResult{}, &ArgumentDecodeError{Tool: resolved, Err: err}
	}

	start := time.Now()
	traceID := logger.GetTraceID(ctx)
	slog.Info("Executing tool", "tool", resolved, "source", entry.Descriptor.Metadata.Source, "trace_id", traceID)

	content, err := entry.Handler.Call(ctx, args)

	duration := time.Since(start)
	if err != nil {
		slog.Error("Tool execution failed", "tool", resolved, "error", err, "duration", duration, "trace_id", traceID)
		return ToolResult{}, &ToolExecutionError{Tool: resolved, Err: err}
	}

	slog.Info("Tool execution success", "tool", resolved, "duration", duration, "trace_id", traceID)
	return ToolResult{Name: resolved, Content: content}, nil
}

// InvokeCall runs a model tool call and tags the result with its call id.
func (r *Runner) InvokeCall(ctx context.Context, call *contract.ToolCall) (ToolResult, error) {
	result, err := r.Invoke(ctx, call.Name, call.Input)
	if err != nil {
		return ToolResult{}, err
	}
	result.CallID = call.ID
	return result, nil
}
