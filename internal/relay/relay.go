package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/mcprelay/internal/config"
	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/logger"
	"github.com/harunnryd/mcprelay/internal/model"
	"github.com/harunnryd/mcprelay/internal/model/contract"
	"github.com/harunnryd/mcprelay/internal/tool"

	"github.com/sourcegraph/conc/iter"
)

var errorMapper relayErrors.ErrorMapper = relayErrors.NewDefaultErrorMapper()

// SessionState reports whether the tool provider can serve calls.
type SessionState interface {
	Ready() bool
}

type Deps struct {
	Session  SessionState
	Registry *tool.Registry
	Router   model.ModelRouter
	// Model defaults to config.DefaultModelDefault.
	Model string
	// Parallel invokes the tool calls of one response concurrently.
	Parallel bool
}

// Relay answers one user message with at most one tool round.
type Relay struct {
	session  SessionState
	registry *tool.Registry
	router   model.ModelRouter
	model    string
	parallel bool
}

// ToolOutcome is the per-call result of the tool round.
type ToolOutcome struct {
	Call   *contract.ToolCall
	Result tool.ToolResult
	Err    error
}

func New(deps Deps) *Relay {
	modelName := strings.TrimSpace(deps.Model)
	if modelName == "" {
		modelName = config.DefaultModelDefault
	}
	registry := deps.Registry
	if registry == nil {
		registry = tool.NewRegistry()
	}
	return &Relay{
		session:  deps.Session,
		registry: registry,
		router:   deps.Router,
		model:    modelName,
		parallel: deps.Parallel,
	}
}

// Chat runs the relay for a single message. Errors match
// ErrSessionUnavailable when the tool provider is not ready and
// ErrCompletion when either completion round fails.
func (r *Relay) Chat(ctx context.Context, message string) (string, error) {
	ctx, traceID := logger.EnsureTraceID(ctx)
	start := time.Now()

	if r.session == nil || !r.session.Ready() {
		slog.Warn("Chat rejected, tool provider not connected", "trace_id", traceID)
		return "", relayErrors.SessionUnavailable("tool provider not connected")
	}

	snapshot := r.registry.Snapshot()
	userMsg := contract.Message{Role: contract.RoleUser, Content: message}

	first, err := r.complete(ctx, contract.CompletionRequest{
		Messages:   []contract.Message{userMsg},
		Tools:      definitions(snapshot),
		ToolChoice: contract.ToolChoiceAuto,
	})
	if err != nil {
		slog.Error("First completion failed", "error", err, "category", errorMapper.Category(errorMapper.MapError(err)), "trace_id", traceID)
		return "", err
	}

	if !first.HasToolCalls() {
		slog.Info("Chat answered without tools", "duration", time.Since(start), "trace_id", traceID)
		return first.Content, nil
	}

	outcomes := r.invokeAll(ctx, tool.NewRunner(snapshot), first.ToolCalls)

	messages := []contract.Message{
		userMsg,
		{Role: contract.RoleAssistant, Content: first.Content, ToolCalls: first.ToolCalls},
	}
	succeeded := 0
	for _, o := range outcomes {
		if o.Err != nil {
			slog.Warn("Dropping failed tool call", "tool", o.Call.Name, "call_id", o.Call.ID, "error", o.Err, "category", errorMapper.Category(o.Err), "trace_id", traceID)
			continue
		}
		succeeded++
		messages = append(messages, contract.Message{
			Role:       contract.RoleTool,
			ToolCallID: o.Result.CallID,
			ToolName:   o.Result.Name,
			Content:    o.Result.Text(),
		})
	}

	// Tools stay declared so providers accept the tool history; ToolChoiceNone
	// keeps the follow-up to a single round.
	followup, err := r.complete(ctx, contract.CompletionRequest{
		Messages:   messages,
		Tools:      definitions(snapshot),
		ToolChoice: contract.ToolChoiceNone,
	})
	if err != nil {
		slog.Error("Follow-up completion failed", "error", err, "category", errorMapper.Category(errorMapper.MapError(err)), "trace_id", traceID)
		return "", err
	}
	if followup.HasToolCalls() {
		slog.Warn("Ignoring tool calls in follow-up completion", "count", len(followup.ToolCalls), "trace_id", traceID)
	}

	slog.Info("Chat answered", "tool_calls", len(outcomes), "tool_results", succeeded, "duration", time.Since(start), "trace_id", traceID)
	return followup.Content, nil
}

func (r *Relay) complete(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if r.router == nil {
		return nil, relayErrors.Completion(errors.New("no completion service configured"), "completion")
	}
	req.Model = r.model

	resp, err := r.router.Route(ctx, r.model, req)
	if err != nil {
		if errors.Is(err, relayErrors.ErrCompletion) {
			return nil, err
		}
		return nil, relayErrors.Completion(err, "completion")
	}
	if resp == nil {
		return nil, relayErrors.Completion(errors.New("empty response"), "completion")
	}
	return resp, nil
}

// invokeAll runs every call once and returns outcomes in call order.
func (r *Relay) invokeAll(ctx context.Context, runner *tool.Runner, calls []*contract.ToolCall) []ToolOutcome {
	valid := make([]*contract.ToolCall, 0, len(calls))
	for _, c := range calls {
		if c != nil {
			valid = append(valid, c)
		}
	}

	invoke := func(call **contract.ToolCall) ToolOutcome {
		result, err := runner.InvokeCall(ctx, *call)
		return ToolOutcome{Call: *call, Result: result, Err: err}
	}

	if r.parallel && len(valid) > 1 {
		return iter.Map(valid, invoke)
	}

	outcomes := make([]ToolOutcome, 0, len(valid))
	for i := range valid {
		outcomes = append(outcomes, invoke(&valid[i]))
	}
	return outcomes
}

func definitions(snapshot *tool.Snapshot) []contract.ToolDef {
	descriptors := snapshot.Descriptors()
	if len(descriptors) == 0 {
		return nil
	}
	defs := make([]contract.ToolDef, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, d.Definition())
	}
	return defs
}
