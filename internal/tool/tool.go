package tool

import (
	"context"
	"encoding/json"
	"strings"
)

// Handler executes one tool with already validated arguments.
// The returned content is passed to the model unvalidated.
type Handler interface {
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

func (f HandlerFunc) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return f(ctx, args)
}

// Entry pairs a descriptor with the handler that serves it.
type Entry struct {
	Descriptor ToolDescriptor
	Handler    Handler
}

// ToolResult is the outcome of one successful tool call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content any    `json:"content"`
}

// Text renders Content for a tool message: strings verbatim, anything else as JSON.
func (r ToolResult) Text() string {
	switch c := r.Content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case json.RawMessage:
		return string(c)
	}
	b, err := json.Marshal(r.Content)
	if err != nil {
		return ""
	}
	return string(b)
}

func NormalizeToolName(name string) string {
	return strings.TrimSpace(name)
}
