package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolError is a tool result the provider flagged with isError.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tool %s reported an error", e.Tool)
	}
	return fmt.Sprintf("tool %s reported an error: %s", e.Tool, e.Message)
}

// ResultContent turns a tools/call result into handler content.
// Structured content wins; otherwise the text parts are joined and decoded
// when they form a JSON document.
func ResultContent(name string, res *mcpsdk.CallToolResult) (any, error) {
	if res == nil {
		return nil, nil
	}

	text := joinText(res.Content)
	if res.IsError {
		return nil, &ToolError{Tool: name, Message: text}
	}

	if res.StructuredContent != nil {
		return res.StructuredContent, nil
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded, nil
		}
	}
	if text != "" || len(res.Content) == 0 {
		return text, nil
	}

	// Non-text content only (images, resources): pass it through as JSON.
	raw, err := json.Marshal(res.Content)
	if err != nil {
		return nil, fmt.Errorf("encode tool content: %w", err)
	}
	return json.RawMessage(raw), nil
}

func joinText(content []mcpsdk.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
