package tool

import (
	"strings"

	"github.com/harunnryd/mcprelay/internal/model/contract"
)

const (
	SourceMCP   = "mcp"
	SourceLocal = "local"
)

type ToolMetadata struct {
	// Source is where the handler lives: "mcp" or "local".
	Source string `json:"source" yaml:"source"`
	// Server names the tool provider that advertised the tool, if any.
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
}

// ToolDescriptor is the immutable description offered to the model.
type ToolDescriptor struct {
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description" yaml:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Required    []string               `json:"required,omitempty" yaml:"required,omitempty"`
	Metadata    ToolMetadata           `json:"metadata" yaml:"metadata"`
}

// Definition is the provider-neutral tool definition sent with completion requests.
func (d ToolDescriptor) Definition() contract.ToolDef {
	return contract.ToolDef{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Parameters,
	}
}

func normalizeDescriptor(d ToolDescriptor) ToolDescriptor {
	d.Name = NormalizeToolName(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	if len(d.Required) == 0 {
		d.Required = requiredFromSchema(d.Parameters)
	}

	source := strings.TrimSpace(strings.ToLower(d.Metadata.Source))
	if source == "" {
		source = SourceLocal
	}
	d.Metadata.Source = source
	d.Metadata.Server = strings.TrimSpace(d.Metadata.Server)
	return d
}

func requiredFromSchema(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return append([]string(nil), required...)
	case []interface{}:
		out := make([]string, 0, len(required))
		for _, field := range required {
			if name, ok := field.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}
