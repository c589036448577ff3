package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// CompileSchema compiles a tool's parameter schema. A nil or empty schema
// compiles to nil, meaning any JSON object is accepted.
func CompileSchema(parameters map[string]interface{}) (*gojsonschema.Schema, error) {
	if len(parameters) == 0 {
		return nil, nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(parameters))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// DecodeArguments parses raw model arguments into a JSON object.
// Blank input is treated as an empty object.
func DecodeArguments(arguments string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" {
		return json.RawMessage("{}"), nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
	return json.RawMessage(trimmed), nil
}

// ValidateInput checks the decoded arguments against a compiled schema.
func ValidateInput(schema *gojsonschema.Schema, input json.RawMessage) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(input))
	if err != nil {
		return fmt.Errorf("validate input: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return fmt.Errorf("schema violation: %s", strings.Join(violations, "; "))
}
