package tool

import (
	"fmt"

	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
)

// RegistrationError rejects a whole Register call.
type RegistrationError struct {
	Name   string
	Reason string
}

func (e *RegistrationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("tool registration failed: %s", e.Reason)
	}
	return fmt.Sprintf("tool registration failed for %q: %s", e.Name, e.Reason)
}

func (e *RegistrationError) Is(target error) bool { return target == relayErrors.ErrRegistration }

// ArgumentDecodeError reports arguments that are not a JSON object or fail the tool schema.
type ArgumentDecodeError struct {
	Tool string
	Err  error
}

func (e *ArgumentDecodeError) Error() string {
	return fmt.Sprintf("decode arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *ArgumentDecodeError) Unwrap() error { return e.Err }

func (e *ArgumentDecodeError) Is(target error) bool { return target == relayErrors.ErrArgumentDecode }

type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

func (e *UnknownToolError) Is(target error) bool { return target == relayErrors.ErrUnknownTool }

// ToolExecutionError wraps whatever the handler returned.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

func (e *ToolExecutionError) Is(target error) bool { return target == relayErrors.ErrToolExecution }
