package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrSessionUnavailable - tool provider session never reached ready (fixed unavailability reply)
	ErrSessionUnavailable = errors.New("session unavailable")

	// ErrRegistration - tool registry rejected a descriptor set (old set stays active)
	ErrRegistration = errors.New("registration error")

	// ErrArgumentDecode - tool call arguments malformed or rejected by the schema (call dropped)
	ErrArgumentDecode = errors.New("argument decode error")

	// ErrUnknownTool - tool name not in the active registry (call dropped)
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolExecution - tool implementation failed (call dropped)
	ErrToolExecution = errors.New("tool execution error")

	// ErrCompletion - completion service failed in either round (request aborted, no retry)
	ErrCompletion = errors.New("completion service error")

	// ErrInvalidInput - invalid input (400 at the HTTP boundary)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied - permission denied
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTransient - transient error
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)
