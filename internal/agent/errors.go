package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ryogok/computer-use-model/internal/computer"
)

// Common sentinel errors for agent operations
var (
	// ErrNoClient indicates no remote completion client is configured
	ErrNoClient = errors.New("no client configured")

	// ErrNoComputer indicates no computer backend is configured
	ErrNoComputer = errors.New("no computer configured")

	// ErrNoActiveTask indicates ContinueTask was called without a session state
	ErrNoActiveTask = errors.New("no active task")

	// ErrRetriesExhausted indicates every rate-limited attempt failed
	ErrRetriesExhausted = errors.New("rate limit retries exhausted")

	// ErrProtocolViolation indicates the remote response could not be interpreted
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnsupportedAction indicates a computer action outside the supported set
	ErrUnsupportedAction = computer.ErrUnsupportedAction

	// ErrToolNotFound indicates a requested tool doesn't exist
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidToolInput indicates tool arguments failed schema validation
	ErrInvalidToolInput = errors.New("invalid tool input")

	// ErrToolPanic indicates a tool panicked during execution
	ErrToolPanic = errors.New("tool panicked")
)

// ProtocolError reports a response that breaks the remote protocol: a status
// other than completed, malformed function arguments or invalid action
// parameters.
type ProtocolError struct {
	// ResponseID is the offending response, when known
	ResponseID string

	// Message is the human-readable error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString("protocol violation")
	if e.ResponseID != "" {
		fmt.Fprintf(&b, " in response %s", e.ResponseID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both ErrProtocolViolation and the cause.
func (e *ProtocolError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrProtocolViolation}
	}
	return []error{ErrProtocolViolation, e.Cause}
}

// UnsupportedOutputError reports an output item kind the interpreter does not
// understand.
type UnsupportedOutputError struct {
	Kind string
}

func (e *UnsupportedOutputError) Error() string {
	return fmt.Sprintf("unsupported response output type %q", e.Kind)
}

func (e *UnsupportedOutputError) Unwrap() error {
	return ErrProtocolViolation
}

// ToolErrorType categorizes tool execution errors.
type ToolErrorType string

const (
	// ToolErrorNotFound indicates the tool doesn't exist
	ToolErrorNotFound ToolErrorType = "not_found"

	// ToolErrorInvalidInput indicates invalid parameters were passed
	ToolErrorInvalidInput ToolErrorType = "invalid_input"

	// ToolErrorResult indicates the result could not be serialized
	ToolErrorResult ToolErrorType = "result"

	// ToolErrorExecution indicates a runtime error during execution
	ToolErrorExecution ToolErrorType = "execution"

	// ToolErrorPanic indicates the tool panicked
	ToolErrorPanic ToolErrorType = "panic"
)

// ToolError represents a structured error from tool execution.
type ToolError struct {
	// Type categorizes the error
	Type ToolErrorType

	// ToolName is the name of the tool that failed
	ToolName string

	// ToolCallID is the ID of the tool call that failed
	ToolCallID string

	// Message is the human-readable error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[tool:%s]", e.Type))

	if e.ToolName != "" {
		parts = append(parts, e.ToolName)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, " ")
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error {
	return e.Cause
}

// NewToolError creates a new ToolError classified from its cause.
func NewToolError(toolName string, cause error) *ToolError {
	err := &ToolError{
		ToolName: toolName,
		Cause:    cause,
		Type:     classifyToolError(cause),
	}
	if cause != nil {
		err.Message = cause.Error()
	}
	return err
}

// WithToolCallID sets the tool call ID for correlating errors with specific calls.
func (e *ToolError) WithToolCallID(id string) *ToolError {
	e.ToolCallID = id
	return e
}

func classifyToolError(err error) ToolErrorType {
	switch {
	case errors.Is(err, ErrToolNotFound):
		return ToolErrorNotFound
	case errors.Is(err, ErrInvalidToolInput):
		return ToolErrorInvalidInput
	case errors.Is(err, ErrToolPanic):
		return ToolErrorPanic
	default:
		return ToolErrorExecution
	}
}

// GetToolError extracts a ToolError from an error chain using errors.As.
func GetToolError(err error) (*ToolError, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// LoopError reports which phase of a turn failed.
type LoopError struct {
	// Phase is the loop phase where the error occurred
	Phase LoopPhase

	// Turn counts completed remote responses in the current task
	Turn int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoopError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("loop error at %s (turn %d): %v", e.Phase, e.Turn, e.Cause)
	}
	return fmt.Sprintf("loop error at %s (turn %d)", e.Phase, e.Turn)
}

// Unwrap returns the underlying error.
func (e *LoopError) Unwrap() error {
	return e.Cause
}

// LoopPhase names a distinct phase of one turn.
type LoopPhase string

const (
	// PhaseAction executes a computer action
	PhaseAction LoopPhase = "action"

	// PhaseScreenshot captures the post-action screenshot
	PhaseScreenshot LoopPhase = "screenshot"

	// PhaseTool executes a registered tool
	PhaseTool LoopPhase = "tool"

	// PhaseRequest issues the completion request
	PhaseRequest LoopPhase = "request"

	// PhaseInterpret interprets the response
	PhaseInterpret LoopPhase = "interpret"
)
