package agent

import (
	"context"

	"github.com/ryogok/computer-use-model/internal/computer"
)

// Client is the remote completion service that hosts the computer-use model.
//
// Implementations translate a Request into one call against the remote API
// and the reply back into a Response. They must not retry on their own: the
// Agent owns the retry policy and recognises rate limiting through errors
// that implement IsRateLimit() bool.
//
// See Also:
//   - providers.OpenAIProvider for the OpenAI and Azure OpenAI Responses API
type Client interface {
	// CreateResponse issues one completion request.
	CreateResponse(ctx context.Context, req *Request) (*Response, error)
}

// Truncation modes accepted by the remote service.
const TruncationAuto = "auto"

// Reasoning summary verbosity requested on continuation turns.
const ReasoningSummaryConcise = "concise"

// Tool descriptor types.
const (
	ToolTypeComputer = "computer_use_preview"
	ToolTypeFunction = "function"
)

// ToolDescriptor describes one tool offered to the model.
//
// The computer-use descriptor carries the canvas dimensions and environment;
// function descriptors carry a name and a JSON schema for their arguments.
type ToolDescriptor struct {
	// Type is ToolTypeComputer or ToolTypeFunction.
	Type string `json:"type"`

	// DisplayWidth and DisplayHeight are the logical canvas size.
	DisplayWidth  int    `json:"display_width,omitempty"`
	DisplayHeight int    `json:"display_height,omitempty"`
	Environment   string `json:"environment,omitempty"`

	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      bool           `json:"strict,omitempty"`
}

// Input item types sent back to the remote service.
const (
	InputMessage            = "message"
	InputComputerCallOutput = "computer_call_output"
	InputFunctionCallOutput = "function_call_output"
)

// InputItem is the single structured item sent on a continuation turn.
type InputItem struct {
	// Type is one of the Input* constants.
	Type string `json:"type"`

	// Role and Text are set for InputMessage.
	Role string `json:"role,omitempty"`
	Text string `json:"text,omitempty"`

	// CallID correlates an output item with the call that produced it.
	CallID string `json:"call_id,omitempty"`

	// ScreenshotURL is a data URL holding the post-action screenshot.
	ScreenshotURL string `json:"screenshot_url,omitempty"`

	// AcknowledgedSafetyChecks echoes every pending safety check back.
	AcknowledgedSafetyChecks []SafetyCheck `json:"acknowledged_safety_checks,omitempty"`

	// Output is the JSON encoded tool result for InputFunctionCallOutput.
	Output string `json:"output,omitempty"`
}

// Request contains all parameters for one completion request.
//
// Example:
//
//	req := &Request{
//	    Model:      "computer-use-preview",
//	    InputText:  "Open a browser and go to example.com",
//	    Tools:      agent.Tools(),
//	    Truncation: TruncationAuto,
//	}
type Request struct {
	// Model is the remote model identifier.
	Model string `json:"model"`

	// InputText is the plain task text used when a task starts.
	InputText string `json:"input_text,omitempty"`

	// Input holds structured items for continuation turns.
	Input []InputItem `json:"input,omitempty"`

	// PreviousResponseID continues the remote conversation. Empty starts a new one.
	PreviousResponseID string `json:"previous_response_id,omitempty"`

	// Tools lists the computer-use descriptor followed by function tools.
	Tools []ToolDescriptor `json:"tools"`

	// Truncation is always TruncationAuto.
	Truncation string `json:"truncation"`

	// ReasoningSummary requests a reasoning summary of the given verbosity.
	ReasoningSummary string `json:"reasoning_summary,omitempty"`
}

// Response statuses.
const StatusCompleted = "completed"

// Output item kinds produced by the remote service.
const (
	OutputMessage      = "message"
	OutputReasoning    = "reasoning"
	OutputComputerCall = "computer_call"
	OutputFunctionCall = "function_call"
)

// Response is one completed (or failed) turn of the remote conversation.
type Response struct {
	// ID becomes the continuation id of the next request.
	ID string `json:"id"`

	// Status must be StatusCompleted for the response to be interpreted.
	Status string `json:"status"`

	// Output is the ordered list of heterogeneous output items.
	Output []OutputItem `json:"output"`
}

// OutputItem is a tagged union over the output item kinds. Only the fields
// relevant to Type are populated.
type OutputItem struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// CallID is set for computer and function calls.
	CallID string `json:"call_id,omitempty"`

	// Content holds message text fragments.
	Content []string `json:"content,omitempty"`

	// Summary holds reasoning summary fragments.
	Summary []string `json:"summary,omitempty"`

	// Action and PendingSafetyChecks are set for computer calls.
	Action              *ActionPayload `json:"action,omitempty"`
	PendingSafetyChecks []SafetyCheck  `json:"pending_safety_checks,omitempty"`

	// Name and Arguments are set for function calls. Arguments is JSON text.
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ActionPayload is the untyped wire form of a computer action. Interpret
// converts it into a computer.Action.
type ActionPayload struct {
	Type    string           `json:"type"`
	X       int              `json:"x,omitempty"`
	Y       int              `json:"y,omitempty"`
	Button  string           `json:"button,omitempty"`
	ScrollX int              `json:"scroll_x,omitempty"`
	ScrollY int              `json:"scroll_y,omitempty"`
	Text    string           `json:"text,omitempty"`
	Ms      int              `json:"ms,omitempty"`
	Keys    []string         `json:"keys,omitempty"`
	Path    []computer.Point `json:"path,omitempty"`
}

// SafetyCheck is an opaque safety token attached to a computer call. It must
// be acknowledged on the following request.
type SafetyCheck struct {
	ID      string `json:"id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
