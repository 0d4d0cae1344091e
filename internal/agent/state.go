package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ryogok/computer-use-model/internal/computer"
)

// NextStep classifies what a response asks the caller to do next.
type NextStep string

const (
	// StepIdle means the response carried no message or call.
	StepIdle NextStep = "idle"
	// StepAwaitUserText means the model spoke and waits for the user.
	StepAwaitUserText NextStep = "await_user_text"
	// StepComputerAction means a computer action must be executed.
	StepComputerAction NextStep = "execute_computer_action"
	// StepTool means a registered tool must be executed.
	StepTool NextStep = "execute_tool"
)

// SessionState is the immutable interpretation of one completed response.
// Build it with Interpret.
type SessionState struct {
	responseID   string
	next         NextStep
	callID       string
	action       computer.Action
	safetyChecks []SafetyCheck
	toolName     string
	toolArgs     map[string]any
	reasoning    string
	message      string
}

// ResponseID is the continuation id for the next request.
func (s SessionState) ResponseID() string { return s.responseID }

// NextStep reports the classification of the response.
func (s SessionState) NextStep() NextStep { return s.next }

// CallID correlates the next input item with the pending call.
func (s SessionState) CallID() string { return s.callID }

// Action is the pending computer action, nil unless NextStep is StepComputerAction.
func (s SessionState) Action() computer.Action { return s.action }

// PendingSafetyChecks returns a copy of the checks attached to the computer call.
func (s SessionState) PendingSafetyChecks() []SafetyCheck {
	return append([]SafetyCheck(nil), s.safetyChecks...)
}

// ToolName is the requested tool, set when NextStep is StepTool.
func (s SessionState) ToolName() string { return s.toolName }

// ToolArgs returns the decoded tool arguments.
func (s SessionState) ToolArgs() map[string]any { return s.toolArgs }

// ReasoningSummary is the reasoning text of the response.
func (s SessionState) ReasoningSummary() string { return s.reasoning }

// Message is the accumulated assistant text of the response.
func (s SessionState) Message() string { return s.message }

// Interpret folds the output items of a completed response into a
// SessionState. Later calls and messages override the classification of
// earlier ones; message text accumulates while reasoning text is replaced.
func Interpret(resp *Response) (*SessionState, error) {
	if resp == nil {
		return nil, &ProtocolError{Message: "nil response"}
	}
	if resp.Status != StatusCompleted {
		return nil, &ProtocolError{
			ResponseID: resp.ID,
			Message:    fmt.Sprintf("response status is %q, want %q", resp.Status, StatusCompleted),
		}
	}

	state := SessionState{responseID: resp.ID, next: StepIdle}
	for i, item := range resp.Output {
		next, err := fold(state, item)
		if err != nil {
			var protoErr *ProtocolError
			if errors.As(err, &protoErr) {
				protoErr.ResponseID = resp.ID
				protoErr.Message = fmt.Sprintf("output[%d]: %s", i, protoErr.Message)
			}
			return nil, err
		}
		state = next
	}
	return &state, nil
}

// fold applies one output item to a copy of state.
func fold(state SessionState, item OutputItem) (SessionState, error) {
	switch item.Type {
	case OutputComputerCall:
		action, err := parseAction(item.Action)
		if err != nil {
			return state, err
		}
		state.next = StepComputerAction
		state.callID = item.CallID
		state.action = action
		state.safetyChecks = append([]SafetyCheck(nil), item.PendingSafetyChecks...)

	case OutputReasoning:
		state.reasoning = strings.Join(item.Summary, "")

	case OutputMessage:
		state.next = StepAwaitUserText
		if n := len(item.Content); n > 0 {
			state.message += item.Content[n-1]
		}

	case OutputFunctionCall:
		args := map[string]any{}
		if strings.TrimSpace(item.Arguments) != "" {
			if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
				return state, &ProtocolError{
					Message: fmt.Sprintf("invalid arguments for function %q", item.Name),
					Cause:   err,
				}
			}
		}
		state.next = StepTool
		state.callID = item.CallID
		state.toolName = item.Name
		state.toolArgs = args

	default:
		return state, &UnsupportedOutputError{Kind: item.Type}
	}
	return state, nil
}

// parseAction validates the wire action and builds its typed record.
func parseAction(p *ActionPayload) (computer.Action, error) {
	if p == nil {
		return nil, &ProtocolError{Message: "computer call without action"}
	}
	kind, err := computer.ParseActionKind(p.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case computer.KindClick:
		button, err := computer.ParseButton(p.Button)
		if err != nil {
			return nil, &ProtocolError{Message: "invalid click", Cause: err}
		}
		return computer.Click{X: p.X, Y: p.Y, Button: button}, nil
	case computer.KindDoubleClick:
		return computer.DoubleClick{X: p.X, Y: p.Y}, nil
	case computer.KindScroll:
		return computer.Scroll{X: p.X, Y: p.Y, ScrollX: p.ScrollX, ScrollY: p.ScrollY}, nil
	case computer.KindType:
		return computer.Type{Text: p.Text}, nil
	case computer.KindWait:
		if p.Ms < 0 {
			return nil, &ProtocolError{Message: fmt.Sprintf("negative wait %dms", p.Ms)}
		}
		return computer.Wait{Ms: p.Ms}, nil
	case computer.KindMove:
		return computer.Move{X: p.X, Y: p.Y}, nil
	case computer.KindKeypress:
		if len(p.Keys) == 0 {
			return nil, &ProtocolError{Message: "keypress without keys"}
		}
		return computer.Keypress{Keys: append([]string(nil), p.Keys...)}, nil
	case computer.KindDrag:
		if len(p.Path) == 0 {
			return nil, &ProtocolError{Message: "drag without path"}
		}
		path := make([]computer.Point, len(p.Path))
		copy(path, p.Path)
		return computer.Drag{Path: path}, nil
	default:
		return computer.Screenshot{}, nil
	}
}
