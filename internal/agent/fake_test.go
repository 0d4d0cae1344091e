package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/ryogok/computer-use-model/internal/computer"
)

const fakeScreenshot = "c2NyZWVu"

// fakeClient replays canned responses and records every request.
type fakeClient struct {
	responses []*Response
	errs      []error
	requests  []*Request
}

func (f *fakeClient) CreateResponse(_ context.Context, req *Request) (*Response, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no canned response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

// rateLimitError mimics a provider error carrying a retry hint.
type rateLimitError struct{ msg string }

func (e *rateLimitError) Error() string     { return e.msg }
func (e *rateLimitError) IsRateLimit() bool { return true }

// fakeComputer records the backend calls made by the agent.
type fakeComputer struct {
	calls         []string
	drags         [][]computer.Point
	actionErr     error
	screenshotErr error
}

func (f *fakeComputer) Environment() string     { return computer.EnvBrowser }
func (f *fakeComputer) Dimensions() computer.Size { return computer.Size{Width: 1024, Height: 768} }

func (f *fakeComputer) Screenshot(context.Context) (string, error) {
	f.calls = append(f.calls, "screenshot")
	return fakeScreenshot, f.screenshotErr
}

func (f *fakeComputer) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.actionErr
}

func (f *fakeComputer) Click(_ context.Context, x, y int, b computer.Button) error {
	return f.record("click %d %d %s", x, y, b)
}

func (f *fakeComputer) DoubleClick(_ context.Context, x, y int) error {
	return f.record("double_click %d %d", x, y)
}

func (f *fakeComputer) Scroll(_ context.Context, x, y, sx, sy int) error {
	return f.record("scroll %d %d %d %d", x, y, sx, sy)
}

func (f *fakeComputer) Type(_ context.Context, text string) error {
	return f.record("type %s", text)
}

func (f *fakeComputer) Wait(_ context.Context, ms int) error {
	return f.record("wait %d", ms)
}

func (f *fakeComputer) Move(_ context.Context, x, y int) error {
	return f.record("move %d %d", x, y)
}

func (f *fakeComputer) Keypress(_ context.Context, keys []string) error {
	return f.record("keypress %v", keys)
}

func (f *fakeComputer) Drag(_ context.Context, path []computer.Point) error {
	f.drags = append(f.drags, append([]computer.Point(nil), path...))
	return f.record("drag %d", len(path))
}

func completed(id string, items ...OutputItem) *Response {
	return &Response{ID: id, Status: StatusCompleted, Output: items}
}

func messageItem(text ...string) OutputItem {
	return OutputItem{Type: OutputMessage, Content: text}
}

func computerCall(callID string, action *ActionPayload, checks ...SafetyCheck) OutputItem {
	return OutputItem{Type: OutputComputerCall, CallID: callID, Action: action, PendingSafetyChecks: checks}
}

func functionCall(callID, name, args string) OutputItem {
	return OutputItem{Type: OutputFunctionCall, CallID: callID, Name: name, Arguments: args}
}
