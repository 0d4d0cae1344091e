package agent

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ryogok/computer-use-model/internal/computer"
)

func TestInterpret_Message(t *testing.T) {
	state, err := Interpret(completed("r1", messageItem("ignored", "Hello")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.NextStep() != StepAwaitUserText {
		t.Errorf("next step = %q", state.NextStep())
	}
	if state.Message() != "Hello" {
		t.Errorf("message = %q, want last content fragment", state.Message())
	}
	if state.ResponseID() != "r1" {
		t.Errorf("response id = %q", state.ResponseID())
	}
}

func TestInterpret_MessagesAccumulateReasoningOverwrites(t *testing.T) {
	state, err := Interpret(completed("r1",
		OutputItem{Type: OutputReasoning, Summary: []string{"a", "b"}},
		messageItem("one "),
		OutputItem{Type: OutputReasoning, Summary: []string{"c"}},
		messageItem("two"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.ReasoningSummary() != "c" {
		t.Errorf("reasoning = %q, want last summary only", state.ReasoningSummary())
	}
	if state.Message() != "one two" {
		t.Errorf("message = %q", state.Message())
	}
}

func TestInterpret_EmptyOutputIsIdle(t *testing.T) {
	state, err := Interpret(completed("r1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.NextStep() != StepIdle {
		t.Errorf("next step = %q", state.NextStep())
	}
}

func TestInterpret_ComputerCall(t *testing.T) {
	checks := []SafetyCheck{{ID: "sc1", Code: "malicious_instructions", Message: "careful"}}
	state, err := Interpret(completed("r1",
		computerCall("call_1", &ActionPayload{Type: "click", X: 10, Y: 20, Button: "right"}, checks...),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.NextStep() != StepComputerAction || state.CallID() != "call_1" {
		t.Errorf("got %q/%q", state.NextStep(), state.CallID())
	}
	want := computer.Click{X: 10, Y: 20, Button: computer.ButtonRight}
	if state.Action() != want {
		t.Errorf("action = %#v, want %#v", state.Action(), want)
	}
	got := state.PendingSafetyChecks()
	if !reflect.DeepEqual(got, checks) {
		t.Errorf("safety checks = %v", got)
	}
	got[0].ID = "mutated"
	if state.PendingSafetyChecks()[0].ID != "sc1" {
		t.Error("PendingSafetyChecks must return a copy")
	}
}

func TestInterpret_LaterItemWins(t *testing.T) {
	state, err := Interpret(completed("r1",
		messageItem("hi"),
		computerCall("call_1", &ActionPayload{Type: "wait"}),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.NextStep() != StepComputerAction {
		t.Errorf("next step = %q", state.NextStep())
	}
	if state.Message() != "hi" {
		t.Errorf("message should survive, got %q", state.Message())
	}
}

func TestInterpret_Actions(t *testing.T) {
	tests := []struct {
		name    string
		payload ActionPayload
		want    computer.Action
	}{
		{"click default button", ActionPayload{Type: "click", X: 1, Y: 2}, computer.Click{X: 1, Y: 2, Button: computer.ButtonLeft}},
		{"double click", ActionPayload{Type: "double_click", X: 3, Y: 4}, computer.DoubleClick{X: 3, Y: 4}},
		{"scroll", ActionPayload{Type: "scroll", X: 1, Y: 2, ScrollX: 0, ScrollY: -300}, computer.Scroll{X: 1, Y: 2, ScrollY: -300}},
		{"type", ActionPayload{Type: "type", Text: "hello"}, computer.Type{Text: "hello"}},
		{"wait", ActionPayload{Type: "wait", Ms: 500}, computer.Wait{Ms: 500}},
		{"move", ActionPayload{Type: "move", X: 5, Y: 6}, computer.Move{X: 5, Y: 6}},
		{"screenshot", ActionPayload{Type: "screenshot"}, computer.Screenshot{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := tt.payload
			state, err := Interpret(completed("r", computerCall("c", &payload)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(state.Action(), tt.want) {
				t.Errorf("action = %#v, want %#v", state.Action(), tt.want)
			}
		})
	}
}

func TestInterpret_KeypressAndDrag(t *testing.T) {
	path := []computer.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	state, err := Interpret(completed("r", computerCall("c", &ActionPayload{Type: "drag", Path: path})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drag, ok := state.Action().(computer.Drag)
	if !ok || !reflect.DeepEqual(drag.Path, path) {
		t.Fatalf("action = %#v", state.Action())
	}
	path[0].X = 99
	if drag.Path[0].X != 1 {
		t.Error("drag path must be copied")
	}

	state, err = Interpret(completed("r", computerCall("c", &ActionPayload{Type: "keypress", Keys: []string{"CTRL", "A"}})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kp, ok := state.Action().(computer.Keypress); !ok || !reflect.DeepEqual(kp.Keys, []string{"CTRL", "A"}) {
		t.Errorf("action = %#v", state.Action())
	}
}

func TestInterpret_FunctionCall(t *testing.T) {
	state, err := Interpret(completed("r1", functionCall("call_9", "lookup", `{"q":"go"}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.NextStep() != StepTool || state.ToolName() != "lookup" || state.CallID() != "call_9" {
		t.Errorf("unexpected state %+v", state)
	}
	if state.ToolArgs()["q"] != "go" {
		t.Errorf("args = %v", state.ToolArgs())
	}
}

func TestInterpret_Errors(t *testing.T) {
	tests := []struct {
		name   string
		resp   *Response
		target error
	}{
		{"nil response", nil, ErrProtocolViolation},
		{"incomplete", &Response{ID: "r", Status: "incomplete"}, ErrProtocolViolation},
		{"unknown item", completed("r", OutputItem{Type: "web_search_call"}), ErrProtocolViolation},
		{"bad arguments", completed("r", functionCall("c", "f", "{nope")), ErrProtocolViolation},
		{"missing action", completed("r", computerCall("c", nil)), ErrProtocolViolation},
		{"unknown action", completed("r", computerCall("c", &ActionPayload{Type: "teleport"})), ErrUnsupportedAction},
		{"bad button", completed("r", computerCall("c", &ActionPayload{Type: "click", Button: "middle"})), ErrProtocolViolation},
		{"negative wait", completed("r", computerCall("c", &ActionPayload{Type: "wait", Ms: -1})), ErrProtocolViolation},
		{"keypress without keys", completed("r", computerCall("c", &ActionPayload{Type: "keypress"})), ErrProtocolViolation},
		{"drag without path", completed("r", computerCall("c", &ActionPayload{Type: "drag"})), ErrProtocolViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := Interpret(tt.resp)
			if state != nil {
				t.Error("expected nil state on error")
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestInterpret_ProtocolErrorCarriesResponseID(t *testing.T) {
	_, err := Interpret(completed("resp_7", messageItem("ok"), functionCall("c", "f", "[")))
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if protoErr.ResponseID != "resp_7" {
		t.Errorf("response id = %q", protoErr.ResponseID)
	}
}

func TestInterpret_UnsupportedOutputKind(t *testing.T) {
	_, err := Interpret(completed("r", OutputItem{Type: "file_search_call"}))
	var unsupported *UnsupportedOutputError
	if !errors.As(err, &unsupported) || unsupported.Kind != "file_search_call" {
		t.Errorf("expected UnsupportedOutputError, got %v", err)
	}
}
