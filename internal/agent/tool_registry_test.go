package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

var lookupSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"city": map[string]any{"type": "string"},
	},
	"required":             []any{"city"},
	"additionalProperties": false,
}

func TestToolRegistry_Register(t *testing.T) {
	noop := func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }

	tests := []struct {
		name    string
		def     ToolDefinition
		fn      ToolFunc
		wantErr string
	}{
		{"valid", ToolDefinition{Name: "lookup", Parameters: lookupSchema}, noop, ""},
		{"no schema", ToolDefinition{Name: "ping"}, noop, ""},
		{"empty name", ToolDefinition{Name: "  "}, noop, "name is required"},
		{"long name", ToolDefinition{Name: strings.Repeat("x", MaxToolNameLength+1)}, noop, "maximum length"},
		{"nil func", ToolDefinition{Name: "lookup"}, nil, "no executor"},
		{"bad schema", ToolDefinition{Name: "lookup", Parameters: map[string]any{"type": 12}}, noop, "compile schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewToolRegistry().Register(tt.def, tt.fn)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestToolRegistry_OrderAndReplace(t *testing.T) {
	r := NewToolRegistry()
	fn := func(ctx context.Context, args map[string]any) (any, error) { return "v1", nil }
	for _, name := range []string{"b", "a", "c"} {
		if err := r.Register(ToolDefinition{Name: name}, fn); err != nil {
			t.Fatal(err)
		}
	}
	replacement := func(ctx context.Context, args map[string]any) (any, error) { return "v2", nil }
	if err := r.Register(ToolDefinition{Name: "a", Description: "replaced"}, replacement); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, d := range r.Descriptors() {
		if d.Type != ToolTypeFunction {
			t.Errorf("descriptor %q has type %q", d.Name, d.Type)
		}
		names = append(names, d.Name)
	}
	if strings.Join(names, ",") != "b,a,c" {
		t.Errorf("order = %v, want [b a c]", names)
	}
	if d := r.Descriptors()[1]; d.Description != "replaced" {
		t.Errorf("replaced descriptor = %+v", d)
	}

	out, err := r.Execute(context.Background(), "a", nil)
	if err != nil || out != `"v2"` {
		t.Errorf("Execute(a) = %q, %v; want replacement result", out, err)
	}
}

func TestToolRegistry_Execute(t *testing.T) {
	r := NewToolRegistry()
	err := r.Register(ToolDefinition{Name: "lookup", Parameters: lookupSchema},
		func(ctx context.Context, args map[string]any) (any, error) {
			switch args["city"] {
			case "boom":
				panic("kaboom")
			case "fail":
				return nil, errors.New("backend down")
			case "chan":
				return make(chan int), nil
			}
			return map[string]any{"city": args["city"], "temp": 21}, nil
		})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		want     string
		wantType ToolErrorType
		wantIs   error
	}{
		{name: "ok", tool: "lookup", args: map[string]any{"city": "Paris"}, want: `{"city":"Paris","temp":21}`},
		{name: "unknown tool", tool: "missing", wantType: ToolErrorNotFound, wantIs: ErrToolNotFound},
		{name: "missing required", tool: "lookup", args: map[string]any{}, wantType: ToolErrorInvalidInput, wantIs: ErrInvalidToolInput},
		{name: "extra property", tool: "lookup", args: map[string]any{"city": "x", "zip": 1}, wantType: ToolErrorInvalidInput, wantIs: ErrInvalidToolInput},
		{name: "wrong type", tool: "lookup", args: map[string]any{"city": 3}, wantType: ToolErrorInvalidInput, wantIs: ErrInvalidToolInput},
		{name: "execution error", tool: "lookup", args: map[string]any{"city": "fail"}, wantType: ToolErrorExecution},
		{name: "panic", tool: "lookup", args: map[string]any{"city": "boom"}, wantType: ToolErrorPanic, wantIs: ErrToolPanic},
		{name: "unencodable result", tool: "lookup", args: map[string]any{"city": "chan"}, wantType: ToolErrorResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Execute(context.Background(), tt.tool, tt.args)
			if tt.wantType == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if out != tt.want {
					t.Errorf("output = %s, want %s", out, tt.want)
				}
				return
			}
			toolErr, ok := GetToolError(err)
			if !ok {
				t.Fatalf("expected ToolError, got %v", err)
			}
			if toolErr.Type != tt.wantType {
				t.Errorf("type = %q, want %q", toolErr.Type, tt.wantType)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("expected errors.Is(%v)", tt.wantIs)
			}
		})
	}
}
