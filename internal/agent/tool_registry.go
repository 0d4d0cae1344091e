package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolDefinition describes a function tool the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON schema for the arguments object. Nil accepts any object.
	Parameters map[string]any
	// Strict asks the remote service to enforce the schema on its side too.
	Strict bool
}

// Descriptor converts the definition into a function tool descriptor.
func (d ToolDefinition) Descriptor() ToolDescriptor {
	return ToolDescriptor{
		Type:        ToolTypeFunction,
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Parameters,
		Strict:      d.Strict,
	}
}

// ToolFunc executes a tool. The result is JSON encoded and sent back to the model.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

type registeredTool struct {
	def    ToolDefinition
	fn     ToolFunc
	schema *jsonschema.Schema
}

// ToolRegistry keeps registered tools in registration order.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*registeredTool
}

// Tool name limits
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 64
)

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*registeredTool)}
}

// Register adds a tool. Registering an existing name replaces the entry and
// keeps its original position.
func (r *ToolRegistry) Register(def ToolDefinition, fn ToolFunc) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errors.New("tool name is required")
	}
	if len(name) > MaxToolNameLength {
		return fmt.Errorf("tool name exceeds maximum length of %d characters", MaxToolNameLength)
	}
	if fn == nil {
		return fmt.Errorf("tool %q has no executor", name)
	}
	def.Name = name

	var schema *jsonschema.Schema
	if len(def.Parameters) > 0 {
		compiled, err := compileSchema(name, def.Parameters)
		if err != nil {
			return fmt.Errorf("compile schema for tool %q: %w", name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = &registeredTool{def: def, fn: fn, schema: schema}
	return nil
}

// Descriptors returns function descriptors in registration order.
func (r *ToolRegistry) Descriptors() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def.Descriptor())
	}
	return out
}

// Execute validates args, runs the tool and JSON encodes its result.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) (output string, err error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", NewToolError(name, ErrToolNotFound)
	}
	if err := tool.validate(args); err != nil {
		return "", err
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = NewToolError(name, fmt.Errorf("%w: %v", ErrToolPanic, rec))
		}
	}()

	result, err := tool.fn(ctx, args)
	if err != nil {
		return "", NewToolError(name, err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", &ToolError{Type: ToolErrorResult, ToolName: name, Message: "encode result: " + err.Error(), Cause: err}
	}
	return string(payload), nil
}

func (t *registeredTool) validate(args map[string]any) error {
	if t.schema == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees plain JSON types.
	payload, err := json.Marshal(args)
	if err != nil {
		return NewToolError(t.def.Name, fmt.Errorf("%w: %v", ErrInvalidToolInput, err))
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return NewToolError(t.def.Name, fmt.Errorf("%w: %v", ErrInvalidToolInput, err))
	}
	if err := t.schema.Validate(decoded); err != nil {
		return NewToolError(t.def.Name, fmt.Errorf("%w: %v", ErrInvalidToolInput, err))
	}
	return nil
}

var schemaCache sync.Map

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	key := string(raw)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(name+".schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}
