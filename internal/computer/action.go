package computer

import (
	"context"
	"fmt"
)

// ActionKind is the wire name of a computer action.
type ActionKind string

const (
	KindClick       ActionKind = "click"
	KindDoubleClick ActionKind = "double_click"
	KindScroll      ActionKind = "scroll"
	KindType        ActionKind = "type"
	KindWait        ActionKind = "wait"
	KindMove        ActionKind = "move"
	KindKeypress    ActionKind = "keypress"
	KindDrag        ActionKind = "drag"
	KindScreenshot  ActionKind = "screenshot"
)

// DefaultWaitMs is used when a wait action carries no duration.
const DefaultWaitMs = 1000

// ParseActionKind validates a wire action name.
func ParseActionKind(name string) (ActionKind, error) {
	switch k := ActionKind(name); k {
	case KindClick, KindDoubleClick, KindScroll, KindType, KindWait,
		KindMove, KindKeypress, KindDrag, KindScreenshot:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAction, name)
	}
}

// Action is one of the typed action records below.
type Action interface {
	Kind() ActionKind
}

type Click struct {
	X, Y   int
	Button Button
}

type DoubleClick struct {
	X, Y int
}

type Scroll struct {
	X, Y             int
	ScrollX, ScrollY int
}

type Type struct {
	Text string
}

type Wait struct {
	Ms int
}

type Move struct {
	X, Y int
}

type Keypress struct {
	Keys []string
}

type Drag struct {
	Path []Point
}

// Screenshot asks for a fresh capture. The loop always captures after an
// action, so executing it does nothing.
type Screenshot struct{}

func (Click) Kind() ActionKind       { return KindClick }
func (DoubleClick) Kind() ActionKind { return KindDoubleClick }
func (Scroll) Kind() ActionKind      { return KindScroll }
func (Type) Kind() ActionKind        { return KindType }
func (Wait) Kind() ActionKind        { return KindWait }
func (Move) Kind() ActionKind        { return KindMove }
func (Keypress) Kind() ActionKind    { return KindKeypress }
func (Drag) Kind() ActionKind        { return KindDrag }
func (Screenshot) Kind() ActionKind  { return KindScreenshot }

// Execute dispatches action to the matching method of c.
func Execute(ctx context.Context, c Computer, action Action) error {
	switch a := action.(type) {
	case Click:
		return c.Click(ctx, a.X, a.Y, a.Button)
	case DoubleClick:
		return c.DoubleClick(ctx, a.X, a.Y)
	case Scroll:
		return c.Scroll(ctx, a.X, a.Y, a.ScrollX, a.ScrollY)
	case Type:
		return c.Type(ctx, a.Text)
	case Wait:
		ms := a.Ms
		if ms <= 0 {
			ms = DefaultWaitMs
		}
		return c.Wait(ctx, ms)
	case Move:
		return c.Move(ctx, a.X, a.Y)
	case Keypress:
		return c.Keypress(ctx, a.Keys)
	case Drag:
		return c.Drag(ctx, a.Path)
	case Screenshot:
		return nil
	case nil:
		return fmt.Errorf("%w: nil action", ErrUnsupportedAction)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedAction, action)
	}
}

// Args renders the parameters of action as a generic map for logging.
func Args(action Action) map[string]any {
	switch a := action.(type) {
	case Click:
		return map[string]any{"x": a.X, "y": a.Y, "button": string(a.Button)}
	case DoubleClick:
		return map[string]any{"x": a.X, "y": a.Y}
	case Scroll:
		return map[string]any{"x": a.X, "y": a.Y, "scroll_x": a.ScrollX, "scroll_y": a.ScrollY}
	case Type:
		return map[string]any{"text": a.Text}
	case Wait:
		return map[string]any{"ms": a.Ms}
	case Move:
		return map[string]any{"x": a.X, "y": a.Y}
	case Keypress:
		return map[string]any{"keys": append([]string(nil), a.Keys...)}
	case Drag:
		path := make([]map[string]int, len(a.Path))
		for i, p := range a.Path {
			path[i] = map[string]int{"x": p.X, "y": p.Y}
		}
		return map[string]any{"path": path}
	default:
		return map[string]any{}
	}
}
