// Package computer defines the backend capability contract used by the agent
// loop, the closed set of actions the model can request, and the Scaler that
// translates between the model's logical canvas and the real screen.
package computer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ryogok/computer-use-model/internal/media"
)

// Environment names understood by the remote computer-use tool.
const (
	EnvLinux   = "linux"
	EnvUbuntu  = "ubuntu"
	EnvWindows = "windows"
	EnvMac     = "mac"
	EnvBrowser = "browser"
)

var (
	// ErrNoScreenFrame is returned when a coordinate translation is requested
	// before any screenshot has recorded the real screen size.
	ErrNoScreenFrame = errors.New("no screen frame recorded")

	// ErrInvalidButton is returned for mouse button names outside the allowed set.
	ErrInvalidButton = errors.New("invalid mouse button")

	// ErrUnsupportedAction is returned for action kinds outside the closed set.
	ErrUnsupportedAction = errors.New("unsupported computer action")

	// ErrBackendUnavailable indicates a required host tool or browser is missing.
	ErrBackendUnavailable = errors.New("computer backend unavailable")
)

// Size is a width/height pair in pixels.
type Size = media.Size

// Point is a coordinate pair.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Button identifies a mouse button.
type Button string

const (
	ButtonLeft    Button = "left"
	ButtonRight   Button = "right"
	ButtonWheel   Button = "wheel"
	ButtonBack    Button = "back"
	ButtonForward Button = "forward"
)

// ParseButton validates a wire button name. An empty name means left.
func ParseButton(name string) (Button, error) {
	switch b := Button(strings.ToLower(strings.TrimSpace(name))); b {
	case "":
		return ButtonLeft, nil
	case ButtonLeft, ButtonRight, ButtonWheel, ButtonBack, ButtonForward:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidButton, name)
	}
}

// Computer is a screen the agent can observe and drive. Coordinates are in the
// backend's own pixel space; the Scaler adapts them to the model's canvas.
type Computer interface {
	// Environment is one of the Env* names.
	Environment() string
	// Dimensions is the size the model should be told about.
	Dimensions() Size
	// Screenshot returns a base64 encoded PNG (or JPEG) of the current screen.
	Screenshot(ctx context.Context) (string, error)

	Click(ctx context.Context, x, y int, button Button) error
	DoubleClick(ctx context.Context, x, y int) error
	Scroll(ctx context.Context, x, y, scrollX, scrollY int) error
	Type(ctx context.Context, text string) error
	Wait(ctx context.Context, ms int) error
	Move(ctx context.Context, x, y int) error
	Keypress(ctx context.Context, keys []string) error
	Drag(ctx context.Context, path []Point) error
}
