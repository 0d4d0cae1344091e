package computer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ryogok/computer-use-model/internal/media"
)

// scrollStepPx is the pixel distance represented by one wheel click.
const scrollStepPx = 100

// xdotool button numbers.
var xdotoolButtons = map[Button]string{
	ButtonLeft:    "1",
	ButtonWheel:   "2",
	ButtonRight:   "3",
	ButtonBack:    "8",
	ButtonForward: "9",
}

// CommandRunner runs a host command and returns its combined output.
type CommandRunner func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// LocalConfig configures a LocalComputer.
type LocalConfig struct {
	// Display is the X display to drive, e.g. ":0". Empty uses $DISPLAY.
	Display string
	// Environment tag reported to the model. Defaults to EnvLinux.
	Environment string
	// Runner overrides command execution; tests use it to record invocations.
	Runner CommandRunner
	// LookPath overrides exec.LookPath.
	LookPath func(string) (string, error)
}

// LocalComputer drives an X11 desktop with xdotool and captures it with
// scrot, gnome-screenshot or ImageMagick import.
type LocalComputer struct {
	env      string
	size     Size
	display  []string
	capture  []string
	run      CommandRunner
	tempName func() string
}

var _ Computer = (*LocalComputer)(nil)

// NewLocalComputer checks the required host tools and probes the display size.
func NewLocalComputer(ctx context.Context, cfg LocalConfig) (*LocalComputer, error) {
	lookPath := cfg.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("xdotool"); err != nil {
		return nil, fmt.Errorf("%w: xdotool not found (apt install xdotool)", ErrBackendUnavailable)
	}

	lc := &LocalComputer{
		env: cfg.Environment,
		run: cfg.Runner,
		tempName: func() string {
			return filepath.Join(os.TempDir(), fmt.Sprintf("cua_screen_%s.png", uuid.NewString()[:8]))
		},
	}
	if lc.env == "" {
		lc.env = EnvLinux
	}
	if lc.run == nil {
		lc.run = runCommand
	}
	if cfg.Display != "" {
		lc.display = []string{"DISPLAY=" + cfg.Display}
	}

	switch {
	case found(lookPath, "scrot"):
		lc.capture = []string{"scrot", "-o"}
	case found(lookPath, "gnome-screenshot"):
		lc.capture = []string{"gnome-screenshot", "-f"}
	case found(lookPath, "import"):
		lc.capture = []string{"import", "-window", "root"}
	default:
		return nil, fmt.Errorf("%w: screenshot requires scrot, gnome-screenshot or imagemagick", ErrBackendUnavailable)
	}

	out, err := lc.run(ctx, lc.display, "xdotool", "getdisplaygeometry")
	if err != nil {
		return nil, fmt.Errorf("probe display geometry: %w", err)
	}
	size, err := parseGeometry(string(out))
	if err != nil {
		return nil, err
	}
	lc.size = size
	return lc, nil
}

func found(lookPath func(string) (string, error), name string) bool {
	_, err := lookPath(name)
	return err == nil
}

// parseGeometry parses "1920 1080" as printed by xdotool getdisplaygeometry.
func parseGeometry(out string) (Size, error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return Size{}, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(out))
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if err := errors.Join(errW, errH); err != nil {
		return Size{}, fmt.Errorf("parse display geometry: %w", err)
	}
	return Size{Width: w, Height: h}, nil
}

func (l *LocalComputer) Environment() string { return l.env }

func (l *LocalComputer) Dimensions() Size { return l.size }

func (l *LocalComputer) xdotool(ctx context.Context, args ...string) error {
	_, err := l.run(ctx, l.display, "xdotool", args...)
	return err
}

func (l *LocalComputer) Screenshot(ctx context.Context) (string, error) {
	tmpFile := l.tempName()
	defer os.Remove(tmpFile)

	args := append(append([]string(nil), l.capture[1:]...), tmpFile)
	if _, err := l.run(ctx, l.display, l.capture[0], args...); err != nil {
		return "", err
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return "", fmt.Errorf("read screenshot: %w", err)
	}
	return media.EncodeBytes(data), nil
}

func (l *LocalComputer) Click(ctx context.Context, x, y int, button Button) error {
	num, ok := xdotoolButtons[button]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidButton, button)
	}
	return l.xdotool(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", num)
}

func (l *LocalComputer) DoubleClick(ctx context.Context, x, y int) error {
	return l.xdotool(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", "--repeat", "2", "1")
}

// Scroll converts pixel deltas into wheel clicks (4 up, 5 down, 6 left, 7 right).
func (l *LocalComputer) Scroll(ctx context.Context, x, y, scrollX, scrollY int) error {
	if err := l.Move(ctx, x, y); err != nil {
		return err
	}
	for _, s := range []struct {
		delta    int
		neg, pos string
	}{
		{scrollY, "4", "5"},
		{scrollX, "6", "7"},
	} {
		if s.delta == 0 {
			continue
		}
		btn := s.pos
		if s.delta < 0 {
			btn = s.neg
		}
		clicks := max(1, abs(s.delta)/scrollStepPx)
		if err := l.xdotool(ctx, "click", "--repeat", strconv.Itoa(clicks), btn); err != nil {
			return err
		}
	}
	return nil
}

func (l *LocalComputer) Type(ctx context.Context, text string) error {
	return l.xdotool(ctx, "type", "--delay", "10", "--", text)
}

func (l *LocalComputer) Wait(ctx context.Context, ms int) error {
	return sleepContext(ctx, time.Duration(ms)*time.Millisecond)
}

func (l *LocalComputer) Move(ctx context.Context, x, y int) error {
	return l.xdotool(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

func (l *LocalComputer) Keypress(ctx context.Context, keys []string) error {
	chord := xdotoolChord(keys)
	if chord == "" {
		return nil
	}
	return l.xdotool(ctx, "key", chord)
}

func (l *LocalComputer) Drag(ctx context.Context, path []Point) error {
	if len(path) == 0 {
		return nil
	}
	args := []string{"mousemove", strconv.Itoa(path[0].X), strconv.Itoa(path[0].Y), "mousedown", "1"}
	for _, p := range path[1:] {
		args = append(args, "mousemove", strconv.Itoa(p.X), strconv.Itoa(p.Y))
	}
	args = append(args, "mouseup", "1")
	return l.xdotool(ctx, args...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
