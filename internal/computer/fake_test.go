package computer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/ryogok/computer-use-model/internal/media"
)

// fakeComputer records calls and serves solid screenshots of a fixed size.
type fakeComputer struct {
	size  Size
	calls []string
	drags [][]Point
	err   error
}

func (f *fakeComputer) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeComputer) Environment() string { return EnvLinux }
func (f *fakeComputer) Dimensions() Size    { return f.size }

func (f *fakeComputer) Screenshot(context.Context) (string, error) {
	f.calls = append(f.calls, "screenshot")
	if f.err != nil {
		return "", f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.size.Width, f.size.Height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return media.EncodePNGBase64(img)
}

func (f *fakeComputer) Click(_ context.Context, x, y int, button Button) error {
	return f.record("click %d %d %s", x, y, button)
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

func (f *fakeComputer) Drag(_ context.Context, path []Point) error {
	f.drags = append(f.drags, path)
	return f.record("drag %v", path)
}

func (f *fakeComputer) lastCall(t *testing.T) string {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("expected at least one backend call")
	}
	return f.calls[len(f.calls)-1]
}
