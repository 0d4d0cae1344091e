package computer

import (
	"context"
	"fmt"

	"github.com/ryogok/computer-use-model/internal/media"
)

// Scaler wraps a Computer so that every position-bearing call takes
// coordinates on a fixed logical canvas. Screenshots are letterboxed onto the
// canvas and record the real screen size used for later translations.
type Scaler struct {
	backend Computer
	canvas  Size
	screen  Size
}

var _ Computer = (*Scaler)(nil)

// NewScaler wraps backend. When canvas is nil the canvas is derived from one
// screenshot, scaled down so its longest edge is at most media.DefaultMaxSide.
func NewScaler(ctx context.Context, backend Computer, canvas *Size) (*Scaler, error) {
	s := &Scaler{backend: backend}
	if canvas != nil {
		if !canvas.Valid() {
			return nil, fmt.Errorf("invalid canvas size %s", *canvas)
		}
		s.canvas = *canvas
		return s, nil
	}

	raw, err := backend.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot for canvas: %w", err)
	}
	meta, err := media.GetImageMetadata(raw)
	if err != nil {
		return nil, err
	}
	s.screen = Size{Width: meta.Width, Height: meta.Height}
	s.canvas = media.FitWithin(meta.Width, meta.Height, media.DefaultMaxSide)
	return s, nil
}

// Environment passes through the backend's environment tag.
func (s *Scaler) Environment() string { return s.backend.Environment() }

// Dimensions returns the logical canvas size.
func (s *Scaler) Dimensions() Size { return s.canvas }

// ScreenSize returns the real size recorded by the most recent screenshot.
func (s *Scaler) ScreenSize() Size { return s.screen }

// Screenshot captures the real screen and returns it letterboxed onto the
// canvas as a base64 PNG.
func (s *Scaler) Screenshot(ctx context.Context) (string, error) {
	raw, err := s.backend.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	img, err := media.DecodeBase64(raw)
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	s.screen = Size{Width: b.Dx(), Height: b.Dy()}

	boxed, err := media.Letterbox(img, s.canvas)
	if err != nil {
		return "", err
	}
	return media.EncodePNGBase64(boxed)
}

func (s *Scaler) ratio() (float64, error) {
	if !s.screen.Valid() {
		return 0, ErrNoScreenFrame
	}
	return media.ScaleRatio(s.canvas, s.screen)
}

// PointToScreen maps canvas coordinates to real screen coordinates.
func (s *Scaler) PointToScreen(x, y int) (int, int, error) {
	r, err := s.ratio()
	if err != nil {
		return 0, 0, err
	}
	return int(float64(x) / r), int(float64(y) / r), nil
}

// ScreenToPoint maps real screen coordinates to canvas coordinates.
func (s *Scaler) ScreenToPoint(x, y int) (int, int, error) {
	r, err := s.ratio()
	if err != nil {
		return 0, 0, err
	}
	return int(float64(x) * r), int(float64(y) * r), nil
}

func (s *Scaler) Click(ctx context.Context, x, y int, button Button) error {
	sx, sy, err := s.PointToScreen(x, y)
	if err != nil {
		return err
	}
	return s.backend.Click(ctx, sx, sy, button)
}

func (s *Scaler) DoubleClick(ctx context.Context, x, y int) error {
	sx, sy, err := s.PointToScreen(x, y)
	if err != nil {
		return err
	}
	return s.backend.DoubleClick(ctx, sx, sy)
}

// Scroll translates the anchor point only; scroll deltas pass through.
func (s *Scaler) Scroll(ctx context.Context, x, y, scrollX, scrollY int) error {
	sx, sy, err := s.PointToScreen(x, y)
	if err != nil {
		return err
	}
	return s.backend.Scroll(ctx, sx, sy, scrollX, scrollY)
}

func (s *Scaler) Move(ctx context.Context, x, y int) error {
	sx, sy, err := s.PointToScreen(x, y)
	if err != nil {
		return err
	}
	return s.backend.Move(ctx, sx, sy)
}

// Drag translates every point in order. The caller's slice is left untouched.
func (s *Scaler) Drag(ctx context.Context, path []Point) error {
	translated := make([]Point, len(path))
	for i, p := range path {
		sx, sy, err := s.PointToScreen(p.X, p.Y)
		if err != nil {
			return err
		}
		translated[i] = Point{X: sx, Y: sy}
	}
	return s.backend.Drag(ctx, translated)
}

func (s *Scaler) Type(ctx context.Context, text string) error {
	return s.backend.Type(ctx, text)
}

func (s *Scaler) Wait(ctx context.Context, ms int) error {
	return s.backend.Wait(ctx, ms)
}

func (s *Scaler) Keypress(ctx context.Context, keys []string) error {
	return s.backend.Keypress(ctx, keys)
}
