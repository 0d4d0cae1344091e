package computer

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/ryogok/computer-use-model/internal/media"
)

// BrowserConfig configures a BrowserComputer.
type BrowserConfig struct {
	// DebugURL connects to an existing Chrome (ws:// or http:// DevTools URL).
	// Empty launches a local browser.
	DebugURL string
	// StartURL is opened once the tab is ready.
	StartURL string
	Width    int
	Height   int
	Headless bool
}

var cdpButtons = map[Button]string{
	ButtonLeft:    "left",
	ButtonRight:   "right",
	ButtonWheel:   "middle",
	ButtonBack:    "back",
	ButtonForward: "forward",
}

// BrowserComputer drives a single Chrome tab over the DevTools protocol.
type BrowserComputer struct {
	tab    context.Context
	cancel context.CancelFunc
	size   Size
	// run is chromedp.Run bound to the tab; tests replace it.
	run func(ctx context.Context, actions ...chromedp.Action) error
}

var _ Computer = (*BrowserComputer)(nil)

// NewBrowserComputer connects to or launches a browser and sizes its viewport.
// Close releases the browser.
func NewBrowserComputer(ctx context.Context, cfg BrowserConfig) (*BrowserComputer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid browser viewport %dx%d", cfg.Width, cfg.Height)
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.DebugURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.DebugURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(cfg.Width, cfg.Height),
			chromedp.Flag("headless", cfg.Headless),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}
	tab, tabCancel := chromedp.NewContext(allocCtx)

	b := &BrowserComputer{
		tab: tab,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		size: Size{Width: cfg.Width, Height: cfg.Height},
		run:  chromedp.Run,
	}

	setup := []chromedp.Action{chromedp.EmulateViewport(int64(cfg.Width), int64(cfg.Height))}
	if cfg.StartURL != "" {
		setup = append(setup, chromedp.Navigate(cfg.StartURL))
	}
	if err := b.run(tab, setup...); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return b, nil
}

// Close shuts down the tab and allocator.
func (b *BrowserComputer) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *BrowserComputer) Environment() string { return EnvBrowser }

func (b *BrowserComputer) Dimensions() Size { return b.size }

// do runs actions on the tab; ctx only gates whether the call starts.
func (b *BrowserComputer) do(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.run(b.tab, actions...)
}

func (b *BrowserComputer) Screenshot(ctx context.Context) (string, error) {
	var buf []byte
	if err := b.do(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	return media.EncodeBytes(buf), nil
}

func (b *BrowserComputer) Click(ctx context.Context, x, y int, button Button) error {
	name, ok := cdpButtons[button]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidButton, button)
	}
	return b.do(ctx, chromedp.MouseClickXY(float64(x), float64(y), chromedp.Button(name)))
}

func (b *BrowserComputer) DoubleClick(ctx context.Context, x, y int) error {
	return b.do(ctx, chromedp.MouseClickXY(float64(x), float64(y), chromedp.ClickCount(2)))
}

func (b *BrowserComputer) Scroll(ctx context.Context, x, y, scrollX, scrollY int) error {
	return b.do(ctx,
		chromedp.MouseEvent(input.MouseMoved, float64(x), float64(y)),
		input.DispatchMouseEvent(input.MouseWheel, float64(x), float64(y)).
			WithDeltaX(float64(scrollX)).
			WithDeltaY(float64(scrollY)),
	)
}

func (b *BrowserComputer) Type(ctx context.Context, text string) error {
	return b.do(ctx, chromedp.KeyEvent(text))
}

func (b *BrowserComputer) Wait(ctx context.Context, ms int) error {
	return sleepContext(ctx, time.Duration(ms)*time.Millisecond)
}

func (b *BrowserComputer) Move(ctx context.Context, x, y int) error {
	return b.do(ctx, chromedp.MouseEvent(input.MouseMoved, float64(x), float64(y)))
}

func (b *BrowserComputer) Keypress(ctx context.Context, keys []string) error {
	mods, seq := cdpChord(keys)
	if seq == "" {
		return nil
	}
	return b.do(ctx, chromedp.KeyEvent(seq, chromedp.KeyModifiers(mods)))
}

func (b *BrowserComputer) Drag(ctx context.Context, path []Point) error {
	if len(path) == 0 {
		return nil
	}
	start := path[0]
	actions := []chromedp.Action{
		chromedp.MouseEvent(input.MouseMoved, float64(start.X), float64(start.Y)),
		chromedp.MouseEvent(input.MousePressed, float64(start.X), float64(start.Y),
			chromedp.ButtonType(input.Left), chromedp.ClickCount(1)),
	}
	for _, p := range path[1:] {
		actions = append(actions, chromedp.MouseEvent(input.MouseMoved, float64(p.X), float64(p.Y),
			chromedp.ButtonType(input.Left)))
	}
	end := path[len(path)-1]
	actions = append(actions, chromedp.MouseEvent(input.MouseReleased, float64(end.X), float64(end.Y),
		chromedp.ButtonType(input.Left), chromedp.ClickCount(1)))
	return b.do(ctx, actions...)
}
