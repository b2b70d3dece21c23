package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ChromedpConfig controls the local headless-browser renderer.
type ChromedpConfig struct {
	MaxParallel       int
	UserAgent         string
	Width             int64
	Height            int64
	NavigationTimeout time.Duration
}

// ChromedpRenderer renders pages with a local headless Chrome instead of the
// hosted raster service. Sessions are bounded by a semaphore because each
// chromedp tab holds a browser process slot.
type ChromedpRenderer struct {
	cfg         ChromedpConfig
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a renderer backed by a shared Chrome exec allocator.
func NewChromedp(cfg ChromedpConfig) (*ChromedpRenderer, error) {
	if cfg.MaxParallel <= 0 {
		return nil, fmt.Errorf("max parallel must be > 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.Width <= 0 {
		cfg.Width = 1024
	}
	if cfg.Height <= 0 {
		cfg.Height = 768
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpRenderer{
		cfg:         cfg,
		limiter:     make(chan struct{}, cfg.MaxParallel),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (r *ChromedpRenderer) Close() {
	r.allocCancel()
}

// Render navigates to url and returns a PNG screenshot of the viewport.
func (r *ChromedpRenderer) Render(ctx context.Context, url string) ([]byte, string, error) {
	select {
	case r.limiter <- struct{}{}:
	case <-ctx.Done():
		return nil, "", fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
	defer func() { <-r.limiter }()

	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavigationTimeout)
	defer cancel()

	var shot []byte
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(r.cfg.Width, r.cfg.Height, 1, false),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.CaptureScreenshot(&shot),
	}
	if r.cfg.UserAgent != "" {
		actions = append([]chromedp.Action{
			emulation.SetUserAgentOverride(r.cfg.UserAgent),
		}, actions...)
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, "", fmt.Errorf("chromedp run: %w", err)
	}
	return shot, "image/png", nil
}
