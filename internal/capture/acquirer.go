// Package capture turns URLs into rendered raster images with bounded retry.
package capture

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
	"github.com/uxlens/uxlens/internal/metrics"
)

// Config sets the retry budgets for the two capture profiles.
type Config struct {
	MinBytes      int
	Attempts      int
	Delay         time.Duration
	CrawlAttempts int
	CrawlDelay    time.Duration
}

// Acquirer wraps a Renderer with validity checks and retry budgets. Crawl-mode
// captures use a shorter budget so multi-page requests stay inside the request
// deadline.
type Acquirer struct {
	renderer audit.Renderer
	single   RetryPolicy
	crawl    RetryPolicy
	logger   *zap.Logger
}

// New constructs an Acquirer.
func New(renderer audit.Renderer, cfg Config, logger *zap.Logger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	valid := func(data []byte) bool { return len(data) > cfg.MinBytes }
	return &Acquirer{
		renderer: renderer,
		single: RetryPolicy{
			MaxAttempts: cfg.Attempts,
			Delay:       cfg.Delay,
			Valid:       valid,
		},
		crawl: RetryPolicy{
			MaxAttempts: cfg.CrawlAttempts,
			Delay:       cfg.CrawlDelay,
			Valid:       valid,
		},
		logger: logger,
	}
}

// Capture renders url with the single-page retry profile.
func (a *Acquirer) Capture(ctx context.Context, url string) (audit.CapturedImage, error) {
	return a.capture(ctx, url, a.single, "single")
}

// CaptureCrawl renders url with the shorter crawl retry profile.
func (a *Acquirer) CaptureCrawl(ctx context.Context, url string) (audit.CapturedImage, error) {
	return a.capture(ctx, url, a.crawl, "crawl")
}

func (a *Acquirer) capture(ctx context.Context, url string, policy RetryPolicy, profile string) (audit.CapturedImage, error) {
	start := time.Now()
	data, mime, err := policy.Run(ctx, func(ctx context.Context) ([]byte, string, error) {
		return a.renderer.Render(ctx, url)
	})
	if err != nil {
		metrics.ObserveCapture(profile, "failed")
		a.logger.Warn("capture failed",
			zap.String("url", url),
			zap.String("profile", profile),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return audit.CapturedImage{}, fmt.Errorf("capture %s: %w", url, err)
	}
	metrics.ObserveCapture(profile, "ok")
	a.logger.Debug("capture succeeded",
		zap.String("url", url),
		zap.String("profile", profile),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	img := audit.CapturedImage{
		Data:      data,
		MimeType:  mime,
		SourceURL: url,
	}
	// Hosted renderers serve the capture at a stable URL; use it as the
	// report's public image link when available.
	if pu, ok := a.renderer.(interface{ ShotURL(string) string }); ok {
		img.PublicURL = pu.ShotURL(url)
	}
	return img, nil
}
