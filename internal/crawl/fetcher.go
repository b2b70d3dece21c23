// Package crawl discovers and captures a bounded set of same-origin pages.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// MarkupFetcher retrieves a page's HTML for link discovery.
type MarkupFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherConfig controls the seed-page collector.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// CollyFetcher fetches seed markup with a Colly collector. Discovery is a
// single best-effort GET with no robots handling; the capture step owns
// retrying.
type CollyFetcher struct {
	cfg  FetcherConfig
	base *colly.Collector
}

// NewCollyFetcher builds a CollyFetcher.
func NewCollyFetcher(cfg FetcherConfig) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &CollyFetcher{cfg: cfg, base: c}
}

// Fetch executes a single HTTP GET and returns the response body.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("seed fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("colly visit failed: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("colly response failed: %w", fetchErr)
		}
		return body, nil
	}
}
