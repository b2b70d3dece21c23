package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultMshotsEndpoint = "https://s0.wp.com/mshots/v1"

// MshotsConfig controls the hosted screenshot service renderer.
type MshotsConfig struct {
	Endpoint string
	Width    int
	Height   int
	Timeout  time.Duration
}

// MshotsRenderer renders pages through the WordPress mshots raster service.
// The service returns a placeholder image while the real capture is still
// being generated, which is why the acquirer's minimum-size validity check
// and retry delay exist.
type MshotsRenderer struct {
	cfg    MshotsConfig
	client *http.Client
}

// NewMshots builds an MshotsRenderer.
func NewMshots(cfg MshotsConfig) *MshotsRenderer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultMshotsEndpoint
	}
	if cfg.Width <= 0 {
		cfg.Width = 1024
	}
	if cfg.Height <= 0 {
		cfg.Height = 768
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MshotsRenderer{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Render fetches a raster of target and returns the bytes as-is. Payload
// validity is the caller's concern.
func (r *MshotsRenderer) Render(ctx context.Context, target string) ([]byte, string, error) {
	shotURL := fmt.Sprintf("%s/%s?w=%d&h=%d",
		r.cfg.Endpoint, url.QueryEscape(target), r.cfg.Width, r.cfg.Height)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shotURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build mshots request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("mshots request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("mshots returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read mshots body: %w", err)
	}
	return data, "image/jpeg", nil
}

// ShotURL returns the externally addressable capture URL for target. The
// service serves the same raster at this URL once generated, so it doubles as
// the report's public image link.
func (r *MshotsRenderer) ShotURL(target string) string {
	return fmt.Sprintf("%s/%s?w=%d&h=%d",
		r.cfg.Endpoint, url.QueryEscape(target), r.cfg.Width, r.cfg.Height)
}
