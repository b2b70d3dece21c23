package capture

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedRenderer struct {
	payloads [][]byte
	err      error
	calls    int
}

func (r *scriptedRenderer) Render(_ context.Context, _ string) ([]byte, string, error) {
	defer func() { r.calls++ }()
	if r.err != nil {
		return nil, "", r.err
	}
	i := r.calls
	if i >= len(r.payloads) {
		i = len(r.payloads) - 1
	}
	return r.payloads[i], "image/jpeg", nil
}

type linkedRenderer struct {
	scriptedRenderer
}

func (r *linkedRenderer) ShotURL(target string) string {
	return "https://shots.example/" + target
}

func TestCaptureRetriesUntilValid(t *testing.T) {
	t.Parallel()

	placeholder := []byte("tiny")
	full := []byte(strings.Repeat("x", 100))
	renderer := &scriptedRenderer{payloads: [][]byte{placeholder, placeholder, full}}

	acq := New(renderer, Config{MinBytes: 50, Attempts: 5, CrawlAttempts: 4}, nil)

	img, err := acq.Capture(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, 3, renderer.calls)
	require.Equal(t, full, img.Data)
	require.Equal(t, "image/jpeg", img.MimeType)
	require.Equal(t, "https://example.com", img.SourceURL)
	require.Empty(t, img.PublicURL)
}

func TestCaptureFailsAfterBudget(t *testing.T) {
	t.Parallel()

	renderer := &scriptedRenderer{err: errors.New("unreachable")}
	acq := New(renderer, Config{MinBytes: 50, Attempts: 5, CrawlAttempts: 4}, nil)

	_, err := acq.Capture(context.Background(), "https://example.com")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoValidCapture)
	require.Equal(t, 5, renderer.calls)
}

func TestCaptureCrawlUsesShorterBudget(t *testing.T) {
	t.Parallel()

	renderer := &scriptedRenderer{err: errors.New("unreachable")}
	acq := New(renderer, Config{MinBytes: 50, Attempts: 5, CrawlAttempts: 4}, nil)

	_, err := acq.CaptureCrawl(context.Background(), "https://example.com")
	require.Error(t, err)
	require.Equal(t, 4, renderer.calls)
}

func TestCaptureAdoptsRendererShotURL(t *testing.T) {
	t.Parallel()

	renderer := &linkedRenderer{scriptedRenderer{payloads: [][]byte{[]byte(strings.Repeat("x", 100))}}}
	acq := New(renderer, Config{MinBytes: 50, Attempts: 5, CrawlAttempts: 4}, nil)

	img, err := acq.Capture(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "https://shots.example/https://example.com", img.PublicURL)
}
