package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uxlens/uxlens/internal/audit"
)

func TestResolveURLMode(t *testing.T) {
	t.Parallel()

	plan, err := Resolve(Input{Mode: audit.ModeURL, URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, audit.ModeURL, plan.Mode)
	require.Equal(t, "https://example.com", plan.TargetURL)
	require.Empty(t, plan.Uploads)
}

func TestResolvePrefixesScheme(t *testing.T) {
	t.Parallel()

	plan, err := Resolve(Input{Mode: audit.ModeCrawler, URL: "example.com/pricing"})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/pricing", plan.TargetURL)
}

func TestResolveAccessibilityMode(t *testing.T) {
	t.Parallel()

	plan, err := Resolve(Input{Mode: audit.ModeAccessibility, URL: "example.org"})
	require.NoError(t, err)
	require.Equal(t, audit.ModeAccessibility, plan.Mode)
	require.Equal(t, "https://example.org", plan.TargetURL)
}

func TestResolveUploadFallthrough(t *testing.T) {
	t.Parallel()

	// an unrecognized mode with files still resolves to upload
	plan, err := Resolve(Input{
		Mode:    "whatever",
		Uploads: []Upload{{Name: "a.png", Data: []byte{1, 2, 3}}},
	})
	require.NoError(t, err)
	require.Equal(t, audit.ModeUpload, plan.Mode)
	require.Len(t, plan.Uploads, 1)
}

func TestResolveEmptyUploadRejected(t *testing.T) {
	t.Parallel()

	_, err := Resolve(Input{Uploads: []Upload{{Name: "empty.png"}}})
	require.Error(t, err)
	ae := audit.AsError(err)
	require.Equal(t, audit.CodeInvalidInput, ae.Code)
	require.Equal(t, 400, ae.Status)
}

func TestResolveNoInput(t *testing.T) {
	t.Parallel()

	_, err := Resolve(Input{Mode: audit.ModeURL})
	require.Error(t, err)
	ae := audit.AsError(err)
	require.Equal(t, audit.CodeNoInput, ae.Code)
	require.Equal(t, 400, ae.Status)
}

func TestNormalizeTargetRejectsHostlessURL(t *testing.T) {
	t.Parallel()

	_, err := NormalizeTarget("https://")
	require.Error(t, err)
	ae := audit.AsError(err)
	require.Equal(t, audit.CodeInvalidInput, ae.Code)
}

func TestNormalizeTargetTrimsWhitespace(t *testing.T) {
	t.Parallel()

	got, err := NormalizeTarget("  example.com  ")
	require.NoError(t, err)
	require.Equal(t, "https://example.com", got)
}
