package audit

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestErrorWrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := NewError(CodeScreenshotFailed, "Could not capture the website screenshot.", 500, cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "socket closed", err.Reason())
	require.Contains(t, err.Error(), "SCREENSHOT_FAILED")
}

func TestAsErrorPassesThrough(t *testing.T) {
	t.Parallel()

	orig := NewError(CodeNoInput, "No content to analyze", 400, nil)
	wrapped := fmt.Errorf("handler: %w", orig)

	got := AsError(wrapped)
	require.Equal(t, CodeNoInput, got.Code)
	require.Equal(t, 400, got.Status)
}

func TestAsErrorCoercesUnknown(t *testing.T) {
	t.Parallel()

	got := AsError(errors.New("boom"))
	require.Equal(t, CodeServerError, got.Code)
	require.Equal(t, 500, got.Status)
	require.Equal(t, "Analysis failed. Try again.", got.Message)
	require.Equal(t, "boom", got.Reason())
}

func TestPeriodKeyUsesUTCMonth(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+13", 13*3600)
	// local time is already January 1st, but UTC is still December
	local := time.Date(2026, 1, 1, 2, 0, 0, 0, loc)
	require.Equal(t, "2025-12", PeriodKey(local))
}
