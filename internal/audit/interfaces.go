package audit

import (
	"context"
	"net/http"
	"time"
)

// Renderer converts a URL into raster bytes via an external capture capability.
// It returns the image bytes and their mime type.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, string, error)
}

// VisionModel runs one inference call over a prompt plus a single image.
type VisionModel interface {
	Infer(ctx context.Context, prompt string, image CapturedImage) (string, error)
}

// UsageStore persists per-identity usage rows with conflict-safe semantics.
type UsageStore interface {
	// GetOrCreate returns the usage row for the user, creating it with the
	// default plan and zero usage when absent.
	GetOrCreate(ctx context.Context, userID, periodKey string) (UsageRecord, error)
	// ResetPeriod zeroes audits_used and moves the row to periodKey. The
	// update must be a no-op when the stored period already matches.
	ResetPeriod(ctx context.Context, userID, periodKey string) error
	// Increment adds one to audits_used via an atomic update.
	Increment(ctx context.Context, userID string) error
}

// ReportStore persists finished audit reports.
type ReportStore interface {
	SaveReport(ctx context.Context, rec StoredReport) error
	GetReport(ctx context.Context, id string) (StoredReport, error)
	// CountAnonymousByAddress counts stored reports with the given
	// originating address and no associated identity.
	CountAnonymousByAddress(ctx context.Context, address string) (int, error)
}

// BlobStore writes raw artifacts and returns an externally addressable URL.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// SessionProvider resolves the caller's identity for a request.
type SessionProvider interface {
	Session(r *http.Request) Identity
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces report IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// PeriodKey formats t as the calendar-month token used for quota rollover.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
