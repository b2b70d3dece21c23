// Package audit defines core types shared across subsystems.
package audit

import "time"

// Mode selects how the input artifact is acquired.
type Mode string

// Acquisition modes accepted by the audit endpoint.
const (
	ModeUpload        Mode = "upload"
	ModeURL           Mode = "url"
	ModeAccessibility Mode = "accessibility"
	ModeCrawler       Mode = "crawler"
)

// Framework names the heuristic lens used to evaluate the captured pages.
type Framework string

// Supported evaluation frameworks.
const (
	FrameworkNielsen Framework = "nielsen"
	FrameworkWCAG    Framework = "wcag"
	FrameworkVisual  Framework = "visual"
)

// Plan is a billing tier attached to a usage record.
type Plan string

// Plans recognized by the quota ledger.
const (
	PlanGuest      Plan = "guest"
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanDesign     Plan = "design"
	PlanEnterprise Plan = "enterprise"
	PlanAgency     Plan = "agency"
)

// Severity grades a single finding.
type Severity string

// Severity levels in decreasing order of urgency.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Identity describes who is making the request. An unauthenticated caller is
// tracked by originating network address only.
type Identity struct {
	UserID        string
	Authenticated bool
	Address       string
}

// UsageRecord is the per-identity quota row, scoped to a calendar month.
type UsageRecord struct {
	UserID     string
	Plan       Plan
	AuditsUsed int
	PeriodKey  string
	TokenLimit int
}

// Decision is the quota ledger's admit/reject verdict.
type Decision struct {
	Allowed    bool
	Plan       Plan
	Used       int
	Limit      int // 0 means unlimited
	TokenLimit int
	PeriodKey  string
}

// CapturedImage is one rendered or uploaded raster, immutable once acquired.
type CapturedImage struct {
	Data      []byte
	MimeType  string
	SourceURL string // page the raster was rendered from, empty for uploads
	PublicURL string // externally addressable copy, empty when blob upload is unavailable
}

// Finding is one reported usability issue after normalization.
type Finding struct {
	Title    string   `json:"title"`
	Issue    string   `json:"issue"`
	Solution string   `json:"solution"`
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	X        *float64 `json:"x,omitempty"` // normalized [0,100]
	Y        *float64 `json:"y,omitempty"` // normalized [0,100]
}

// Metrics holds the five fixed UX dimensions, each 0-10.
type Metrics struct {
	Clarity       int `json:"clarity"`
	Efficiency    int `json:"efficiency"`
	Consistency   int `json:"consistency"`
	Aesthetics    int `json:"aesthetics"`
	Accessibility int `json:"accessibility"`
}

// ImageReport is the normalized analysis of a single captured image.
type ImageReport struct {
	Index      int       `json:"index"`
	Title      string    `json:"title"`
	Score      int       `json:"score"`
	Metrics    Metrics   `json:"ux_metrics"`
	Strengths  []string  `json:"key_strengths"`
	Weaknesses []string  `json:"key_weaknesses"`
	Findings   []Finding `json:"audit"`
}

// AuditReport is the merged result of one request.
type AuditReport struct {
	ID         string        `json:"id,omitempty"`
	Title      string        `json:"ui_title"`
	Score      int           `json:"score"`
	Metrics    Metrics       `json:"ux_metrics"`
	Strengths  []string      `json:"key_strengths"`
	Weaknesses []string      `json:"key_weaknesses"`
	Images     []ImageReport `json:"images"`
	// Findings is the flattened per-image list kept for consumers that expect
	// a single audit array.
	Findings  []Finding `json:"audit"`
	Framework Framework `json:"framework"`
	ImageURL  string    `json:"image_url,omitempty"`
	TargetURL string    `json:"target_url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// StoredReport wraps a persisted report with its ownership columns.
type StoredReport struct {
	ID        string
	UserID    string // empty for anonymous
	Address   string
	Report    AuditReport
	CreatedAt time.Time
}

// RawImageAnalysis is the untrusted per-image model output before
// normalization. Every field is optional; the normalizer owns defaulting.
type RawImageAnalysis struct {
	Score      *float64       `json:"score"`
	UITitle    string         `json:"ui_title"`
	UXMetrics  map[string]any `json:"ux_metrics"`
	Strengths  []string       `json:"key_strengths"`
	Weaknesses []string       `json:"key_weaknesses"`
	Audit      []RawFinding   `json:"audit"`
}

// RawFinding mirrors one model-produced issue before defaulting.
type RawFinding struct {
	Title    string   `json:"title"`
	Issue    string   `json:"issue"`
	Solution string   `json:"solution"`
	Critique string   `json:"critique"` // superseded field name, still honored
	Fix      string   `json:"fix"`      // superseded field name, still honored
	Severity string   `json:"severity"`
	Category string   `json:"category"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
}
