package report

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/uxlens/uxlens/internal/audit"
)

func floatPtr(f float64) *float64 { return &f }

func TestNormalizeFindingDefaultsEveryField(t *testing.T) {
	t.Parallel()

	got := NormalizeFinding(audit.RawFinding{})

	require.Equal(t, "Issue Detected", got.Title)
	require.Equal(t, "No description provided", got.Issue)
	require.Equal(t, "No solution provided", got.Solution)
	require.Equal(t, audit.SeverityMedium, got.Severity)
	require.Equal(t, "General", got.Category)
	require.Nil(t, got.X)
	require.Nil(t, got.Y)
}

func TestNormalizeFindingHonorsSupersededFieldNames(t *testing.T) {
	t.Parallel()

	got := NormalizeFinding(audit.RawFinding{
		Critique: "Button contrast is poor",
		Fix:      "Darken the button background",
	})

	require.Equal(t, "Button contrast is poor", got.Issue)
	require.Equal(t, "Darken the button background", got.Solution)
	require.Equal(t, "Button contrast is poor", got.Title)
}

func TestNormalizeFindingTitleDerivedFromLongIssue(t *testing.T) {
	t.Parallel()

	issue := "The primary navigation contains eleven items which overwhelms first-time visitors"
	got := NormalizeFinding(audit.RawFinding{Issue: issue})

	require.Equal(t, issue[:50]+"...", got.Title)
	require.Equal(t, issue, got.Issue)
}

func TestNormalizeFindingTitleTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	issue := strings.Repeat("ü", 60)
	got := NormalizeFinding(audit.RawFinding{Issue: issue})

	require.True(t, utf8.ValidString(got.Title))
	require.Equal(t, strings.Repeat("ü", 50)+"...", got.Title)
}

func TestNormalizeFindingClampsCoordinatesAndSeverity(t *testing.T) {
	t.Parallel()

	got := NormalizeFinding(audit.RawFinding{
		Title:    "t",
		Severity: "catastrophic",
		X:        floatPtr(150),
		Y:        floatPtr(-3),
	})

	require.Equal(t, audit.SeverityMedium, got.Severity)
	require.Equal(t, 100.0, *got.X)
	require.Equal(t, 0.0, *got.Y)
}

func TestNormalizeImageDefaults(t *testing.T) {
	t.Parallel()

	got := NormalizeImage(2, audit.RawImageAnalysis{})

	require.Equal(t, 2, got.Index)
	require.Equal(t, "Screen 3", got.Title)
	require.Equal(t, 0, got.Score)
	require.Equal(t, audit.Metrics{}, got.Metrics)
	require.Empty(t, got.Strengths)
	require.Empty(t, got.Findings)
}

func TestNormalizeImageClampsScoreAndMetrics(t *testing.T) {
	t.Parallel()

	got := NormalizeImage(0, audit.RawImageAnalysis{
		Score:   floatPtr(142.4),
		UITitle: "Checkout",
		UXMetrics: map[string]any{
			"clarity":       12.0,
			"efficiency":    7.6,
			"consistency":   -2.0,
			"aesthetics":    "high",
			"accessibility": 5.0,
		},
	})

	require.Equal(t, 100, got.Score)
	require.Equal(t, "Checkout", got.Title)
	require.Equal(t, audit.Metrics{
		Clarity:       10,
		Efficiency:    8,
		Consistency:   0,
		Aesthetics:    0,
		Accessibility: 5,
	}, got.Metrics)
}

func TestAggregateEmptyBatch(t *testing.T) {
	t.Parallel()

	got := Aggregate(nil)

	require.Equal(t, "Untitled Scan", got.Title)
	require.Equal(t, 0, got.Score)
	require.Empty(t, got.Images)
	require.Empty(t, got.Findings)
}

func TestAggregateMeansAndFlattening(t *testing.T) {
	t.Parallel()

	raws := []audit.RawImageAnalysis{
		{
			Score:     floatPtr(80),
			UITitle:   "Home",
			UXMetrics: map[string]any{"clarity": 8.0, "efficiency": 6.0},
			Strengths: []string{"Clear CTA", "Good spacing"},
			Audit:     []audit.RawFinding{{Title: "A"}},
		},
		{
			Score:     floatPtr(70),
			UITitle:   "Pricing",
			UXMetrics: map[string]any{"clarity": 5.0, "efficiency": 9.0},
			Strengths: []string{"Clear CTA", "Readable table", "Good contrast"},
			Audit:     []audit.RawFinding{{Title: "B"}, {Title: "C"}},
		},
	}

	got := Aggregate(raws)

	require.Equal(t, "Home", got.Title)
	require.Equal(t, 75, got.Score)
	require.Equal(t, 7, got.Metrics.Clarity)
	require.Equal(t, 8, got.Metrics.Efficiency)
	require.Len(t, got.Images, 2)

	// duplicates collapse and the cap holds
	require.Equal(t, []string{"Clear CTA", "Good spacing", "Readable table"}, got.Strengths)

	// flattened findings keep image order
	require.Len(t, got.Findings, 3)
	require.Equal(t, "A", got.Findings[0].Title)
	require.Equal(t, "B", got.Findings[1].Title)
	require.Equal(t, "C", got.Findings[2].Title)
}

func TestAggregateRoundsMeanScore(t *testing.T) {
	t.Parallel()

	raws := []audit.RawImageAnalysis{
		{Score: floatPtr(70)},
		{Score: floatPtr(71)},
	}

	got := Aggregate(raws)
	require.Equal(t, 71, got.Score)
}
