// Package report reconciles untrusted model output into canonical audit
// reports. Everything here is pure and deterministic; upstream shape is never
// trusted past this boundary.
package report

import (
	"fmt"
	"math"

	"github.com/uxlens/uxlens/internal/audit"
)

// Defaults substituted for missing finding fields. A finding is never dropped
// for being malformed.
const (
	defaultTitle    = "Issue Detected"
	defaultIssue    = "No description provided"
	defaultSolution = "No solution provided"
	defaultCategory = "General"
)

// maxHighlights caps the aggregated strengths/weaknesses lists.
const maxHighlights = 3

// titleFromIssueLimit bounds titles derived from the issue text.
const titleFromIssueLimit = 50

// NormalizeFinding coerces one raw model finding into the canonical shape,
// substituting defaults for every missing field and clamping the severity to
// the known set.
func NormalizeFinding(raw audit.RawFinding) audit.Finding {
	issue := firstNonEmpty(raw.Issue, raw.Critique, defaultIssue)
	solution := firstNonEmpty(raw.Solution, raw.Fix, defaultSolution)

	title := raw.Title
	if title == "" {
		if issue != defaultIssue {
			title = truncate(issue, titleFromIssueLimit)
		} else {
			title = defaultTitle
		}
	}

	return audit.Finding{
		Title:    title,
		Issue:    issue,
		Solution: solution,
		Severity: clampSeverity(raw.Severity),
		Category: firstNonEmpty(raw.Category, defaultCategory),
		X:        clampCoord(raw.X),
		Y:        clampCoord(raw.Y),
	}
}

// NormalizeImage converts one raw per-image analysis into an ImageReport.
func NormalizeImage(index int, raw audit.RawImageAnalysis) audit.ImageReport {
	findings := make([]audit.Finding, 0, len(raw.Audit))
	for _, f := range raw.Audit {
		findings = append(findings, NormalizeFinding(f))
	}

	title := raw.UITitle
	if title == "" {
		title = fmt.Sprintf("Screen %d", index+1)
	}

	return audit.ImageReport{
		Index:      index,
		Title:      title,
		Score:      clampInt(roundFloat(raw.Score), 0, 100),
		Metrics:    normalizeMetrics(raw.UXMetrics),
		Strengths:  dropEmpty(raw.Strengths),
		Weaknesses: dropEmpty(raw.Weaknesses),
		Findings:   findings,
	}
}

// Aggregate merges per-image analyses into one report: mean score, mean
// per-dimension metrics, deduplicated capped highlights, and the flattened
// finding list in image order.
func Aggregate(raws []audit.RawImageAnalysis) audit.AuditReport {
	images := make([]audit.ImageReport, len(raws))
	for i, raw := range raws {
		images[i] = NormalizeImage(i, raw)
	}

	var (
		scoreSum   int
		metricSums [5]int
		strengths  []string
		weaknesses []string
		findings   []audit.Finding
	)
	for _, img := range images {
		scoreSum += img.Score
		metricSums[0] += img.Metrics.Clarity
		metricSums[1] += img.Metrics.Efficiency
		metricSums[2] += img.Metrics.Consistency
		metricSums[3] += img.Metrics.Aesthetics
		metricSums[4] += img.Metrics.Accessibility
		strengths = append(strengths, img.Strengths...)
		weaknesses = append(weaknesses, img.Weaknesses...)
		findings = append(findings, img.Findings...)
	}

	n := len(images)
	rep := audit.AuditReport{
		Title:      "Untitled Scan",
		Images:     images,
		Strengths:  dedupeCap(strengths, maxHighlights),
		Weaknesses: dedupeCap(weaknesses, maxHighlights),
		Findings:   findings,
	}
	if n > 0 {
		rep.Title = images[0].Title
		rep.Score = roundMean(scoreSum, n)
		rep.Metrics = audit.Metrics{
			Clarity:       roundMean(metricSums[0], n),
			Efficiency:    roundMean(metricSums[1], n),
			Consistency:   roundMean(metricSums[2], n),
			Aesthetics:    roundMean(metricSums[3], n),
			Accessibility: roundMean(metricSums[4], n),
		}
	}
	return rep
}

func normalizeMetrics(raw map[string]any) audit.Metrics {
	return audit.Metrics{
		Clarity:       metricValue(raw, "clarity"),
		Efficiency:    metricValue(raw, "efficiency"),
		Consistency:   metricValue(raw, "consistency"),
		Aesthetics:    metricValue(raw, "aesthetics"),
		Accessibility: metricValue(raw, "accessibility"),
	}
}

func metricValue(raw map[string]any, key string) int {
	v, ok := raw[key]
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return clampInt(int(math.Round(f)), 0, 10)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func clampSeverity(s string) audit.Severity {
	switch audit.Severity(s) {
	case audit.SeverityCritical, audit.SeverityHigh, audit.SeverityMedium, audit.SeverityLow:
		return audit.Severity(s)
	default:
		return audit.SeverityMedium
	}
}

func clampCoord(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := math.Min(100, math.Max(0, *v))
	return &c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundFloat(f *float64) int {
	if f == nil {
		return 0
	}
	return int(math.Round(*f))
}

func roundMean(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}

// truncate cuts on a rune boundary so multi-byte titles stay valid UTF-8.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dropEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dedupeCap(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, limit)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
