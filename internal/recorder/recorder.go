// Package recorder persists finished reports and records usage.
package recorder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
)

// CompletedTopic is the event topic for finished audits.
const CompletedTopic = "audit.completed"

// CompletedEvent is the payload published after a successful audit.
type CompletedEvent struct {
	ReportID  string `json:"report_id"`
	UserID    string `json:"user_id,omitempty"`
	Framework string `json:"framework"`
	Score     int    `json:"score"`
	Images    int    `json:"images"`
	CreatedAt string `json:"created_at"`
}

// Recorder writes finished audits to the report store, bumps the caller's
// usage counter, and emits a completion event. Persistence and event
// failures are logged but never fail the audit itself.
type Recorder struct {
	reports   audit.ReportStore
	usage     audit.UsageStore
	publisher audit.Publisher
	ids       audit.IDGenerator
	clock     audit.Clock
	topic     string
	logger    *zap.Logger
}

// New builds a Recorder. An empty topic falls back to CompletedTopic.
func New(reports audit.ReportStore, usage audit.UsageStore, publisher audit.Publisher, ids audit.IDGenerator, clock audit.Clock, topic string, logger *zap.Logger) *Recorder {
	if topic == "" {
		topic = CompletedTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		reports:   reports,
		usage:     usage,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		topic:     topic,
		logger:    logger,
	}
}

// Record persists the report and, for authenticated callers, increments the
// usage counter. The returned report carries the assigned ID and timestamp.
// The report is returned even when persistence fails, so a storage outage
// degrades history rather than the audit itself.
func (r *Recorder) Record(ctx context.Context, id audit.Identity, report audit.AuditReport) audit.AuditReport {
	reportID, err := r.ids.NewID()
	if err != nil {
		r.logger.Error("generate report id", zap.Error(err))
		return report
	}
	now := r.clock.Now()
	report.ID = reportID
	report.CreatedAt = now

	stored := audit.StoredReport{
		ID:        reportID,
		Address:   id.Address,
		Report:    report,
		CreatedAt: now,
	}
	if id.Authenticated {
		stored.UserID = id.UserID
	}

	if err := r.reports.SaveReport(ctx, stored); err != nil {
		r.logger.Error("save report", zap.String("report_id", reportID), zap.Error(err))
		return report
	}

	if id.Authenticated {
		if err := r.usage.Increment(ctx, id.UserID); err != nil {
			r.logger.Error("increment usage", zap.String("user_id", id.UserID), zap.Error(err))
		}
	}

	event := CompletedEvent{
		ReportID:  reportID,
		UserID:    stored.UserID,
		Framework: string(report.Framework),
		Score:     report.Score,
		Images:    len(report.Images),
		CreatedAt: now.Format(time.RFC3339),
	}
	if _, err := r.publisher.Publish(ctx, r.topic, event); err != nil {
		r.logger.Warn("publish completion event", zap.String("report_id", reportID), zap.Error(err))
	}

	return report
}
