package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
	publishermemory "github.com/uxlens/uxlens/internal/publisher/memory"
	"github.com/uxlens/uxlens/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type staticIDs struct{ id string }

func (g staticIDs) NewID() (string, error) { return g.id, nil }

type failingReportStore struct {
	memory.ReportStore
}

func (s *failingReportStore) SaveReport(context.Context, audit.StoredReport) error {
	return errors.New("db down")
}

func TestRecordPersistsAndIncrements(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	reports := memory.NewReportStore()
	usage := memory.NewUsageStore()
	publisher := publishermemory.New()
	ctx := context.Background()

	_, err := usage.GetOrCreate(ctx, "u1", "2025-03")
	require.NoError(t, err)

	rec := New(reports, usage, publisher, staticIDs{id: "report-1"}, fixedClock{now: now}, "", zap.NewNop())

	report := rec.Record(ctx, audit.Identity{UserID: "u1", Authenticated: true, Address: "203.0.113.7"},
		audit.AuditReport{Title: "Home", Score: 82, Framework: audit.FrameworkNielsen})

	require.Equal(t, "report-1", report.ID)
	require.Equal(t, now, report.CreatedAt)

	stored, err := reports.GetReport(ctx, "report-1")
	require.NoError(t, err)
	require.Equal(t, "u1", stored.UserID)
	require.Equal(t, "203.0.113.7", stored.Address)

	usageRec, err := usage.GetOrCreate(ctx, "u1", "2025-03")
	require.NoError(t, err)
	require.Equal(t, 1, usageRec.AuditsUsed)

	events := publisher.EventsFor(CompletedTopic)
	require.Len(t, events, 1)
	event := events[0].Payload.(CompletedEvent)
	require.Equal(t, "report-1", event.ReportID)
	require.Equal(t, "u1", event.UserID)
	require.Equal(t, 82, event.Score)
}

func TestRecordAnonymousSkipsIncrement(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	reports := memory.NewReportStore()
	usage := memory.NewUsageStore()
	ctx := context.Background()

	rec := New(reports, usage, publishermemory.New(), staticIDs{id: "report-2"}, fixedClock{now: now}, "", zap.NewNop())

	rec.Record(ctx, audit.Identity{Address: "203.0.113.7"}, audit.AuditReport{Score: 60})

	stored, err := reports.GetReport(ctx, "report-2")
	require.NoError(t, err)
	require.Empty(t, stored.UserID)

	count, err := reports.CountAnonymousByAddress(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRecordSurvivesStoreFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	usage := memory.NewUsageStore()
	publisher := publishermemory.New()
	ctx := context.Background()

	_, err := usage.GetOrCreate(ctx, "u1", "2025-03")
	require.NoError(t, err)

	rec := New(&failingReportStore{}, usage, publisher, staticIDs{id: "report-3"}, fixedClock{now: now}, "", zap.NewNop())

	report := rec.Record(ctx, audit.Identity{UserID: "u1", Authenticated: true},
		audit.AuditReport{Score: 70})

	// the report is still returned with its ID
	require.Equal(t, "report-3", report.ID)

	// but usage is not charged and no event goes out
	usageRec, err := usage.GetOrCreate(ctx, "u1", "2025-03")
	require.NoError(t, err)
	require.Equal(t, 0, usageRec.AuditsUsed)
	require.Empty(t, publisher.Events())
}
