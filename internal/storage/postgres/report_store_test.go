package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/uxlens/uxlens/internal/audit"
)

func TestSaveReportInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := audit.StoredReport{
		ID:      "uuid-v7",
		UserID:  "u1",
		Address: "203.0.113.7",
		Report: audit.AuditReport{
			Title:     "Home",
			Score:     82,
			Framework: audit.FrameworkNielsen,
		},
		CreatedAt: now,
	}
	body, err := json.Marshal(rec.Report)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audits").
		WithArgs(rec.ID, sql.NullString{String: "u1", Valid: true}, rec.Address, body, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveReport(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReportAnonymousStoresNullUser(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := audit.StoredReport{ID: "r1", Address: "203.0.113.7", CreatedAt: now}
	body, err := json.Marshal(rec.Report)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audits").
		WithArgs("r1", sql.NullString{}, "203.0.113.7", body, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveReport(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReportRoundTrip(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	report := audit.AuditReport{Title: "Pricing", Score: 74}
	body, err := json.Marshal(report)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id", "user_id", "address", "analysis", "created_at"}).
		AddRow("r1", "u1", "203.0.113.7", body, now)
	mock.ExpectQuery("SELECT (.+) FROM audits").
		WithArgs("r1").
		WillReturnRows(rows)

	got, err := store.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", got.ID)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, "Pricing", got.Report.Title)
	require.Equal(t, 74, got.Report.Score)
	require.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReportNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM audits").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetReport(context.Background(), "missing")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestCountAnonymousByAddress(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStore(mock)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"count"}).AddRow(2)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("203.0.113.7").
		WillReturnRows(rows)

	count, err := store.CountAnonymousByAddress(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
