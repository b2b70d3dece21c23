package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/uxlens/uxlens/internal/audit"
)

func TestGetOrCreateReturnsExistingRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUsageStore(mock)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"user_id", "plan", "audits_used", "period_key", "token_limit"}).
		AddRow("u1", "pro", 12, "2025-03", 4000)
	mock.ExpectQuery("INSERT INTO usage_records").
		WithArgs("u1", "2025-03").
		WillReturnRows(rows)

	rec, err := store.GetOrCreate(context.Background(), "u1", "2025-03")
	require.NoError(t, err)
	require.Equal(t, audit.UsageRecord{
		UserID:     "u1",
		Plan:       audit.PlanPro,
		AuditsUsed: 12,
		PeriodKey:  "2025-03",
		TokenLimit: 4000,
	}, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateRequiresUserID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUsageStore(mock)
	require.NoError(t, err)

	_, err = store.GetOrCreate(context.Background(), "", "2025-03")
	require.Error(t, err)
}

func TestResetPeriodGuardsMatchingPeriod(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUsageStore(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE usage_records").
		WithArgs("u1", "2025-04").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.ResetPeriod(context.Background(), "u1", "2025-04"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementUpdatesCounter(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUsageStore(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE usage_records").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Increment(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
