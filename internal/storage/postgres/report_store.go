package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/uxlens/uxlens/internal/audit"
)

// ErrReportNotFound is returned when a report ID has no stored row.
var ErrReportNotFound = errors.New("report not found")

// ReportStore persists finished audit reports in Postgres.
type ReportStore struct {
	pool dbPool
}

// NewReportStore constructs a store from an existing pool.
func NewReportStore(pool dbPool) (*ReportStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ReportStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ReportStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveReport inserts a finished report row. The report body is stored as JSONB.
func (s *ReportStore) SaveReport(ctx context.Context, rec audit.StoredReport) error {
	if rec.ID == "" {
		return fmt.Errorf("report id is required")
	}
	body, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	const query = `
INSERT INTO audits (id, user_id, address, analysis, created_at)
VALUES ($1, $2, $3, $4, $5)`

	userID := sql.NullString{String: rec.UserID, Valid: rec.UserID != ""}
	if _, err := s.pool.Exec(ctx, query, rec.ID, userID, rec.Address, body, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// GetReport fetches a stored report by ID.
func (s *ReportStore) GetReport(ctx context.Context, id string) (audit.StoredReport, error) {
	const query = `
SELECT id, COALESCE(user_id, ''), address, analysis, created_at
FROM audits
WHERE id = $1`

	var (
		rec       audit.StoredReport
		body      []byte
		createdAt time.Time
	)
	row := s.pool.QueryRow(ctx, query, id)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Address, &body, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.StoredReport{}, ErrReportNotFound
		}
		return audit.StoredReport{}, fmt.Errorf("select audit: %w", err)
	}
	if err := json.Unmarshal(body, &rec.Report); err != nil {
		return audit.StoredReport{}, fmt.Errorf("unmarshal report: %w", err)
	}
	rec.CreatedAt = createdAt
	return rec, nil
}

// CountAnonymousByAddress counts audits recorded from address with no user.
func (s *ReportStore) CountAnonymousByAddress(ctx context.Context, address string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM audits
WHERE user_id IS NULL AND address = $1`

	var count int
	row := s.pool.QueryRow(ctx, query, address)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count anonymous audits: %w", err)
	}
	return count, nil
}
