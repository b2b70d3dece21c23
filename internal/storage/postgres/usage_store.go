// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uxlens/uxlens/internal/audit"
)

// PoolConfig controls the Postgres connection pool shared by the stores.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// NewPool builds a pgx pool from the provided config.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// UsageStore persists per-user quota rows in Postgres.
type UsageStore struct {
	pool dbPool
}

// NewUsageStore constructs a store from an existing pool.
func NewUsageStore(pool dbPool) (*UsageStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &UsageStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *UsageStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// GetOrCreate returns the usage row for userID, inserting a fresh free-plan
// row for periodKey when none exists yet.
func (s *UsageStore) GetOrCreate(ctx context.Context, userID, periodKey string) (audit.UsageRecord, error) {
	if userID == "" {
		return audit.UsageRecord{}, fmt.Errorf("user id is required")
	}
	const query = `
INSERT INTO usage_records (user_id, plan, audits_used, period_key)
VALUES ($1, 'free', 0, $2)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING user_id, plan, audits_used, period_key, COALESCE(token_limit, 0)`

	var rec audit.UsageRecord
	var plan string
	row := s.pool.QueryRow(ctx, query, userID, periodKey)
	if err := row.Scan(&rec.UserID, &plan, &rec.AuditsUsed, &rec.PeriodKey, &rec.TokenLimit); err != nil {
		return audit.UsageRecord{}, fmt.Errorf("get or create usage: %w", err)
	}
	rec.Plan = audit.Plan(plan)
	return rec, nil
}

// ResetPeriod zeroes audits_used and advances the row to periodKey. Rows
// already on periodKey are left untouched, so a concurrent reset is a no-op.
func (s *UsageStore) ResetPeriod(ctx context.Context, userID, periodKey string) error {
	const query = `
UPDATE usage_records
SET audits_used = 0, period_key = $2
WHERE user_id = $1 AND period_key <> $2`

	if _, err := s.pool.Exec(ctx, query, userID, periodKey); err != nil {
		return fmt.Errorf("reset usage period: %w", err)
	}
	return nil
}

// Increment adds one to audits_used atomically.
func (s *UsageStore) Increment(ctx context.Context, userID string) error {
	const query = `
UPDATE usage_records
SET audits_used = audits_used + 1
WHERE user_id = $1`

	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}
