// Package memory provides in-memory storage implementations, primarily
// for local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/uxlens/uxlens/internal/audit"
)

// UsageStore keeps per-user usage records in memory.
type UsageStore struct {
	mu      sync.RWMutex
	records map[string]*audit.UsageRecord
}

// NewUsageStore creates an empty in-memory usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{records: make(map[string]*audit.UsageRecord)}
}

// GetOrCreate returns the usage record for userID, creating a fresh
// free-plan record for the given period when none exists.
func (s *UsageStore) GetOrCreate(ctx context.Context, userID, periodKey string) (audit.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		return *rec, nil
	}

	rec := &audit.UsageRecord{
		UserID:    userID,
		Plan:      audit.PlanFree,
		PeriodKey: periodKey,
	}
	s.records[userID] = rec
	return *rec, nil
}

// ResetPeriod zeroes the usage counter and advances the record to periodKey.
func (s *UsageStore) ResetPeriod(ctx context.Context, userID, periodKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || rec.PeriodKey == periodKey {
		return nil
	}
	rec.AuditsUsed = 0
	rec.PeriodKey = periodKey
	return nil
}

// Increment adds one to the usage counter for userID.
func (s *UsageStore) Increment(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		rec.AuditsUsed++
	}
	return nil
}

// SetPlan assigns a plan to userID, creating the record if needed. It is
// a development helper for exercising paid tiers without a billing system.
func (s *UsageStore) SetPlan(ctx context.Context, userID string, plan audit.Plan, periodKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		rec = &audit.UsageRecord{UserID: userID, PeriodKey: periodKey}
		s.records[userID] = rec
	}
	rec.Plan = plan
	return nil
}
