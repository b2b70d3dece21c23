package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/uxlens/uxlens/internal/audit"
)

// ErrReportNotFound is returned when a report ID has no stored row.
var ErrReportNotFound = errors.New("report not found")

// ReportStore keeps finished reports in memory.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]audit.StoredReport
}

// NewReportStore creates an empty in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]audit.StoredReport)}
}

// SaveReport stores the report keyed by its ID.
func (s *ReportStore) SaveReport(ctx context.Context, rec audit.StoredReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[rec.ID] = rec
	return nil
}

// GetReport fetches a stored report by ID.
func (s *ReportStore) GetReport(ctx context.Context, id string) (audit.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.reports[id]
	if !ok {
		return audit.StoredReport{}, ErrReportNotFound
	}
	return rec, nil
}

// CountAnonymousByAddress counts stored reports originating from address
// with no associated user.
func (s *ReportStore) CountAnonymousByAddress(ctx context.Context, address string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.reports {
		if rec.UserID == "" && rec.Address == address {
			count++
		}
	}
	return count, nil
}
