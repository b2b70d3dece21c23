// Package quota decides whether a request may start an audit.
package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
)

// Audit limits per plan. A limit of 0 means unlimited.
const (
	GuestAuditLimit = 1
	FreeAuditLimit  = 3
	ProAuditLimit   = 60
)

// Token budgets per audit by tier.
const (
	FreeMaxTokens  = 2000
	ProMaxTokens   = 4000
	UltraMaxTokens = 8000
)

// Ledger evaluates per-identity usage against the tier table. Admission is
// read-only except for the monthly rollover reset; the post-success increment
// belongs to the recorder.
type Ledger struct {
	usage   audit.UsageStore
	reports audit.ReportStore
	clock   audit.Clock
	logger  *zap.Logger
}

// NewLedger constructs a Ledger.
func NewLedger(usage audit.UsageStore, reports audit.ReportStore, clock audit.Clock, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{usage: usage, reports: reports, clock: clock, logger: logger}
}

// Admit returns the quota decision for the identity. A storage failure is
// fatal for the request: admitting blind would allow unbounded free usage.
func (l *Ledger) Admit(ctx context.Context, id audit.Identity) (audit.Decision, error) {
	periodKey := audit.PeriodKey(l.clock.Now())
	if !id.Authenticated {
		return l.admitAnonymous(ctx, id, periodKey)
	}

	rec, err := l.usage.GetOrCreate(ctx, id.UserID, periodKey)
	if err != nil {
		return audit.Decision{}, fmt.Errorf("load usage record: %w", err)
	}
	if rec.PeriodKey != periodKey {
		if err := l.usage.ResetPeriod(ctx, id.UserID, periodKey); err != nil {
			return audit.Decision{}, fmt.Errorf("reset usage period: %w", err)
		}
		l.logger.Info("usage period rolled over",
			zap.String("user_id", id.UserID),
			zap.String("from", rec.PeriodKey),
			zap.String("to", periodKey),
		)
		rec.AuditsUsed = 0
		rec.PeriodKey = periodKey
	}

	limit := AuditLimit(rec.Plan)
	return audit.Decision{
		Allowed:    limit == 0 || rec.AuditsUsed < limit,
		Plan:       rec.Plan,
		Used:       rec.AuditsUsed,
		Limit:      limit,
		TokenLimit: TokenLimit(rec.Plan),
		PeriodKey:  periodKey,
	}, nil
}

func (l *Ledger) admitAnonymous(ctx context.Context, id audit.Identity, periodKey string) (audit.Decision, error) {
	// Anonymous usage has no period boundary: it is recounted from stored
	// reports whose address matches and which carry no identity.
	used, err := l.reports.CountAnonymousByAddress(ctx, id.Address)
	if err != nil {
		return audit.Decision{}, fmt.Errorf("count anonymous usage: %w", err)
	}
	return audit.Decision{
		Allowed:    used < GuestAuditLimit,
		Plan:       audit.PlanGuest,
		Used:       used,
		Limit:      GuestAuditLimit,
		TokenLimit: FreeMaxTokens,
		PeriodKey:  periodKey,
	}, nil
}

// AuditLimit maps a plan to its monthly audit cap; 0 means unlimited.
func AuditLimit(plan audit.Plan) int {
	switch plan {
	case audit.PlanGuest:
		return GuestAuditLimit
	case audit.PlanPro:
		return ProAuditLimit
	case audit.PlanDesign, audit.PlanEnterprise, audit.PlanAgency:
		return 0
	default:
		return FreeAuditLimit
	}
}

// TokenLimit maps a plan to its per-audit token budget.
func TokenLimit(plan audit.Plan) int {
	switch plan {
	case audit.PlanPro:
		return ProMaxTokens
	case audit.PlanDesign, audit.PlanEnterprise, audit.PlanAgency:
		return UltraMaxTokens
	default:
		return FreeMaxTokens
	}
}
