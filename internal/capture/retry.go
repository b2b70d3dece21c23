package capture

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoValidCapture is returned when every attempt in the budget failed or
// produced an invalid payload.
var ErrNoValidCapture = errors.New("no valid capture within retry budget")

// RetryPolicy is a bounded-attempt loop with a fixed inter-attempt delay and
// a payload validity predicate. Per-attempt errors are swallowed and count
// against the budget; only context cancellation aborts early.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Valid       func([]byte) bool
}

// Run executes attempt until it yields a valid payload or the budget is
// exhausted. The delay is applied before every attempt after the first.
func (p RetryPolicy) Run(ctx context.Context, attempt func(context.Context) ([]byte, string, error)) ([]byte, string, error) {
	var lastErr error
	for i := 0; i < p.MaxAttempts; i++ {
		if i > 0 {
			if err := sleep(ctx, p.Delay); err != nil {
				return nil, "", err
			}
		}
		data, mime, err := attempt(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if p.Valid != nil && !p.Valid(data) {
			lastErr = fmt.Errorf("payload of %d bytes failed validity check", len(data))
			continue
		}
		return data, mime, nil
	}
	if lastErr != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNoValidCapture, lastErr)
	}
	return nil, "", ErrNoValidCapture
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait canceled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
