// Package wait provides context-aware sleeping and bounded polling with
// exponential backoff. All waits are cancellable suspension points.
package wait

import (
	"context"
	"time"
)

// Backoff controls the delay between poll attempts. The delay starts at
// Initial and doubles after every attempt up to Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff polls quickly at first and settles at half a second.
var DefaultBackoff = Backoff{
	Initial: 100 * time.Millisecond,
	Max:     500 * time.Millisecond,
}

func (b Backoff) normalize() Backoff {
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	return b
}

func (b Backoff) next(d time.Duration) time.Duration {
	d *= 2
	if d > b.Max {
		return b.Max
	}
	return d
}

// Condition is evaluated on every poll attempt. Returning an error stops
// polling immediately.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond until it reports true, returns an error, or timeout
// elapses. cond is always evaluated at least once, so a zero timeout is a
// single check. Poll returns (false, nil) on timeout and the context's
// error if ctx is done first.
func Poll(ctx context.Context, timeout time.Duration, b Backoff, cond Condition) (bool, error) {
	b = b.normalize()
	deadline := time.Now().Add(timeout)
	delay := b.Initial

	for {
		ok, err := cond(ctx)
		if err != nil || ok {
			return ok, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if delay > remaining {
			delay = remaining
		}
		if err := Sleep(ctx, delay); err != nil {
			return false, err
		}
		delay = b.next(delay)
	}
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Detached returns a context for best-effort cleanup after ctx may have
// been cancelled: it keeps ctx's values, ignores its cancellation, and
// expires after d.
func Detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}
