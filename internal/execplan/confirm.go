package execplan

import (
	"context"
	"time"

	"signalforge/internal/signalerr"
)

// DefaultDelay is the live confirmation-delay default; configurable
// down to MinDelay for faster iteration/testing.
const (
	DefaultDelay = 300 * time.Second
	MinDelay     = 30 * time.Second
)

// Reevaluator re-runs the ultra filter for the same (symbol, direction)
// and reports whether the accept decision still holds.
type Reevaluator func(ctx context.Context) (stillAccepted bool, err error)

// Sleeper abstracts the delay wait so tests don't block on real time.
type Sleeper func(ctx context.Context, d time.Duration) error

// RealSleeper waits on a time.Timer for d, returning early if ctx is
// cancelled.
func RealSleeper(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return signalerr.WrapRetryable(signalerr.KindCancelled, "confirmation delay cancelled", ctx.Err())
	}
}

// AwaitConfirmation implements spec §4.I's optional confirmation delay:
// wait for `delay`, then re-run the filter; abort (return false) if it
// flipped to reject. A cancelled context aborts the wait with
// KindCancelled.
func AwaitConfirmation(ctx context.Context, delay time.Duration, sleep Sleeper, reeval Reevaluator) (bool, error) {
	if delay < MinDelay {
		delay = MinDelay
	}
	if sleep == nil {
		sleep = RealSleeper
	}
	if err := sleep(ctx, delay); err != nil {
		return false, err
	}
	return reeval(ctx)
}
