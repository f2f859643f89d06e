package probe

import (
	"context"
	"time"

	"github.com/hamed0406/pingwatch/internal/domain"
)

// Budgeted is implemented by probers that may need longer than a single
// probe timeout to produce their outcome.
type Budgeted interface {
	Budget() time.Duration
}

// RetryProber re-sends a failed probe up to Attempts times within one tick.
// The result still counts as a single observation.
type RetryProber struct {
	Inner    Prober
	Attempts int
	Backoff  time.Duration
	// PerAttempt, when set, bounds each attempt on its own so a timed-out
	// attempt does not eat the deadline of the next one.
	PerAttempt time.Duration
}

func (r *RetryProber) attempts() int {
	if r.Attempts < 1 {
		return 1
	}
	return r.Attempts
}

// Budget is the worst-case time for all attempts and the pauses between them.
func (r *RetryProber) Budget() time.Duration {
	n := time.Duration(r.attempts())
	return n*r.PerAttempt + (n-1)*r.Backoff
}

func (r *RetryProber) Probe(ctx context.Context, host string) domain.Outcome {
	attempts := r.attempts()
	var last domain.Outcome
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			last.OK = false
			last.Reason += " (cancelled)"
			return last
		}
		last = r.once(ctx, host)
		if last.OK {
			return last
		}
		if i < attempts-1 && r.Backoff > 0 {
			select {
			case <-ctx.Done():
				last.Reason += " (cancelled)"
				return last
			case <-time.After(r.Backoff):
			}
		}
	}
	if attempts > 1 {
		last.Reason += " (after retries)"
	}
	return last
}

func (r *RetryProber) once(ctx context.Context, host string) domain.Outcome {
	if r.PerAttempt <= 0 {
		return r.Inner.Probe(ctx, host)
	}
	actx, cancel := context.WithTimeout(ctx, r.PerAttempt)
	defer cancel()
	return r.Inner.Probe(actx, host)
}
