// Package pace suspends the run between steps that GitHub processes
// asynchronously (fork creation, alert enablement, workflow propagation).
//
// A wait never retries and never adds jitter. It returns early only when the
// context is done, which happens on process shutdown or the global timeout.
package pace

import (
	"context"
	"time"
)

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Real suspends for the full duration using a timer.
type Real struct{}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
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

// Recorder records requested durations without sleeping. Used by tests.
type Recorder struct {
	Waits []time.Duration
}

func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.Waits = append(r.Waits, d)
	return ctx.Err()
}

// Total is the sum of every recorded wait.
func (r *Recorder) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Waits {
		total += d
	}
	return total
}
