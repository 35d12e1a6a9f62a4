package scan

import (
	"time"
)

// ImmediateTimer satisfies backoff.Timer without waiting. Each requested
// interval is recorded so callers can assert on the polling cadence.
type ImmediateTimer struct {
	Waits []time.Duration
	c     chan time.Time
}

func (t *ImmediateTimer) Start(d time.Duration) {
	if t.c == nil {
		t.c = make(chan time.Time, 1)
	}
	t.Waits = append(t.Waits, d)
	t.c <- time.Now()
}

func (t *ImmediateTimer) Stop() {}

func (t *ImmediateTimer) C() <-chan time.Time {
	return t.c
}
