package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/go-github/v81/github"
)

// RequestBudget paces remote actions against GitHub's rate limits. It starts
// from a conservative allowance and is corrected after every call from the
// X-RateLimit-* headers, Retry-After, and rate-limit errors.
type RequestBudget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	now       func() time.Time
	probed    bool
	cooldown  time.Time
	notifyCh  chan struct{}
}

func NewRequestBudget() *RequestBudget {
	return &RequestBudget{
		remaining: 5000,
		reset:     time.Now().Add(1 * time.Hour),
		now:       time.Now,
		notifyCh:  make(chan struct{}),
	}
}

func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire blocks until one request may be issued or ctx is done.
func (b *RequestBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if b == nil {
		return fmt.Errorf("Acquire: nil RequestBudget")
	}
	if b.now == nil || b.notifyCh == nil {
		return fmt.Errorf("Acquire: RequestBudget not initialized (use NewRequestBudget)")
	}

	for {
		b.mu.Lock()
		now := b.now()

		if now.Before(b.cooldown) {
			until := b.cooldown
			ch := b.notifyCh
			b.mu.Unlock()
			if err := waitUntil(ctx, ch, until.Sub(now)); err != nil {
				return err
			}
			continue
		}

		if b.remaining > 0 {
			b.remaining--
			b.mu.Unlock()
			return nil
		}

		// Reset has passed but no refreshed budget was observed yet: allow a
		// single probe and then wait for Observe.
		if !now.Before(b.reset) {
			if !b.probed {
				b.probed = true
				b.mu.Unlock()
				return nil
			}
			ch := b.notifyCh
			b.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ch:
				continue
			}
		}

		reset := b.reset
		ch := b.notifyCh
		b.mu.Unlock()
		if err := waitUntil(ctx, ch, reset.Sub(now)); err != nil {
			return err
		}
	}
}

func waitUntil(ctx context.Context, ch <-chan struct{}, wait time.Duration) error {
	if wait < 0 {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	case <-timer.C:
		return nil
	}
}

func (b *RequestBudget) signalLocked() {
	if b.notifyCh == nil {
		b.notifyCh = make(chan struct{})
		return
	}
	close(b.notifyCh)
	b.notifyCh = make(chan struct{})
}

// Observe folds the outcome of one remote action back into the budget.
// resp may be nil (transport failure); err may be nil (success).
func (b *RequestBudget) Observe(resp *github.Response, err error) {
	if b == nil || b.now == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false
	extendCooldown := func(until time.Time) {
		if until.After(b.cooldown) {
			b.cooldown = until
			changed = true
		}
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) && abuse.RetryAfter != nil && *abuse.RetryAfter > 0 {
		extendCooldown(b.now().Add(*abuse.RetryAfter))
	}

	var limited *github.RateLimitError
	if errors.As(err, &limited) {
		if b.remaining != 0 {
			b.remaining = 0
			changed = true
		}
		if reset := limited.Rate.Reset.Time; !reset.IsZero() && !b.reset.Equal(reset) {
			b.reset = reset
			changed = true
		}
	}

	if resp != nil && resp.Response != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, convErr := strconv.Atoi(retryAfter); convErr == nil && seconds > 0 {
				extendCooldown(b.now().Add(time.Duration(seconds) * time.Second))
			}
		}
		// Rate.Limit is zero when the headers were absent.
		if resp.Rate.Limit > 0 {
			if resp.Rate.Remaining >= 0 && b.remaining != resp.Rate.Remaining {
				b.remaining = resp.Rate.Remaining
				changed = true
			}
			if reset := resp.Rate.Reset.Time; !reset.IsZero() && !b.reset.Equal(reset) {
				b.reset = reset
				changed = true
			}
		}
	}

	if changed {
		b.probed = false
		b.signalLocked()
	}
}
