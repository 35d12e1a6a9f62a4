// Package scan follows a dispatched workflow run until GitHub reports it
// completed, or until the attempt budget is spent.
package scan

import (
	"context"
	"errors"
	"sort"
	"time"

	"forkcheck/internal/actions"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v81/github"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateDispatched State = "dispatched"
	StateQueued     State = "queued"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateTimedOut   State = "timed_out"
)

const (
	DefaultInterval    = 15 * time.Second
	DefaultMaxAttempts = 240
	// DefaultSkew widens the created>= filter to tolerate clock drift
	// between this host and GitHub.
	DefaultSkew = 30 * time.Second

	dispatchEvent = "workflow_dispatch"
)

// Run is the remote state of one workflow run. It is only built from
// GitHub responses.
type Run struct {
	ID         int64
	Status     string
	Conclusion string
	URL        string
	CreatedAt  time.Time
}

type Result struct {
	State    State
	Run      Run
	Attempts int
	Err      error
}

func (r Result) Completed() bool { return r.State == StateCompleted }

type Options struct {
	// File is the workflow file name the run belongs to.
	File   string
	Branch string
	// Interval between reads of the run.
	Interval time.Duration
	// MaxAttempts bounds discovery plus polling. Zero polls until the run
	// completes or the context ends.
	MaxAttempts int
	Skew        time.Duration
	// Timer drives the wait between attempts. Nil uses a wall clock timer.
	Timer backoff.Timer
}

type Poller struct {
	inv  *actions.Invoker
	opts Options
	log  logrus.FieldLogger
}

func NewPoller(inv *actions.Invoker, opts Options, log logrus.FieldLogger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Skew <= 0 {
		opts.Skew = DefaultSkew
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Poller{inv: inv, opts: opts, log: log}
}

var errNotDone = errors.New("workflow run not completed")

// Wait locates the run created by a dispatch at dispatchedAt and re-reads it
// every interval. Only a "completed" status ends the wait successfully;
// queued and in-progress runs keep polling.
func (p *Poller) Wait(ctx context.Context, dispatchedAt time.Time) Result {
	res := Result{State: StateDispatched}
	var last State

	operation := func() (Run, error) {
		res.Attempts++
		p.observe(ctx, dispatchedAt, &res)
		if res.State != last {
			p.log.WithFields(logrus.Fields{
				"run_id":  res.Run.ID,
				"state":   res.State,
				"attempt": res.Attempts,
			}).Info("scan state")
			last = res.State
		}
		if res.State == StateCompleted {
			return res.Run, nil
		}
		return res.Run, errNotDone
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.opts.Interval)
	if p.opts.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.opts.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	run, err := backoff.RetryNotifyWithTimerAndData(operation, b, nil, p.opts.Timer)
	if err == nil {
		res.Run = run
		return res
	}

	p.log.WithFields(logrus.Fields{
		"run_id":   res.Run.ID,
		"state":    res.State,
		"attempts": res.Attempts,
	}).Warn("scan did not complete")
	res.State = StateTimedOut
	if !errors.Is(err, errNotDone) {
		res.Err = err
	}
	return res
}

func (p *Poller) observe(ctx context.Context, dispatchedAt time.Time, res *Result) {
	if res.Run.ID == 0 {
		runs, ok := actions.Invoke(ctx, p.inv, actions.ListWorkflowRuns{
			File:         p.opts.File,
			Event:        dispatchEvent,
			Branch:       p.opts.Branch,
			CreatedAfter: dispatchedAt.Add(-p.opts.Skew),
		}).Get()
		if !ok {
			return
		}
		run, found := pickRun(runs, dispatchedAt.Add(-p.opts.Skew))
		if !found {
			return
		}
		res.Run = run
		res.State = stateOf(run.Status)
		return
	}

	wr, ok := actions.Invoke(ctx, p.inv, actions.GetWorkflowRun{RunID: res.Run.ID}).Get()
	if !ok || wr == nil {
		return
	}
	res.Run = toRun(wr)
	res.State = stateOf(res.Run.Status)
}

// pickRun selects the newest run created at or after since. The server side
// filter already narrows the list; this guards against APIs that ignore it.
func pickRun(runs []*github.WorkflowRun, since time.Time) (Run, bool) {
	candidates := make([]Run, 0, len(runs))
	for _, wr := range runs {
		if wr == nil || wr.GetID() == 0 {
			continue
		}
		run := toRun(wr)
		if !run.CreatedAt.IsZero() && run.CreatedAt.Before(since) {
			continue
		}
		candidates = append(candidates, run)
	}
	if len(candidates) == 0 {
		return Run{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID > candidates[j].ID
	})
	return candidates[0], true
}

func toRun(wr *github.WorkflowRun) Run {
	return Run{
		ID:         wr.GetID(),
		Status:     wr.GetStatus(),
		Conclusion: wr.GetConclusion(),
		URL:        wr.GetHTMLURL(),
		CreatedAt:  wr.GetCreatedAt().Time,
	}
}

func stateOf(status string) State {
	switch status {
	case "completed":
		return StateCompleted
	case "in_progress":
		return StateInProgress
	default:
		return StateQueued
	}
}
