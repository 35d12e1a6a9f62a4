package actions

import (
	"context"
	"errors"
	"io"

	"github.com/google/go-github/v81/github"
	"github.com/sirupsen/logrus"
)

// Invoker runs actions against one repository with one credential.
type Invoker struct {
	client *github.Client
	repo   Repo
	budget *RequestBudget
	log    logrus.FieldLogger
}

func NewInvoker(client *github.Client, repo Repo, budget *RequestBudget, log logrus.FieldLogger) *Invoker {
	if budget == nil {
		budget = NewRequestBudget()
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Invoker{client: client, repo: repo, budget: budget, log: log}
}

func (inv *Invoker) Repo() Repo {
	return inv.repo
}

// Invoke runs call and contains any failure: errors are logged with the
// action name and reason and returned inside the Result, never raised.
func Invoke[T any](ctx context.Context, inv *Invoker, call Call[T]) Result[T] {
	res := Result[T]{Action: call.Name()}
	if inv == nil || inv.client == nil {
		res.Err = errors.New("invoker has no GitHub client")
		res.Failure = Failure{Kind: FailureOther, Message: res.Err.Error()}
		return res
	}

	log := inv.log.WithFields(logrus.Fields{
		"action": call.Name(),
		"owner":  inv.repo.Owner,
		"repo":   inv.repo.Name,
	})
	log.Debug("running action")

	if err := inv.budget.Acquire(ctx); err != nil {
		res.Err = err
		res.Failure = describeFailure(err)
		log.WithField("reason", res.Failure.Kind).Warnf("action not started: %s", res.Failure.Message)
		return res
	}

	v, resp, err := call.Do(ctx, inv.client, inv.repo)
	inv.budget.Observe(resp, err)
	if resp != nil && resp.Response != nil {
		res.StatusCode = resp.StatusCode
	}
	if err != nil {
		res.Err = err
		res.Failure = describeFailure(err)
		if res.StatusCode == 0 {
			res.StatusCode = res.Failure.StatusCode
		}
		log.WithFields(logrus.Fields{
			"reason": res.Failure.Kind,
			"status": res.StatusCode,
		}).Warnf("action failed: %s", res.Failure.Message)
		return res
	}

	res.Value = v
	log.WithField("status", res.StatusCode).Info("action finished")
	return res
}
