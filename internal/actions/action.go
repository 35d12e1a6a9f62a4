// Package actions is the closed set of remote GitHub operations used by a
// run, plus the wrapper that invokes them without ever propagating a failure.
//
// Every operation is a Go type implementing Call[T]: its parameters are
// struct fields and its payload type is T, so a call site cannot name an
// operation that does not exist or pass it the wrong parameter shape.
package actions

import (
	"context"
	"fmt"

	"github.com/google/go-github/v81/github"
)

// Repo is the standard context every action receives.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// Target is the repository pair a run operates on: the source repository and
// the working owner that receives the fork. Immutable for a run.
type Target struct {
	SourceOwner  string
	WorkingOwner string
	Name         string
}

func (t Target) Source() Repo { return Repo{Owner: t.SourceOwner, Name: t.Name} }

func (t Target) Fork() Repo { return Repo{Owner: t.WorkingOwner, Name: t.Name} }

type Action interface {
	Name() string
	Description() string
}

// Call is an Action with a typed payload. Do merges the standard context
// with the action's own fields; it may override the owner where the GitHub
// endpoint addresses a different repository (e.g. forking from the source).
type Call[T any] interface {
	Action
	Do(ctx context.Context, c *github.Client, repo Repo) (T, *github.Response, error)
}

// Result is the envelope every action resolves to. A failed Result keeps the
// zero Value; callers must check OK before using it.
type Result[T any] struct {
	Action     string
	Value      T
	StatusCode int
	Err        error
	Failure    Failure
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Get returns the payload and whether it may be used.
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Err == nil
}
