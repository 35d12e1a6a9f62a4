package engine

import (
	"context"
	"fmt"
	"strings"

	"forkcheck/internal/actions"
	"forkcheck/internal/output"
)

const (
	MessageWorkingRepoConflict = "Working repository exists and is not a fork of the source"
	MessageWorkingRepoUnknown  = "Could not verify working repository"
)

// preflight refuses to delete a working repository that is not a fork of
// the source. A missing working repository is the normal case; any other
// failure to read it stops the run before anything is deleted.
func (r *run) preflight(ctx context.Context) bool {
	res := actions.Invoke(ctx, r.fork, actions.GetRepo{})
	st := stepOf("preflight", res, output.StepSkipped)

	if !res.OK() && res.Failure.Kind == actions.FailureNotFound {
		st.Message = "no existing working repository"
		r.write(st)
		return true
	}
	existing, ok := res.Get()
	if !ok || existing == nil {
		st.Status = output.StepFailed
		r.write(st)
		r.manual(MessageWorkingRepoUnknown)
		return false
	}

	parent := existing.GetParent().GetFullName()
	if existing.GetFork() && strings.EqualFold(parent, r.target.Source().String()) {
		st.Message = fmt.Sprintf("existing fork of %s will be replaced", parent)
		r.write(st)
		return true
	}

	st.Status = output.StepFailed
	if existing.GetFork() {
		st.Message = fmt.Sprintf("%s is a fork of %s", r.target.Fork(), parent)
	} else {
		st.Message = fmt.Sprintf("%s is not a fork", r.target.Fork())
	}
	r.write(st)
	r.manual(MessageWorkingRepoConflict)
	return false
}
