package engine

import (
	"context"
	"fmt"

	"forkcheck/internal/actions"
	"forkcheck/internal/output"
)

// report comments the outcome on the tracking issue. Clean update-fork
// outcomes have no message and post nothing.
func (e *Engine) report(ctx context.Context, r *run) {
	body := r.outcome.Summary()
	if body == "" {
		r.log.Info("no issues with the checks")
		return
	}

	tr := r.cfg.Tracking
	action := actions.CreateIssueComment{}.Name()
	if tr.Issue <= 0 || e.IssueClient == nil {
		r.write(output.Step{Name: "report", Action: action, Status: output.StepSkipped, Message: "no tracking issue configured"})
		return
	}

	issue := actions.Repo{Owner: tr.Owner, Name: tr.Repo}
	log := e.Log.WithField("issue", fmt.Sprintf("%s#%d", issue, tr.Issue))
	inv := actions.NewInvoker(clientOf(e.IssueClient), issue, actions.NewRequestBudget(), log)

	log.WithField("body", r.outcome.Message).Info("commenting on tracking issue")
	res := actions.Invoke(ctx, inv, actions.CreateIssueComment{
		Number: tr.Issue,
		Body:   fmt.Sprintf("**%s**: %s", r.target.Source(), body),
	})
	st := stepOf("report", res, output.StepFailed)
	if comment, ok := res.Get(); ok && comment != nil {
		st.Message = comment.GetHTMLURL()
	}
	r.write(st)
}
