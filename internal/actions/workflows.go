package actions

import (
	"context"
	"time"

	"github.com/google/go-github/v81/github"
)

func init() {
	Register(DispatchWorkflow{})
	Register(ListWorkflowRuns{})
	Register(GetWorkflowRun{})
}

// DispatchWorkflow triggers a workflow_dispatch run of File on Ref. GitHub
// answers 204 No Content when the dispatch is accepted.
type DispatchWorkflow struct {
	File   string
	Ref    string
	Inputs map[string]any
}

func (DispatchWorkflow) Name() string        { return "dispatch-workflow" }
func (DispatchWorkflow) Description() string { return "Trigger a workflow_dispatch run of a workflow file" }

func (a DispatchWorkflow) Do(ctx context.Context, c *github.Client, repo Repo) (struct{}, *github.Response, error) {
	event := github.CreateWorkflowDispatchEventRequest{Ref: a.Ref, Inputs: a.Inputs}
	resp, err := c.Actions.CreateWorkflowDispatchEventByFileName(ctx, repo.Owner, repo.Name, a.File, event)
	return struct{}{}, resp, err
}

// ListWorkflowRuns returns the newest runs of File, filtered server side by
// trigger event, branch and creation time. Zero-valued filters are omitted.
type ListWorkflowRuns struct {
	File         string
	Event        string
	Branch       string
	CreatedAfter time.Time
}

func (ListWorkflowRuns) Name() string { return "list-workflow-runs" }
func (ListWorkflowRuns) Description() string {
	return "List recent runs of a workflow file filtered by event, branch and creation time"
}

func (a ListWorkflowRuns) Do(ctx context.Context, c *github.Client, repo Repo) ([]*github.WorkflowRun, *github.Response, error) {
	opts := &github.ListWorkflowRunsOptions{
		Event:       a.Event,
		Branch:      a.Branch,
		ListOptions: github.ListOptions{PerPage: 30},
	}
	if !a.CreatedAfter.IsZero() {
		opts.Created = ">=" + a.CreatedAfter.UTC().Format(time.RFC3339)
	}
	runs, resp, err := c.Actions.ListWorkflowRunsByFileName(ctx, repo.Owner, repo.Name, a.File, opts)
	if err != nil {
		return nil, resp, err
	}
	return runs.WorkflowRuns, resp, nil
}

type GetWorkflowRun struct {
	RunID int64
}

func (GetWorkflowRun) Name() string        { return "get-workflow-run" }
func (GetWorkflowRun) Description() string { return "Read the current state of one workflow run" }

func (a GetWorkflowRun) Do(ctx context.Context, c *github.Client, repo Repo) (*github.WorkflowRun, *github.Response, error) {
	return c.Actions.GetWorkflowRunByID(ctx, repo.Owner, repo.Name, a.RunID)
}
