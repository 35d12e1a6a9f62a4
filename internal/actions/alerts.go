package actions

import (
	"context"

	"github.com/google/go-github/v81/github"
)

func init() {
	Register(ListCodeScanningAlerts{})
	Register(ListDependabotAlerts{})
}

const alertsPerPage = 100

// ListCodeScanningAlerts reads every page of code scanning alerts. State
// filters by alert state ("open", "fixed", ...); empty means all.
type ListCodeScanningAlerts struct {
	State string
}

func (ListCodeScanningAlerts) Name() string        { return "list-code-scanning-alerts" }
func (ListCodeScanningAlerts) Description() string { return "List code scanning (CodeQL) alerts, all pages" }

func (a ListCodeScanningAlerts) Do(ctx context.Context, c *github.Client, repo Repo) ([]*github.Alert, *github.Response, error) {
	opts := &github.AlertListOptions{
		State:       a.State,
		ListOptions: github.ListOptions{PerPage: alertsPerPage},
	}
	all := make([]*github.Alert, 0)
	for {
		page, resp, err := c.CodeScanning.ListAlertsForRepo(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, resp, err
		}
		all = append(all, page...)
		if resp == nil || resp.NextPage == 0 {
			return all, resp, nil
		}
		opts.ListOptions.Page = resp.NextPage
	}
}

// ListDependabotAlerts reads every page of Dependabot alerts. The endpoint
// paginates with cursors rather than page numbers.
type ListDependabotAlerts struct {
	State string
}

func (ListDependabotAlerts) Name() string        { return "list-dependabot-alerts" }
func (ListDependabotAlerts) Description() string { return "List Dependabot vulnerability alerts, all pages" }

func (a ListDependabotAlerts) Do(ctx context.Context, c *github.Client, repo Repo) ([]*github.DependabotAlert, *github.Response, error) {
	opts := &github.ListAlertsOptions{
		ListCursorOptions: github.ListCursorOptions{PerPage: alertsPerPage},
	}
	if a.State != "" {
		opts.State = github.Ptr(a.State)
	}
	all := make([]*github.DependabotAlert, 0)
	for {
		page, resp, err := c.Dependabot.ListRepoAlerts(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, resp, err
		}
		all = append(all, page...)
		if resp == nil || resp.After == "" {
			return all, resp, nil
		}
		opts.ListCursorOptions.After = resp.After
	}
}
