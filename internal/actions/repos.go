package actions

import (
	"context"
	"errors"

	"github.com/google/go-github/v81/github"
)

func init() {
	Register(GetRepo{})
	Register(DeleteRepo{})
	Register(CreateFork{})
	Register(EnableVulnerabilityAlerts{})
	Register(ListLanguages{})
}

// GetRepo reads repository metadata. Owner overrides the standard context
// owner when set (used to read the source repository).
type GetRepo struct {
	Owner string
}

func (GetRepo) Name() string        { return "get-repo" }
func (GetRepo) Description() string { return "Read repository metadata (default branch, fork parent)" }

func (a GetRepo) Do(ctx context.Context, c *github.Client, repo Repo) (*github.Repository, *github.Response, error) {
	owner := repo.Owner
	if a.Owner != "" {
		owner = a.Owner
	}
	return c.Repositories.Get(ctx, owner, repo.Name)
}

type DeleteRepo struct{}

func (DeleteRepo) Name() string        { return "delete-repo" }
func (DeleteRepo) Description() string { return "Delete the working repository (removes a stale fork)" }

func (DeleteRepo) Do(ctx context.Context, c *github.Client, repo Repo) (struct{}, *github.Response, error) {
	resp, err := c.Repositories.Delete(ctx, repo.Owner, repo.Name)
	return struct{}{}, resp, err
}

// CreateFork forks SourceOwner/<repo> into Organization, or into the
// authenticated user's account when Organization is empty.
type CreateFork struct {
	SourceOwner  string
	Organization string
}

func (CreateFork) Name() string        { return "create-fork" }
func (CreateFork) Description() string { return "Fork the source repository into the working owner" }

func (a CreateFork) Do(ctx context.Context, c *github.Client, repo Repo) (*github.Repository, *github.Response, error) {
	opts := &github.RepositoryCreateForkOptions{Organization: a.Organization}
	fork, resp, err := c.Repositories.CreateFork(ctx, a.SourceOwner, repo.Name, opts)
	// GitHub answers 202 while the fork is built in the background; the
	// payload already describes the pending fork.
	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		return fork, resp, nil
	}
	return fork, resp, err
}

type EnableVulnerabilityAlerts struct{}

func (EnableVulnerabilityAlerts) Name() string { return "enable-vulnerability-alerts" }
func (EnableVulnerabilityAlerts) Description() string {
	return "Enable Dependabot vulnerability alerts on the working repository"
}

func (EnableVulnerabilityAlerts) Do(ctx context.Context, c *github.Client, repo Repo) (struct{}, *github.Response, error) {
	resp, err := c.Repositories.EnableVulnerabilityAlerts(ctx, repo.Owner, repo.Name)
	return struct{}{}, resp, err
}

type ListLanguages struct{}

func (ListLanguages) Name() string        { return "list-languages" }
func (ListLanguages) Description() string { return "List detected languages with their byte counts" }

func (ListLanguages) Do(ctx context.Context, c *github.Client, repo Repo) (map[string]int, *github.Response, error) {
	return c.Repositories.ListLanguages(ctx, repo.Owner, repo.Name)
}
