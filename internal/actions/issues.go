package actions

import (
	"context"

	"github.com/google/go-github/v81/github"
)

func init() {
	Register(CreateIssueComment{})
}

type CreateIssueComment struct {
	Number int
	Body   string
}

func (CreateIssueComment) Name() string        { return "create-issue-comment" }
func (CreateIssueComment) Description() string { return "Comment on the tracking issue" }

func (a CreateIssueComment) Do(ctx context.Context, c *github.Client, repo Repo) (*github.IssueComment, *github.Response, error) {
	return c.Issues.CreateComment(ctx, repo.Owner, repo.Name, a.Number, &github.IssueComment{Body: github.Ptr(a.Body)})
}
