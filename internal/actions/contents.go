package actions

import (
	"context"

	"github.com/google/go-github/v81/github"
)

func init() {
	Register(GetFile{})
	Register(PutFile{})
}

type GetFile struct {
	Path string
	Ref  string
}

func (GetFile) Name() string        { return "get-file" }
func (GetFile) Description() string { return "Read a file (content and blob SHA) from the working repository" }

func (a GetFile) Do(ctx context.Context, c *github.Client, repo Repo) (*github.RepositoryContent, *github.Response, error) {
	var opts *github.RepositoryContentGetOptions
	if a.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: a.Ref}
	}
	file, _, resp, err := c.Repositories.GetContents(ctx, repo.Owner, repo.Name, a.Path, opts)
	return file, resp, err
}

// PutFile creates Path, or updates it when SHA names the blob being
// replaced. Content is raw; the transport base64-encodes it.
type PutFile struct {
	Path    string
	Message string
	Content []byte
	Branch  string
	SHA     string
}

func (PutFile) Name() string        { return "put-file" }
func (PutFile) Description() string { return "Create or update a file in the working repository" }

func (a PutFile) Do(ctx context.Context, c *github.Client, repo Repo) (*github.RepositoryContentResponse, *github.Response, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(a.Message),
		Content: a.Content,
	}
	if a.Branch != "" {
		opts.Branch = github.Ptr(a.Branch)
	}
	if a.SHA == "" {
		return c.Repositories.CreateFile(ctx, repo.Owner, repo.Name, a.Path, opts)
	}
	opts.SHA = github.Ptr(a.SHA)
	return c.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, a.Path, opts)
}
