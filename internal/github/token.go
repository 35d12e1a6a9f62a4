package github

import (
	"context"
	"errors"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
)

const defaultHost = "github.com"

// ResolveAuthToken resolves the token used for repository operations.
//
// Precedence:
//  1. provided (if non-empty)
//  2. GITHUB_TOKEN env var
//  3. GitHub CLI: `gh auth token -h <host>`
//
// The tracking-issue token is not resolved here (see config.TrackingToken).
// It never prints the token.
func ResolveAuthToken(ctx context.Context, provided, enterpriseURL string) (token string, source AuthTokenSource, err error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}

	if env := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); env != "" {
		return env, AuthTokenSourceEnv, nil
	}

	tok, ok, err := tokenFromGitHubCLI(ctx, hostFromEnterpriseURL(enterpriseURL))
	if err != nil {
		return "", "", err
	}
	if ok {
		return tok, AuthTokenSourceGitHubCL, nil
	}
	return "", "", nil
}

func hostFromEnterpriseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultHost
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return defaultHost
	}
	return u.Hostname()
}

func tokenFromGitHubCLI(ctx context.Context, host string) (token string, ok bool, err error) {
	if _, lookErr := exec.LookPath("gh"); lookErr != nil {
		return "", false, nil
	}

	// A broken gh config or credential helper must not hang the run.
	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", host)
	env := os.Environ()
	filteredEnv := env[:0]
	for _, entry := range env {
		if strings.HasPrefix(entry, "GH_PAGER=") {
			continue
		}
		filteredEnv = append(filteredEnv, entry)
	}
	cmd.Env = append(filteredEnv, "GH_PAGER=cat")
	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		if cmdCtx.Err() != nil {
			return "", false, cmdCtx.Err()
		}
		// gh present but not logged in: treat as "no token". The raw output is
		// not surfaced.
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", false, nil
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", false, errors.New("invalid token returned by gh: contains whitespace")
	}

	return tok, true, nil
}
