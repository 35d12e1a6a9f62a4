package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect run
	// behavior, keep these in sync:
	// - CLI flags in internal/cli/run.go
	// - flag names in internal/flags
	Target   Target
	Tracking Tracking
	Workflow Workflow
	Timing   Timing
	Output   Output
	Runtime  Runtime
}

type Target struct {
	// SourceOwner owns the repository being forked (name or URL; see --source-owner).
	SourceOwner string `env:"FORKCHECK_SOURCE_OWNER"`

	// WorkingOwner receives the fork (name or URL; see --working-owner).
	WorkingOwner string `env:"FORKCHECK_WORKING_OWNER"`

	// Repo is the repository name, shared by source and fork (see --repo).
	// OWNER/REPO is accepted and fills SourceOwner when it is empty.
	Repo string `env:"FORKCHECK_REPO"`

	// PersonalFork forks into the authenticated user's account instead of
	// the WorkingOwner organization (see --personal-fork). WorkingOwner must
	// then be that user's login, since every later step addresses
	// WorkingOwner/Repo; the engine stops with needs-manual-check when the
	// fork lands elsewhere.
	PersonalFork bool `env:"FORKCHECK_PERSONAL_FORK"`
}

// Tracking locates the issue that receives the outcome comment. Issue 0
// disables reporting.
type Tracking struct {
	Owner string `env:"FORKCHECK_TRACKING_OWNER"`
	Repo  string `env:"FORKCHECK_TRACKING_REPO"`
	Issue int    `env:"FORKCHECK_TRACKING_ISSUE"`

	// Token authenticates the comment. Empty reuses the main GitHub token.
	Token string `env:"FORKCHECK_ISSUE_TOKEN"`
}

type Workflow struct {
	// Template is a workflow template path; empty uses the bundled template.
	Template string `env:"FORKCHECK_WORKFLOW_TEMPLATE"`

	// File is the workflow file name under .github/workflows.
	File string `env:"FORKCHECK_WORKFLOW_FILE"`

	// Languages restricts which detected languages are analyzed.
	Languages []string `env:"FORKCHECK_LANGUAGES" envSeparator:","`

	CommitMessage string `env:"FORKCHECK_COMMIT_MESSAGE"`
}

// Timing holds the fixed waits between steps GitHub processes
// asynchronously, and the polling bounds.
type Timing struct {
	AfterFork      time.Duration `env:"FORKCHECK_WAIT_AFTER_FORK"`
	AfterAlerts    time.Duration `env:"FORKCHECK_WAIT_AFTER_ALERTS"`
	BeforeDispatch time.Duration `env:"FORKCHECK_WAIT_BEFORE_DISPATCH"`
	BeforePoll     time.Duration `env:"FORKCHECK_WAIT_BEFORE_POLL"`
	PollInterval   time.Duration `env:"FORKCHECK_POLL_INTERVAL"`
	NoLanguageWait time.Duration `env:"FORKCHECK_WAIT_NO_LANGUAGES"`

	// MaxPollAttempts bounds run discovery plus polling. 0 means unbounded,
	// though Runtime.Timeout still applies unless it is 0 as well.
	MaxPollAttempts int `env:"FORKCHECK_MAX_POLL_ATTEMPTS"`
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string `env:"FORKCHECK_CONSOLE_FORMAT"`

	// Report writes a Markdown report to this path (see --report).
	Report string `env:"FORKCHECK_REPORT"`

	// Out writes structured output to this path (see --out).
	Out string `env:"FORKCHECK_OUT"`

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string `env:"FORKCHECK_OUT_FORMAT"`

	// Emit writes an additional structured event stream to stdout (see --emit).
	Emit []string `env:"FORKCHECK_EMIT" envSeparator:","`

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool `env:"FORKCHECK_NO_CONSOLE"`

	// GitHubOutput is the GitHub Actions step output file that receives
	// can-merge. Set by the Actions runner.
	GitHubOutput string `env:"GITHUB_OUTPUT"`
}

type Runtime struct {
	// Timeout is the global timeout for the run (see --timeout). 0 disables
	// the deadline.
	Timeout time.Duration `env:"FORKCHECK_TIMEOUT"`

	// Verbose enables debug logging and HTTP request tracing.
	Verbose bool `env:"FORKCHECK_VERBOSE"`

	// RequireAllFeeds refuses update-fork when an alert feed could not be read.
	RequireAllFeeds bool `env:"FORKCHECK_REQUIRE_ALL_FEEDS"`

	// AlertState filters both alert feeds (open, fixed, dismissed, ...).
	AlertState string `env:"FORKCHECK_ALERT_STATE"`

	// EnterpriseURL points the client at a GitHub Enterprise Server.
	EnterpriseURL string `env:"FORKCHECK_ENTERPRISE_URL"`
}

func New() *Config {
	return &Config{
		Workflow: Workflow{
			File:          "codeql-analysis-check.yml",
			Languages:     []string{"TypeScript", "JavaScript", "Ruby", "Python", "Kotlin", "Go", "C++", "C#", "C"},
			CommitMessage: "Inject codeql workflow",
		},
		Timing: Timing{
			AfterFork:       5 * time.Second,
			AfterAlerts:     5 * time.Second,
			BeforeDispatch:  15 * time.Second,
			BeforePoll:      15 * time.Second,
			PollInterval:    15 * time.Second,
			NoLanguageWait:  60 * time.Second,
			MaxPollAttempts: 240,
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Timeout:         90 * time.Minute,
			RequireAllFeeds: true,
			AlertState:      "open",
		},
	}
}

// LoadEnv overlays values from the environment onto c. Unset variables
// leave the current value alone, so callers load env before binding flags
// and flags win.
func (c *Config) LoadEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

// LoadEnvFrom is LoadEnv over an explicit environment.
func (c *Config) LoadEnvFrom(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Workflow.Languages = splitCommaList(c.Workflow.Languages)
	c.Output.Emit = splitCommaList(c.Output.Emit)

	// OWNER/REPO shorthand.
	c.Target.Repo = strings.TrimSpace(c.Target.Repo)
	if owner, name, ok := strings.Cut(c.Target.Repo, "/"); ok {
		if c.Target.SourceOwner == "" {
			c.Target.SourceOwner = owner
		}
		c.Target.Repo = name
	}

	// Normalize account selectors.
	src, err := normalizeAccountSelector(c.Target.SourceOwner)
	if err != nil {
		return fmt.Errorf("invalid --source-owner value: %w", err)
	}
	c.Target.SourceOwner = src
	dst, err := normalizeAccountSelector(c.Target.WorkingOwner)
	if err != nil {
		return fmt.Errorf("invalid --working-owner value: %w", err)
	}
	c.Target.WorkingOwner = dst

	// Target validation
	if c.Target.SourceOwner == "" || c.Target.WorkingOwner == "" || c.Target.Repo == "" {
		return errors.New("--source-owner, --working-owner and --repo must all be provided")
	}
	if strings.Contains(c.Target.Repo, "/") {
		return fmt.Errorf("invalid --repo value: %q", c.Target.Repo)
	}
	if strings.EqualFold(c.Target.SourceOwner, c.Target.WorkingOwner) {
		return errors.New("--working-owner must differ from --source-owner; the working repository is deleted before forking")
	}

	// Tracking validation
	if c.Tracking.Issue < 0 {
		return errors.New("--tracking-issue must be >= 0")
	}
	if c.Tracking.Issue > 0 {
		if owner, name, ok := strings.Cut(c.Tracking.Repo, "/"); ok {
			if c.Tracking.Owner == "" {
				c.Tracking.Owner = owner
			}
			c.Tracking.Repo = name
		}
		if c.Tracking.Owner == "" || c.Tracking.Repo == "" {
			return errors.New("--tracking-owner and --tracking-repo are required with --tracking-issue")
		}
	}

	// Workflow validation
	c.Workflow.File = strings.TrimSpace(c.Workflow.File)
	if c.Workflow.File == "" {
		c.Workflow.File = "codeql-analysis-check.yml"
	}
	if strings.Contains(c.Workflow.File, "/") {
		return fmt.Errorf("invalid --workflow-file %q: must be a file name, not a path", c.Workflow.File)
	}
	switch strings.ToLower(filepath.Ext(c.Workflow.File)) {
	case ".yml", ".yaml":
	default:
		return fmt.Errorf("invalid --workflow-file %q: must end in .yml or .yaml", c.Workflow.File)
	}
	if strings.TrimSpace(c.Workflow.CommitMessage) == "" {
		c.Workflow.CommitMessage = "Inject codeql workflow"
	}

	// Timing validation
	for name, d := range map[string]time.Duration{
		"--wait-after-fork":      c.Timing.AfterFork,
		"--wait-after-alerts":    c.Timing.AfterAlerts,
		"--wait-before-dispatch": c.Timing.BeforeDispatch,
		"--wait-before-poll":     c.Timing.BeforePoll,
		"--wait-no-languages":    c.Timing.NoLanguageWait,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	if c.Timing.PollInterval <= 0 {
		return errors.New("--poll-interval must be > 0")
	}
	if c.Timing.MaxPollAttempts < 0 {
		return errors.New("--max-poll-attempts must be >= 0")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
		c.Output.Emit[i] = v
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Timeout < 0 {
		return errors.New("--timeout must be >= 0 (0 = no deadline)")
	}
	c.Runtime.AlertState = normalizeEnumValue(c.Runtime.AlertState)
	if c.Runtime.EnterpriseURL != "" {
		u, err := url.Parse(strings.TrimSpace(c.Runtime.EnterpriseURL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid --enterprise-url value: %q", c.Runtime.EnterpriseURL)
		}
	}

	return nil
}

// TrackingToken is the credential for the tracking-issue comment.
func (c *Config) TrackingToken(mainToken string) string {
	if t := strings.TrimSpace(c.Tracking.Token); t != "" {
		return t
	}
	return mainToken
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a raw account name, or a GitHub URL like:
	//   https://github.com/<name>
	//   https://github.com/orgs/<name>
	//   https://github.com/users/<name>
	//   github.com/<name>
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" || parts[0] == "users" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious repo-like inputs.
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
