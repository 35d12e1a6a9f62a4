package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := New()
	cfg.Target = Target{SourceOwner: "upstream", WorkingOwner: "fork-org", Repo: "widgets"}
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	if cfg.Timing.AfterFork != 5*time.Second || cfg.Timing.BeforeDispatch != 15*time.Second ||
		cfg.Timing.PollInterval != 15*time.Second || cfg.Timing.NoLanguageWait != 60*time.Second {
		t.Fatalf("unexpected timing defaults: %+v", cfg.Timing)
	}
	if cfg.Timing.MaxPollAttempts != 240 {
		t.Fatalf("expected 240 poll attempts, got %d", cfg.Timing.MaxPollAttempts)
	}
	if !cfg.Runtime.RequireAllFeeds {
		t.Fatalf("require-all-feeds must default to true")
	}
	if cfg.Workflow.File != "codeql-analysis-check.yml" {
		t.Fatalf("unexpected workflow file %q", cfg.Workflow.File)
	}
}

func TestValidate_RequiresTarget(t *testing.T) {
	cfg := New()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "--source-owner, --working-owner and --repo") {
		t.Fatalf("expected missing target error, got %v", err)
	}
}

func TestValidate_AcceptsOwnerRepoShorthand(t *testing.T) {
	cfg := New()
	cfg.Target.Repo = "upstream/widgets"
	cfg.Target.WorkingOwner = "https://github.com/orgs/fork-org"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	want := Target{SourceOwner: "upstream", WorkingOwner: "fork-org", Repo: "widgets"}
	if cfg.Target != want {
		t.Fatalf("got %+v want %+v", cfg.Target, want)
	}
}

func TestValidate_RejectsSameOwner(t *testing.T) {
	cfg := validConfig()
	cfg.Target.WorkingOwner = "Upstream"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error when working owner equals source owner")
	}
}

func TestValidate_NormalizesOwnersFromGitHubURLs(t *testing.T) {
	cfg := validConfig()
	cfg.Target.SourceOwner = "github.com/upstream"
	cfg.Target.WorkingOwner = "https://github.com/users/octocat"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if cfg.Target.SourceOwner != "upstream" || cfg.Target.WorkingOwner != "octocat" {
		t.Fatalf("unexpected owners %+v", cfg.Target)
	}

	cfg = validConfig()
	cfg.Target.SourceOwner = "https://gitlab.com/upstream"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for non-GitHub URL")
	}
}

func TestValidate_Tracking(t *testing.T) {
	tests := []struct {
		name    string
		track   Tracking
		wantErr string
		want    Tracking
	}{
		{name: "disabled", track: Tracking{}, want: Tracking{}},
		{name: "owner/repo shorthand", track: Tracking{Repo: "acme/security", Issue: 7}, want: Tracking{Owner: "acme", Repo: "security", Issue: 7}},
		{name: "missing repo", track: Tracking{Owner: "acme", Issue: 7}, wantErr: "--tracking-repo"},
		{name: "negative issue", track: Tracking{Issue: -1}, wantErr: "--tracking-issue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Tracking = tt.track
			err := cfg.Validate()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() returned error: %v", err)
			}
			if cfg.Tracking != tt.want {
				t.Fatalf("got %+v want %+v", cfg.Tracking, tt.want)
			}
		})
	}
}

func TestTrackingToken_FallsBackToMainToken(t *testing.T) {
	cfg := New()
	if got := cfg.TrackingToken("main"); got != "main" {
		t.Fatalf("want main, got %q", got)
	}
	cfg.Tracking.Token = "issue"
	if got := cfg.TrackingToken("main"); got != "issue" {
		t.Fatalf("want issue, got %q", got)
	}
}

func TestValidate_Workflow(t *testing.T) {
	cfg := validConfig()
	cfg.Workflow.Languages = []string{"Go, Python", "", "C++"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if want := []string{"Go", "Python", "C++"}; !reflect.DeepEqual(cfg.Workflow.Languages, want) {
		t.Fatalf("got %v want %v", cfg.Workflow.Languages, want)
	}

	for _, file := range []string{"nested/file.yml", "workflow.json"} {
		cfg := validConfig()
		cfg.Workflow.File = file
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for workflow file %q", file)
		}
	}
}

func TestValidate_RejectsInvalidTiming(t *testing.T) {
	tests := []struct {
		name string
		set  func(*Config)
	}{
		{name: "negative wait", set: func(c *Config) { c.Timing.AfterFork = -time.Second }},
		{name: "zero poll interval", set: func(c *Config) { c.Timing.PollInterval = 0 }},
		{name: "negative attempts", set: func(c *Config) { c.Timing.MaxPollAttempts = -1 }},
		{name: "negative timeout", set: func(c *Config) { c.Runtime.Timeout = -time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.set(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	cfg := validConfig()
	cfg.Timing.MaxPollAttempts = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unbounded polling must be allowed: %v", err)
	}
}

func TestValidate_Output(t *testing.T) {
	tests := []struct {
		name    string
		out     Output
		wantErr bool
		want    string
	}{
		{name: "text", out: Output{ConsoleFormat: " TEXT "}},
		{name: "bad console", out: Output{ConsoleFormat: "yaml"}, wantErr: true},
		{name: "bad emit", out: Output{ConsoleFormat: "text", Emit: []string{"xml"}}, wantErr: true},
		{name: "infer json", out: Output{ConsoleFormat: "text", Out: "run.json"}, want: "json"},
		{name: "infer jsonl", out: Output{ConsoleFormat: "text", Out: "run.jsonl"}, want: "ndjson"},
		{name: "no extension", out: Output{ConsoleFormat: "text", Out: "run"}, wantErr: true},
		{name: "bad out format", out: Output{ConsoleFormat: "text", Out: "run", OutFormat: "csv"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Output = tt.out
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() returned error: %v", err)
			}
			if cfg.Output.OutFormat != tt.want {
				t.Fatalf("OutFormat: want %q, got %q", tt.want, cfg.Output.OutFormat)
			}
		})
	}
}

func TestValidate_EnterpriseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Runtime.EnterpriseURL = "https://ghe.example.com/api/v3/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	cfg.Runtime.EnterpriseURL = "ghe.example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for URL without scheme")
	}
}

func TestLoadEnvFrom_OverlaysOnlySetVariables(t *testing.T) {
	cfg := New()
	err := cfg.LoadEnvFrom(map[string]string{
		"FORKCHECK_SOURCE_OWNER":      "upstream",
		"FORKCHECK_WORKING_OWNER":     "fork-org",
		"FORKCHECK_REPO":              "widgets",
		"FORKCHECK_TRACKING_ISSUE":    "12",
		"FORKCHECK_ISSUE_TOKEN":       "issue-token",
		"FORKCHECK_LANGUAGES":         "Go,Python",
		"FORKCHECK_POLL_INTERVAL":     "30s",
		"FORKCHECK_REQUIRE_ALL_FEEDS": "false",
		"GITHUB_OUTPUT":               "/tmp/gh-output",
	})
	if err != nil {
		t.Fatalf("LoadEnvFrom returned error: %v", err)
	}

	if cfg.Target != (Target{SourceOwner: "upstream", WorkingOwner: "fork-org", Repo: "widgets"}) {
		t.Fatalf("unexpected target %+v", cfg.Target)
	}
	if cfg.Tracking.Issue != 12 || cfg.Tracking.Token != "issue-token" {
		t.Fatalf("unexpected tracking %+v", cfg.Tracking)
	}
	if !reflect.DeepEqual(cfg.Workflow.Languages, []string{"Go", "Python"}) {
		t.Fatalf("unexpected languages %v", cfg.Workflow.Languages)
	}
	if cfg.Timing.PollInterval != 30*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.Timing.PollInterval)
	}
	if cfg.Runtime.RequireAllFeeds {
		t.Fatalf("expected require-all-feeds to be overridden")
	}
	if cfg.Output.GitHubOutput != "/tmp/gh-output" {
		t.Fatalf("unexpected github output %q", cfg.Output.GitHubOutput)
	}

	// Untouched values keep their defaults.
	if cfg.Timing.AfterFork != 5*time.Second || cfg.Output.ConsoleFormat != "text" {
		t.Fatalf("defaults were clobbered: %+v %+v", cfg.Timing, cfg.Output)
	}
}

func TestLoadEnvFrom_InvalidValue(t *testing.T) {
	cfg := New()
	if err := cfg.LoadEnvFrom(map[string]string{"FORKCHECK_TRACKING_ISSUE": "twelve"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate_ZeroTimeoutDisablesDeadline(t *testing.T) {
	cfg := validConfig()
	cfg.Runtime.Timeout = 0
	cfg.Timing.MaxPollAttempts = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unbounded polling with no deadline should validate: %v", err)
	}
}
