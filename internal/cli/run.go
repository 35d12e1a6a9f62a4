package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"forkcheck/internal/config"
	"forkcheck/internal/engine"
	"forkcheck/internal/flags"
	gh "forkcheck/internal/github"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ExitUsage is returned for command line errors cobra reports itself.
const ExitUsage = engine.ExitFatal

// cfg starts from the defaults overlaid with FORKCHECK_* variables, so flag
// defaults show the effective value and explicit flags win over env.
var cfg, envErr = loadConfig()

func loadConfig() (*config.Config, error) {
	c := config.New()
	return c, c.LoadEnv()
}

const runHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	forkcheck authenticates to GitHub using an access token.

	Repository token sources (in order):
	1) GITHUB_TOKEN environment variable
	2) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

	Tracking-issue comments use FORKCHECK_ISSUE_TOKEN, or the repository token
	when it is unset.

	Every flag can also be set as FORKCHECK_<FLAG> (for example
	FORKCHECK_WORKING_OWNER). GITHUB_OUTPUT receives can-merge when set.

  Token guidance (brief):
  - The repository token must be able to delete and fork repositories in the
    working owner, write contents and workflows, and read security alerts
    (classic PAT: repo, workflow, delete_repo, security_events).
  - The issue token only needs to comment on the tracking repository.

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fork, scan and classify one repository",
	Long: `Fork a repository into the working owner and decide whether the fork can be updated.

WARNING: the working repository (WORKING_OWNER/REPO) is deleted before forking.
forkcheck refuses to delete it unless it is a fork of SOURCE_OWNER/REPO.

Steps:
	1. delete the stale working fork
	2. fork SOURCE_OWNER/REPO into WORKING_OWNER
	3. enable Dependabot vulnerability alerts
	4. publish a CodeQL workflow for the detected languages
	5. dispatch the workflow and poll until the run completes
	6. read CodeQL and Dependabot alerts; critical or high alerts block
	7. comment the outcome on the tracking issue (when configured)

	Repositories without a supported language skip CodeQL and are decided on
	Dependabot alerts alone.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON record or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown report
	- --github-output: append can-merge and scan-skipped to a GitHub Actions output file
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, step.finished, run.decided, run.finished).

Exit codes:
	0 = update-fork
	1 = needs-manual-check
	3 = fatal error (the run did not start)

Examples:
  # Token via environment variable
  export GITHUB_TOKEN="<your_token>"
  forkcheck run --repo upstream/widgets --working-owner my-forks

  # Comment the outcome on acme/tracker#7 with a separate token
  export FORKCHECK_ISSUE_TOKEN="<issue_token>"
  forkcheck run --repo upstream/widgets --working-owner my-forks --tracking-repo acme/tracker --tracking-issue 7

	# AI Agent: stream machine-readable events to stdout
	forkcheck run --repo upstream/widgets --working-owner my-forks --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 && cfg.Target.Repo == "" {
			_ = cmd.Help()
			return
		}
		os.Exit(runForkCheck(cmd.Context(), cfg, os.Stderr))
	},
}

// runForkCheck validates cfg, authenticates and runs the engine. It returns
// the process exit code.
func runForkCheck(parent context.Context, cfg *config.Config, stderr io.Writer) int {
	if envErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", envErr)
		return engine.ExitFatal
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}

	log := newLogger(cfg, stderr)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	if cfg.Runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Runtime.Timeout)
		defer cancel()
	}

	token, source, err := gh.ResolveAuthToken(ctx, "", cfg.Runtime.EnterpriseURL)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to resolve GitHub auth token: %v\n", err)
		return engine.ExitFatal
	}
	if strings.TrimSpace(token) == "" {
		fmt.Fprintln(stderr, "Error: GitHub auth token is required (set GITHUB_TOKEN or run 'gh auth login')")
		return engine.ExitFatal
	}
	log.WithField("source", source).Debug("resolved GitHub token")

	client, err := newClient(ctx, cfg, token, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create GitHub client: %v\n", err)
		return engine.ExitFatal
	}

	var issueClient *gh.Client
	if cfg.Tracking.Issue > 0 {
		issueClient, err = newClient(ctx, cfg, cfg.TrackingToken(token), stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to create GitHub client for the tracking issue: %v\n", err)
			return engine.ExitFatal
		}
	}

	return engine.NewEngine(client, issueClient, log).Run(ctx, cfg)
}

func newClient(ctx context.Context, cfg *config.Config, token string, stderr io.Writer) (*gh.Client, error) {
	return gh.NewClient(ctx, token,
		gh.WithVerbose(cfg.Runtime.Verbose, stderr),
		gh.WithEnterpriseURL(cfg.Runtime.EnterpriseURL),
	)
}

func newLogger(cfg *config.Config, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Runtime.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.SetHelpTemplate(runHelpTemplate)

	f := runCmd.Flags()

	// Target
	f.StringVar(&cfg.Target.SourceOwner, flags.FlagSourceOwner, cfg.Target.SourceOwner, "Owner of the repository to fork (name or URL)")
	f.StringVar(&cfg.Target.WorkingOwner, flags.FlagWorkingOwner, cfg.Target.WorkingOwner, "Owner that receives the fork (name or URL); its existing fork is deleted first")
	f.StringVar(&cfg.Target.Repo, flags.FlagRepo, cfg.Target.Repo, "Repository name, or SOURCE_OWNER/REPO")
	f.BoolVar(&cfg.Target.PersonalFork, flags.FlagPersonalFork, cfg.Target.PersonalFork, "Fork into the authenticated user's account instead of the working owner organization; --working-owner must be that user's login")

	// Tracking
	f.StringVar(&cfg.Tracking.Owner, flags.FlagTrackingOwner, cfg.Tracking.Owner, "Owner of the tracking repository")
	f.StringVar(&cfg.Tracking.Repo, flags.FlagTrackingRepo, cfg.Tracking.Repo, "Tracking repository name, or OWNER/REPO")
	f.IntVar(&cfg.Tracking.Issue, flags.FlagTrackingIssue, cfg.Tracking.Issue, "Issue number that receives the outcome comment (0 = no comment)")

	// Workflow
	f.StringVar(&cfg.Workflow.Template, flags.FlagWorkflowTemplate, cfg.Workflow.Template, "CodeQL workflow template path (default: bundled template)")
	f.StringVar(&cfg.Workflow.File, flags.FlagWorkflowFile, cfg.Workflow.File, "Workflow file name under .github/workflows")
	f.StringSliceVar(&cfg.Workflow.Languages, flags.FlagLanguages, cfg.Workflow.Languages, "Languages CodeQL may analyze (comma-separated accepted)")
	f.StringVar(&cfg.Workflow.CommitMessage, flags.FlagCommitMessage, cfg.Workflow.CommitMessage, "Commit message for the injected workflow")

	// Timing
	f.DurationVar(&cfg.Timing.AfterFork, flags.FlagWaitAfterFork, cfg.Timing.AfterFork, "Wait after creating the fork")
	f.DurationVar(&cfg.Timing.AfterAlerts, flags.FlagWaitAfterAlerts, cfg.Timing.AfterAlerts, "Wait after enabling Dependabot alerts")
	f.DurationVar(&cfg.Timing.BeforeDispatch, flags.FlagWaitBeforeDispatch, cfg.Timing.BeforeDispatch, "Wait between publishing and dispatching the workflow")
	f.DurationVar(&cfg.Timing.BeforePoll, flags.FlagWaitBeforePoll, cfg.Timing.BeforePoll, "Wait between dispatch and the first poll")
	f.DurationVar(&cfg.Timing.PollInterval, flags.FlagPollInterval, cfg.Timing.PollInterval, "Interval between workflow run polls")
	f.DurationVar(&cfg.Timing.NoLanguageWait, flags.FlagWaitNoLanguages, cfg.Timing.NoLanguageWait, "Wait for Dependabot analysis when CodeQL is skipped")
	f.IntVar(&cfg.Timing.MaxPollAttempts, flags.FlagMaxPollAttempts, cfg.Timing.MaxPollAttempts, "Maximum workflow run polls (0 = unbounded; --timeout still applies unless it is 0)")

	// Output
	f.StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, cfg.Output.ConsoleFormat, "Console output format: text|json|ndjson")
	f.StringVar(&cfg.Output.Report, flags.FlagReport, cfg.Output.Report, "Write a Markdown report to this path")
	f.StringVar(&cfg.Output.Out, flags.FlagOut, cfg.Output.Out, "Write structured output to this path")
	f.StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, cfg.Output.OutFormat, "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	f.StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, cfg.Output.Emit, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	f.BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, cfg.Output.NoConsole, "Suppress console output (use with --emit/--out/--report)")
	f.StringVar(&cfg.Output.GitHubOutput, flags.FlagGitHubOutput, cfg.Output.GitHubOutput, "GitHub Actions output file that receives can-merge (default: $GITHUB_OUTPUT)")

	// Runtime
	f.DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (0 = no deadline)")
	f.BoolVar(&cfg.Runtime.RequireAllFeeds, flags.FlagRequireAllFeeds, cfg.Runtime.RequireAllFeeds, "Require both alert feeds to be readable for update-fork")
	f.StringVar(&cfg.Runtime.AlertState, flags.FlagAlertState, cfg.Runtime.AlertState, "Alert state to consider: open|fixed|dismissed|... (empty = all)")
	f.StringVar(&cfg.Runtime.EnterpriseURL, flags.FlagEnterpriseURL, cfg.Runtime.EnterpriseURL, "GitHub Enterprise Server URL")
}
