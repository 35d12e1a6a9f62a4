package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// config validation messages.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Target.Repo, flags.FlagRepo, "", "...")
//	arg := "--" + flags.FlagRepo
const (
	// Target
	FlagSourceOwner  = "source-owner"
	FlagWorkingOwner = "working-owner"
	FlagRepo         = "repo"
	FlagPersonalFork = "personal-fork"

	// Tracking
	FlagTrackingOwner = "tracking-owner"
	FlagTrackingRepo  = "tracking-repo"
	FlagTrackingIssue = "tracking-issue"

	// Workflow
	FlagWorkflowTemplate = "workflow-template"
	FlagWorkflowFile     = "workflow-file"
	FlagLanguages        = "languages"
	FlagCommitMessage    = "commit-message"

	// Timing
	FlagWaitAfterFork      = "wait-after-fork"
	FlagWaitAfterAlerts    = "wait-after-alerts"
	FlagWaitBeforeDispatch = "wait-before-dispatch"
	FlagWaitBeforePoll     = "wait-before-poll"
	FlagPollInterval       = "poll-interval"
	FlagWaitNoLanguages    = "wait-no-languages"
	FlagMaxPollAttempts    = "max-poll-attempts"

	// Output
	FlagConsoleFormat = "console-format"
	FlagReport        = "report"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagNoConsole     = "no-console"
	FlagGitHubOutput  = "github-output"

	// Runtime
	FlagTimeout         = "timeout"
	FlagVerbose         = "verbose"
	FlagRequireAllFeeds = "require-all-feeds"
	FlagAlertState      = "alert-state"
	FlagEnterpriseURL   = "enterprise-url"
)
