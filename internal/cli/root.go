package cli

import (
	"fmt"
	"os"

	"forkcheck/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "forkcheck",
	Short: "Fork a GitHub repository, scan it with CodeQL and decide whether the fork can be updated",
	Long: `forkcheck forks a GitHub repository into a working owner, enables Dependabot
alerts, injects and runs a CodeQL workflow, and classifies the resulting alerts
into a single merge decision: update-fork or needs-manual-check.

Examples:
	# Show available commands and global flags
	forkcheck --help

	# Check a repository
	forkcheck run --repo upstream/widgets --working-owner my-forks

	# List the GitHub actions forkcheck performs
	forkcheck actions list

	# Print build info
	forkcheck version

Output:
	By default, commands write human-readable output to stdout and logs to stderr.
	The run command also supports structured output (see "forkcheck run --help").`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, cfg.Runtime.Verbose, "Enable verbose logging (prints every GitHub API call and debug logs)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitUsage)
	}
}
