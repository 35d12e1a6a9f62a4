package cli

import (
	"fmt"
	"io"

	"forkcheck/internal/actions"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var actionsListQuiet bool
var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the GitHub actions a run performs",
	Long: `Inspect the remote actions forkcheck performs against GitHub.

Every GitHub call a run makes is one of these named actions. Action names
appear in logs and in structured step output.

Examples:
  # List all actions
  forkcheck actions list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var actionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available actions",
	Long: `List all actions registered in this build, sorted by name.

Examples:
  forkcheck actions list
  forkcheck actions list --quiet
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, a := range actions.List() {
			if actionsListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), a.Name())
			} else {
				printAction(cmd.OutOrStdout(), a)
			}
		}
		return nil
	},
}

var actionsShowCmd = &cobra.Command{
	Use:   "show [action]",
	Short: "Show one action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ok := actions.Lookup(args[0])
		if !ok {
			return fmt.Errorf("action not found: %s", args[0])
		}
		printAction(cmd.OutOrStdout(), a)
		return nil
	},
}

func printAction(w io.Writer, a actions.Action) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "ACTION: %s\n", a.Name())
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, a.Description())
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.AddCommand(actionsListCmd)
	actionsListCmd.Flags().BoolVarP(&actionsListQuiet, "quiet", "q", false, "Only print action names")
	actionsCmd.AddCommand(actionsShowCmd)
}
