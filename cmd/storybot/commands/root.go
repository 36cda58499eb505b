package commands

import (
	"github.com/spf13/cobra"
)

var constraintsPath string

// NewRootCmd creates the storybot root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storybot",
		Short: "Select fresh Reddit stories and comments for narration",
		Long: `storybot picks posts or comments from Reddit, filters them against
the configured constraints, skips anything already used and splits the
winner into narration segments.

Configuration comes from the environment (a .env file is loaded when
present) and from the YAML constraints file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&constraintsPath, "config", "c", "", "Constraints file (overrides STORYBOT_CONFIG)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewListenCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
