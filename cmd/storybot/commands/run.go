package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"storybot/selection"

	"github.com/spf13/cobra"
)

var (
	runSubreddits []string
	runPostIDs    []string
	runKeywords   []string
	runTimes      int
	runJSON       bool
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one selection pass and print the result",
		Long: `Run the configured number of iterations once and exit.

Flags override the source fields of the constraints file. Any of
--subreddit, --post or --keyword replaces all three.

Examples:
  storybot run
  storybot run --subreddit AskReddit --times 3
  storybot run --post abc123 --json`,
		RunE: runRun,
	}

	cmd.Flags().StringSliceVarP(&runSubreddits, "subreddit", "s", nil, "Subreddit to pick from (repeatable)")
	cmd.Flags().StringSliceVarP(&runPostIDs, "post", "p", nil, "Specific post id (repeatable)")
	cmd.Flags().StringSliceVarP(&runKeywords, "keyword", "k", nil, "Keyword to search for (repeatable)")
	cmd.Flags().IntVarP(&runTimes, "times", "n", 0, "Number of iterations (0 keeps the configured value)")
	cmd.Flags().BoolVar(&runJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cs, err := a.constraints.Override(runSubreddits, runPostIDs, runKeywords, runTimes)
	if err != nil {
		return err
	}

	res, err := a.ctrl.Run(ctx, cs)
	if res != nil {
		if perr := printResult(cmd.OutOrStdout(), res, runJSON); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

func printResult(w io.Writer, res *selection.RunResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "Run %s: %d selected, %d failed, %d attempts\n",
		res.RunID, len(res.Selections), len(res.Failures), res.Attempts)
	for _, sel := range res.Selections {
		item := sel.PostID
		if sel.CommentID != "" {
			item = sel.PostID + "/" + sel.CommentID
		}
		fmt.Fprintf(w, "  #%d r/%s %s %q (%d segments)\n",
			sel.Iteration, sel.Source, item, sel.Title, len(sel.Segments))
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  #%d failed after %d attempts: %v\n", f.Iteration, f.Attempts, f.Reasons)
	}
	if res.PublishFailures > 0 {
		fmt.Fprintf(w, "  %d selections could not be published\n", res.PublishFailures)
	}
	return nil
}
