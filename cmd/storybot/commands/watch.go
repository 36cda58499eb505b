package commands

import (
	"fmt"

	"storybot/demo/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var watchURL string

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a running storybot server",
		Long: `Open a terminal view of a storybot server started with 'storybot serve'.

The view polls the server status and can trigger a run with 'r'.`,
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&watchURL, "url", "", "Server URL (defaults to STORYBOT_URL)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	url := watchURL
	if url == "" {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		url = settings.APIURL
	}

	program := tea.NewProgram(tui.NewModel(url), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running watcher: %w", err)
	}
	return nil
}
