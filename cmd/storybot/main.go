// Command storybot selects fresh posts and comments from Reddit and hands
// them to downstream narration.
package main

import (
	"fmt"
	"os"

	"storybot/cmd/storybot/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
