package tui

import (
	"fmt"
	"strings"

	"storybot/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the watcher state, synced from the server on every poll
type Model struct {
	Client *Client

	State          types.State
	RunID          string
	Iteration      int
	Attempt        int
	SelectionCount int
	FailedCount    int
	LastSelection  *types.Selection
	Logs           []types.LogEntry
	ServerError    string
	Err            error

	Connected bool
}

// NewModel creates a new watcher model
func NewModel(baseURL string) Model {
	return Model{
		Client: NewClient(baseURL),
		State:  types.StateIdle,
		Logs:   make([]types.LogEntry, 0),
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollStatus(m.Client),
		tickCmd(),
	)
}

// apply copies a server status into the model
func (m Model) apply(s *types.StatusResponse) Model {
	m.State = s.State
	m.RunID = s.RunID
	m.Iteration = s.Iteration
	m.Attempt = s.Attempt
	m.SelectionCount = s.SelectionCount
	m.FailedCount = s.FailedCount
	m.LastSelection = s.LastSelection
	m.Logs = s.Logs
	m.ServerError = s.Error
	return m
}

// getStateText returns the line describing the current state
func (m Model) getStateText() string {
	if !m.Connected {
		return ErrorStyle.Render("❌ Not connected to storybot")
	}

	switch m.State {
	case types.StateIdle:
		return HighlightStyle.Render("👋 Ready to start!")
	case types.StateFetching:
		return StatusStyle.Render("⏳ Fetching candidates...")
	case types.StateFiltering:
		return StatusStyle.Render("🔍 Filtering candidates...")
	case types.StateDedupCheck:
		return StatusStyle.Render("🧾 Checking the ledger...")
	case types.StateRecording:
		return StatusStyle.Render("📝 Recording selection...")
	case types.StateSegmenting:
		return StatusStyle.Render("✂️  Segmenting text...")
	case types.StateEmitting:
		return StatusStyle.Render("📤 Emitting selection...")
	case types.StateBackoff:
		return WarningStyle.Render("⏰ Backing off after a transient error...")
	case types.StateComplete:
		return HighlightStyle.Render("✅ COMPLETE")
	case types.StateError:
		errMsg := m.ServerError
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %s", errMsg))
	default:
		return string(m.State)
	}
}

// formatSelection formats the last selection for display
func (m Model) formatSelection() string {
	sel := m.LastSelection
	var b strings.Builder

	b.WriteString(HighlightStyle.Render("Last Selection"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Title: %s\n", StatusStyle.Render(sel.Title)))
	b.WriteString(fmt.Sprintf("Source: r/%s  Post: %s\n", sel.Source, sel.PostID))
	if sel.CommentID != "" {
		b.WriteString(fmt.Sprintf("Comment: %s\n", sel.CommentID))
	}
	b.WriteString(fmt.Sprintf("Segments: %d\n\n", len(sel.Segments)))

	preview := sel.Text
	if len(preview) > previewLength {
		preview = preview[:previewLength] + "..."
	}
	b.WriteString(InfoStyle.Render(preview))

	return b.String()
}
