package tui

import (
	"fmt"
	"time"

	"storybot/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatusUpdate(msg)
	case StartRunMsg:
		return m.handleStartRun(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if m.Connected && !m.State.Busy() {
			return m, triggerRun(m.Client)
		}
	}
	return m, nil
}

// handleStatusUpdate syncs the model with the polled status
func (m Model) handleStatusUpdate(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil
	return m.apply(msg.Status), nil
}

// handleStartRun reports a rejected run request
func (m Model) handleStartRun(msg StartRunMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = fmt.Errorf("run not started: %w", msg.Err)
		return m, nil
	}
	m.State = types.StateFetching
	m.Logs = append(m.Logs, types.LogEntry{Timestamp: time.Now(), Message: "Run requested"})
	return m, pollStatus(m.Client)
}
