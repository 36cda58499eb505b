package selection

import (
	"fmt"
	"sync"
	"time"

	"storybot/types"
)

const maxLogs = 50

// Status holds the controller's progress with thread-safe access, for the
// HTTP API and the TUI.
type Status struct {
	mu sync.RWMutex

	state     types.State
	runID     string
	iteration int
	attempt   int

	selections int
	failed     int
	last       *types.Selection

	logs    []types.LogEntry
	lastErr error
}

// NewStatus creates an idle Status
func NewStatus() *Status {
	return &Status{
		state: types.StateIdle,
		logs:  make([]types.LogEntry, 0),
	}
}

// begin claims the status for a new run; false if one is in progress
func (s *Status) begin(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy() {
		return false
	}
	s.state = types.StateFetching
	s.runID = runID
	s.iteration, s.attempt = 0, 0
	s.selections, s.failed = 0, 0
	s.last = nil
	s.lastErr = nil
	s.appendLog(fmt.Sprintf("Run %s started", runID))
	return true
}

// Busy reports whether a run is in progress
func (s *Status) Busy() bool {
	return s.State().Busy()
}

// AddLog adds a log entry
func (s *Status) AddLog(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLog(message)
}

// must hold lock
func (s *Status) appendLog(message string) {
	s.logs = append(s.logs, types.LogEntry{Timestamp: time.Now(), Message: message})
	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
}

// SetState sets the current state
func (s *Status) SetState(state types.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// State returns the current state
func (s *Status) State() types.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Status) setPosition(iteration, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration = iteration
	s.attempt = attempt
}

func (s *Status) addSelection(sel *types.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections++
	s.last = sel
}

func (s *Status) addFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

// SetError moves to the error state and logs err
func (s *Status) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = types.StateError
	s.lastErr = err
	s.appendLog(fmt.Sprintf("Error: %v", err))
}

// GetStatus returns a snapshot of the current state
func (s *Status) GetStatus() types.StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := types.StatusResponse{
		State:          s.state,
		RunID:          s.runID,
		Iteration:      s.iteration,
		Attempt:        s.attempt,
		SelectionCount: s.selections,
		FailedCount:    s.failed,
		LastSelection:  s.last,
		Logs:           append([]types.LogEntry{}, s.logs...),
	}
	if s.lastErr != nil {
		resp.Error = s.lastErr.Error()
	}
	return resp
}
