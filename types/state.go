package types

import "time"

// State represents the selection controller state machine
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateFiltering  State = "filtering"
	StateDedupCheck State = "dedup-check"
	StateRecording  State = "recording"
	StateSegmenting State = "segmenting"
	StateEmitting   State = "emitting"
	StateBackoff    State = "backoff"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// Busy reports whether a run is in progress in this state
func (s State) Busy() bool {
	switch s {
	case StateIdle, StateComplete, StateError, "":
		return false
	}
	return true
}

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	State          State      `json:"state"`
	RunID          string     `json:"run_id,omitempty"`
	Iteration      int        `json:"iteration"`
	Attempt        int        `json:"attempt"`
	SelectionCount int        `json:"selection_count"`
	FailedCount    int        `json:"failed_count"`
	LastSelection  *Selection `json:"last_selection,omitempty"`
	Logs           []LogEntry `json:"logs"`
	Error          string     `json:"error,omitempty"`
}
