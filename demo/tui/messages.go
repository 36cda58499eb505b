package tui

import (
	"time"

	"storybot/types"
)

// StatusUpdateMsg is sent when we receive status from the server
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// StartRunMsg is sent when the run request returns
type StartRunMsg struct {
	Err error
}
