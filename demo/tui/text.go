package tui

// UI Text Constants
const (
	TextFooterIdle    = "Press 'r' to start a run | Press 'q' to detach"
	TextFooterRunning = "Press 'q' to detach (the run continues)"

	previewLength = 200
)
