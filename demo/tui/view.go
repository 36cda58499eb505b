package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🤖 Storybot"))
	b.WriteString("\n\n")

	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	if m.RunID != "" {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("🆔 Run: %s", m.RunID)))
		b.WriteString("\n")
		stats := fmt.Sprintf("📊 Iteration: %d | Attempt: %d | Selected: %d | Failed: %d",
			m.Iteration, m.Attempt, m.SelectionCount, m.FailedCount)
		b.WriteString(InfoStyle.Render(stats))
		b.WriteString("\n\n")
	}

	if m.Err != nil {
		b.WriteString(WarningStyle.Render("⚠️  " + m.Err.Error()))
		b.WriteString("\n\n")
	}

	if len(m.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, entry := range m.Logs {
			line := fmt.Sprintf("   %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.LastSelection != nil {
		b.WriteString(BoxStyle.Render(m.formatSelection()))
		b.WriteString("\n\n")
	}

	if m.State.Busy() {
		b.WriteString(InfoStyle.Render(TextFooterRunning))
	} else {
		b.WriteString(InfoStyle.Render(TextFooterIdle))
	}

	return b.String()
}
