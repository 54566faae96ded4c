package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/roost/internal/logtail"
)

// renderLogs shows the tail of roost's own log file, newest at the bottom.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	height := max(m.height-2, 1)
	box := lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Padding(0, 1).
		Width(m.width).
		Height(height)

	switch {
	case m.logPath == "":
		return box.Render(styles.FaintText.Render("Logging to the terminal; no log file to show."))
	case m.logs.err != nil:
		return box.Render(styles.DangerText.Render("Log unavailable: " + m.logs.err.Error()))
	case len(m.logs.entries) == 0:
		return box.Render(styles.FaintText.Render("No log entries yet in " + m.logPath))
	}

	visible := m.logs.entries
	if len(visible) > height {
		visible = visible[len(visible)-height:]
	}
	lines := make([]string, 0, len(visible))
	width := max(m.width-2, 10)
	for _, e := range visible {
		lines = append(lines, truncateRight(m.styleEntry(styles, e), e, width))
	}
	return box.Render(strings.Join(lines, "\n"))
}

func (m Model) styleEntry(styles Styles, e logtail.Entry) string {
	switch e.Level {
	case "error", "dpanic", "panic", "fatal":
		return styles.DangerText.Render(e.String())
	case "warn":
		return styles.WarningText.Render(e.String())
	case "debug":
		return styles.FaintText.Render(e.String())
	default:
		return styles.Text.Render(e.String())
	}
}

// truncateRight keeps a styled line within width; long entries are re-rendered
// from their plain text.
func truncateRight(styled string, e logtail.Entry, width int) string {
	if lipgloss.Width(styled) <= width {
		return styled
	}
	plain := []rune(e.String())
	if len(plain) > width-1 {
		plain = plain[:width-1]
	}
	return string(plain) + "…"
}
