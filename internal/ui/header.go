package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/roost/internal/link"
)

// renderHeader renders the status bar: logo, link, activity, host, pending.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot

	parts := []string{
		bg.Render("roost", styles.Logo),
		m.renderLinkIndicator(styles, bg),
	}

	status := snap.StatusText()
	switch {
	case snap.Link != link.Connected:
		parts = append(parts, bg.Render(status, styles.WarningText.Bold(true)))
	case !snap.Readiness.Ready():
		parts = append(parts, bg.Render(status, styles.DangerText))
	default:
		parts = append(parts, styles.ActivityStyle(status).Render(status))
	}

	if m.address != "" && m.width >= 80 {
		parts = append(parts, bg.Render(m.address, styles.MutedText))
	}
	if snap.Pending > 0 {
		parts = append(parts,
			bg.Render("Queue:", styles.MutedText)+bg.Spaces(1)+
				bg.Render(fmt.Sprintf("%d", snap.Pending), styles.Text))
	}
	if !snap.Consistent {
		parts = append(parts, bg.Render("…", styles.FaintText))
	}
	if !m.lastUpdated.IsZero() {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Padding(0, 1).
		Width(m.width).
		Render(bg.Join(parts, 2))
}

func (m Model) renderLinkIndicator(styles Styles, bg BgStyle) string {
	snap := m.snapshot
	switch {
	case snap.Link == link.Error:
		return bg.Render("● LINK ERROR", styles.DangerText)
	case snap.Link != link.Connected:
		return bg.Render("● "+linkLabel(snap.Link), styles.WarningText.Bold(true))
	case snap.Unconnected:
		return bg.Render("● NO RESPONSE", styles.DangerText)
	default:
		return bg.Render("● ONLINE", styles.SuccessText)
	}
}

func linkLabel(s link.Status) string {
	switch s {
	case link.Connecting:
		return "CONNECTING"
	case link.Disconnected:
		return "OFFLINE"
	default:
		return "ONLINE"
	}
}
