package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/roost/internal/config"
	"github.com/five82/roost/internal/state"
)

const labelWidth = 10

func (m Model) renderMain() string {
	var body string
	switch m.view {
	case ViewLogs:
		body = m.renderLogs()
	default:
		body = m.renderPanel()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFooter(),
	)
}

// renderPanel shows temperatures, job progress and presets.
func (m Model) renderPanel() string {
	styles := m.theme.Styles()
	ps := m.snapshot.Printer
	label := styles.MutedText.Width(labelWidth)

	rows := []string{
		label.Render("Nozzle") + m.renderTemp(styles, ps.NozzleActual, ps.NozzleTarget, ps.HeatingNozzle),
		label.Render("Bed") + m.renderTemp(styles, ps.BedActual, ps.BedTarget, ps.HeatingBed),
		"",
	}
	if ps.Printing {
		rows = append(rows,
			label.Render("Progress")+m.bar.ViewAs(float64(ps.Progress)/100)+" "+styles.Text.Render(fmt.Sprintf("%3d%%", ps.Progress)),
			label.Render("File")+styles.Text.Render(displayFile(ps.FilePath)),
		)
	} else {
		rows = append(rows, label.Render("Job")+styles.FaintText.Render("none"))
	}

	if m.control != nil {
		rows = append(rows, "", label.Render("Presets")+m.renderPresets(styles, m.control.Presets()))
	}

	height := max(m.height-2, 0)
	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Padding(1, 2).
		Width(m.width).
		Height(height).
		Render(strings.Join(rows, "\n"))
}

func (m Model) renderTemp(styles Styles, actual, target int, heating bool) string {
	text := formatTemp(actual, target)
	switch {
	case heating:
		return styles.WarningText.Render(text)
	case target > 0:
		return styles.SuccessText.Render(text)
	default:
		return styles.Text.Render(text)
	}
}

func (m Model) renderPresets(styles Styles, presets []config.Preset) string {
	if len(presets) == 0 {
		return styles.FaintText.Render("none configured")
	}
	parts := make([]string, 0, len(presets))
	for i, p := range presets {
		if i >= 9 {
			break
		}
		name := p.Name
		if strings.EqualFold(name, m.lastPreset) {
			name = styles.AccentText.Render(name)
		} else {
			name = styles.Text.Render(name)
		}
		parts = append(parts, fmt.Sprintf("%s %s %s",
			styles.Key.Render(fmt.Sprintf("[%d]", i+1)),
			name,
			styles.FaintText.Render(fmt.Sprintf("%d/%d", p.Nozzle, p.Bed))))
	}
	return strings.Join(parts, "   ")
}

// renderFooter shows the G-code prompt, the last action result or key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	footer := styles.Footer.Width(m.width)

	if m.inputActive {
		return footer.Render(m.input.View())
	}
	if m.flash.text != "" && !m.flash.at.IsZero() && m.lastUpdated.Sub(m.flash.at) < flashTTL {
		style := styles.SuccessText
		if m.flash.isErr {
			style = styles.DangerText
		}
		return footer.Render(style.Render(m.flash.text))
	}

	hints := make([]string, 0, 6)
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, styles.Key.Render(h.Key)+" "+styles.MutedText.Render(h.Desc))
	}
	return footer.Render(strings.Join(hints, "  "))
}

// renderWarning shows the host's last error message as a modal.
func (m Model) renderWarning() string {
	styles := m.theme.Styles()
	w := m.snapshot.LastWarning

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.DangerText.Render("Printer warning"),
		"",
		styles.Text.Render(w.Message),
		"",
		styles.FaintText.Render(w.At.Format("15:04:05")+"  press any key"),
	)
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Danger)).
		Padding(1, 2).
		Width(min(max(m.width-10, 30), 70)).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

// formatTemp renders "actual / target °C", or just actual when no target is set.
func formatTemp(actual, target int) string {
	if target <= 0 {
		return fmt.Sprintf("%d °C", actual)
	}
	return fmt.Sprintf("%d / %d °C", actual, target)
}

func displayFile(name string) string {
	if name == "" {
		return "-"
	}
	return truncateMiddle(name, state.MaxFilePathLen/2+8)
}

// truncateMiddle shortens s to limit runes, keeping both ends.
func truncateMiddle(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit || limit < 5 {
		return s
	}
	keep := limit - 1
	head := keep / 2
	tail := keep - head
	return string(runes[:head]) + "…" + string(runes[len(runes)-tail:])
}
