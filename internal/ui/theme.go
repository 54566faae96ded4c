package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette for the panel.
type Theme struct {
	Name string

	Background string // outermost background
	Surface    string // header and action bar
	SurfaceAlt string // panel body
	Border     string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// ActivityColors maps a printer activity (PRINTING, HOMING, ...) to a badge color.
	ActivityColors map[string]string
}

// Styles are the lipgloss styles built from a Theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header lipgloss.Style
	Body   lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style
	Key    lipgloss.Style

	activityColors map[string]string
	background     string
	faint          string
}

// Styles returns lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Body: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SurfaceAlt)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(1, 2),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),
		Key: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),

		activityColors: t.ActivityColors,
		background:     t.Background,
		faint:          t.Faint,
	}
}

// ActivityStyle returns the badge style for an activity label.
func (s Styles) ActivityStyle(activity string) lipgloss.Style {
	color := s.activityColors[activity]
	if color == "" {
		color = s.faint
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Bold(true).
		Padding(0, 1)
}

var themes = map[string]Theme{
	"Slate":    slateTheme(),
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
}

var themeOrder = []string{"Slate", "Nightfox", "Kanagawa"}

// GetTheme returns a theme by name, falling back to Slate.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return slateTheme()
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names in cycle order.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette
	return Theme{
		Name:       "Slate",
		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800
		Border:     "#334155", // slate-700

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		ActivityColors: map[string]string{
			"PAUSED":         "#f59e0b", // amber-500
			"PRINTING":       "#22c55e", // green-500
			"HOMING":         "#38bdf8", // sky-400
			"PROBING":        "#0ea5e9", // sky-500
			"QGL":            "#06b6d4", // cyan-500
			"HEATING NOZZLE": "#ea580c", // orange-600
			"HEATING BED":    "#f97316", // orange-500
			"IDLE":           "#64748b", // slate-500
		},
	}
}

func nightfoxTheme() Theme {
	// Nightfox palette
	return Theme{
		Name:       "Nightfox",
		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		SurfaceAlt: "#212e3f", // bg2
		Border:     "#39506d", // bg4

		Text:    "#cdcecf", // fg1
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan

		ActivityColors: map[string]string{
			"PAUSED":         "#dbc074", // yellow
			"PRINTING":       "#81b29a", // green
			"HOMING":         "#719cd6", // blue
			"PROBING":        "#63cdcf", // cyan
			"QGL":            "#9d79d6", // magenta
			"HEATING NOZZLE": "#f4a261", // orange
			"HEATING BED":    "#f4a261", // orange
			"IDLE":           "#738091", // comment
		},
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette
	return Theme{
		Name:       "Kanagawa",
		Background: "#16161D", // sumiInk0
		Surface:    "#1F1F28", // sumiInk3
		SurfaceAlt: "#2A2A37", // sumiInk4
		Border:     "#54546D", // sumiInk6

		Text:    "#DCD7BA", // fujiWhite
		Muted:   "#C8C093", // oldWhite
		Faint:   "#727169", // fujiGray
		Accent:  "#7E9CD8", // crystalBlue
		Success: "#98BB6C", // springGreen
		Warning: "#E6C384", // carpYellow
		Danger:  "#E46876", // waveRed
		Info:    "#7FB4CA", // springBlue

		ActivityColors: map[string]string{
			"PAUSED":         "#E6C384", // carpYellow
			"PRINTING":       "#98BB6C", // springGreen
			"HOMING":         "#7E9CD8", // crystalBlue
			"PROBING":        "#7FB4CA", // springBlue
			"QGL":            "#957FB8", // oniViolet
			"HEATING NOZZLE": "#FFA066", // surimiOrange
			"HEATING BED":    "#FFA066", // surimiOrange
			"IDLE":           "#727169", // fujiGray
		},
	}
}
