package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the panel's keyboard bindings.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Logs       key.Binding
	Escape     key.Binding

	Home   key.Binding
	Level  key.Binding
	Gcode  key.Binding
	Preset key.Binding
	Repeat key.Binding

	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Logs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Toggle log view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Home: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "Home all axes (G28)"),
		),
		Level: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "Quad gantry level"),
		),
		Gcode: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "Send G-code"),
		),
		Preset: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "Apply material preset"),
		),
		Repeat: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Repeat last preset"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Send"),
		),
	}
}

// ShortHelp returns key bindings for the action bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Home, k.Level, k.Gcode, k.Logs, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Preset, k.Repeat, k.Home, k.Level, k.Gcode},
		{k.Logs, k.Escape, k.CycleTheme, k.Help, k.Quit},
	}
}
