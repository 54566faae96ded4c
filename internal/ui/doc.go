// Package ui implements roost's terminal panel with Bubble Tea.
//
// The panel is a consumer and a producer: every tick it copies the latest
// state.Snapshot out of the store, and key presses become Controller calls
// that queue G-code. It never talks to the printer host itself.
//
// # Views
//
//   - Panel: link indicator, activity, nozzle and bed temperatures, job
//     progress and file, material presets
//   - Logs: the tail of roost's JSON log file, decoded by logtail
//
// Overlays sit on top of either view: the help screen (?), the G-code prompt
// (:) and the printer warning popup. A warning stays up until a key is
// pressed and is shown once per message.
//
// # Keys
//
//	1-9   apply material preset      h   home (G28)
//	p     repeat last preset         g   QUAD_GANTRY_LEVEL
//	:     send G-code                l   toggle log view
//	T     cycle theme                ?   help
//	q     quit
//
// Action results are flashed in the footer: "queued", or why the action was
// refused (offline, not ready, busy, invalid G-code).
//
// # Preferences
//
// The theme and the last applied preset are written to prefs.toml whenever
// they change.
package ui
