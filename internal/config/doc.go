// Package config handles loading and parsing roost configuration files.
//
// # Overview
//
// roost reads a single TOML file at startup to learn where the printer host
// lives and how the panel should behave. The resulting Config is copied into
// every component and never changes while the process runs.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/roost/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Moonraker port: 7125
//   - Tool: tool0
//   - Status macro: _CROWPANEL_STATUS
//   - Link probe timeout: 1s
//   - Log file: ~/.local/state/roost/roost.log
//   - Presets: PLA 220/40, ABS 250/100
//   - Local status API: disabled
//
// The host has no default. Callers that need to reach the printer call
// Config.Validate before starting any loop.
//
// # TOML Format
//
//	log_level = "info"
//	log_file = "~/.local/state/roost/roost.log"
//
//	[moonraker]
//	host = "192.168.1.50"
//	port = "7125"
//	tool = "tool0"
//	status_macro = "_CROWPANEL_STATUS"
//
//	[link]
//	probe_timeout_ms = 1000
//
//	[api]
//	listen = "127.0.0.1:7130"
//
//	[[preset]]
//	name = "PETG"
//	nozzle = 240
//	bed = 80
//
// Declaring any [[preset]] replaces the default preset list. Presets with an
// empty name or negative temperatures are dropped.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
package config
