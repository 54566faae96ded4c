// Package app is the composition root of roost.
//
// # Overview
//
// NewRuntime builds every component from a config.Config and Run starts them
// inside one oklog/run group:
//
//	┌───────────────┐
//	│  link.Monitor │ 1s   TCP probe, owns the connectivity state
//	└───────┬───────┘
//	        │ Status()
//	        ├─────> Poller        200ms  readiness, macro, /api/printer, progress
//	        │                           └─> state.Store.Publish (atomic)
//	        └─────> queue.Sender  500ms  oldest queued command, POST once
//
//	control.Controller ──EnqueueAll──> queue.Queue
//	ui (Bubble Tea) and api (gin) read state.Store and call the Controller
//
// The panel actor is optional. Headless runs block until the context is
// cancelled. When any actor returns, the group interrupts the rest and Run
// waits for all of them.
//
// # Polling
//
// While the link is not Connected the poller sends nothing and publishes
// readiness Unknown. Once connected it queries readiness every cycle. A
// transition into ready, or FullRefresh elapsing since the last one, reads the
// status macro and then /api/printer. Print progress is only fetched while the
// printer reports printing or paused.
//
// # One-shot helpers
//
// Status and SendGcode serve the CLI subcommands. They skip the link monitor
// and the queue: Status queries readiness once and refreshes only a ready host,
// SendGcode validates and posts a script directly.
package app
