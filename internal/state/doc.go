// Package state provides the mirrored printer state shared between the
// status poller and its readers.
//
// # Overview
//
// The poller owns the only writable PrinterState. At the end of every cycle it
// hands a complete Snapshot to Store.Publish, which swaps an atomic pointer.
// Readers (the panel, the status API, headless logging) call Store.Snapshot
// and get a value copy; they never observe a half-applied refresh.
//
// # Consistency Hint
//
// BeginRefresh/Publish toggle Snapshot.Consistent. It is informational only:
// the pointer swap already guarantees whole snapshots. The panel uses it to
// show that a refresh is in flight.
//
// # Warnings
//
// Warnings raised by the printer host (HTTP 400 error envelopes) can arrive
// from the sender loop at any time, so they are stored beside the snapshot and
// merged into the copy returned by Snapshot.
package state
