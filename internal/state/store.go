package state

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/five82/roost/internal/link"
)

// MaxFilePathLen bounds the mirrored file name, in runes.
const MaxFilePathLen = 64

// Readiness is the host's answer to "will you accept commands?".
type Readiness int

const (
	// ReadinessUnknown is the startup value and the result of a failed query.
	ReadinessUnknown Readiness = iota
	ReadinessNotReady
	ReadinessReady
)

// Ready reports whether commands may be sent.
func (r Readiness) Ready() bool {
	return r == ReadinessReady
}

func (r Readiness) String() string {
	switch r {
	case ReadinessReady:
		return "ready"
	case ReadinessNotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// MarshalText renders readiness by name in JSON payloads.
func (r Readiness) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// PrinterState mirrors what the printer host reports.
type PrinterState struct {
	Pause              bool   `json:"pause"`
	Printing           bool   `json:"printing"`
	Homing             bool   `json:"homing"`
	Probing            bool   `json:"probing"`
	QuadGantryLeveling bool   `json:"quadGantryLeveling"`
	HeatingNozzle      bool   `json:"heatingNozzle"`
	HeatingBed         bool   `json:"heatingBed"`
	BedActual          int    `json:"bedActual"`
	BedTarget          int    `json:"bedTarget"`
	NozzleActual       int    `json:"nozzleActual"`
	NozzleTarget       int    `json:"nozzleTarget"`
	Progress           int    `json:"progress"`
	FilePath           string `json:"filePath"`
}

// Activity returns the panel's one-word description, highest priority first.
func (p PrinterState) Activity() string {
	switch {
	case p.Pause:
		return "PAUSED"
	case p.Printing:
		return "PRINTING"
	case p.Homing:
		return "HOMING"
	case p.Probing:
		return "PROBING"
	case p.QuadGantryLeveling:
		return "QGL"
	case p.HeatingNozzle:
		return "HEATING NOZZLE"
	case p.HeatingBed:
		return "HEATING BED"
	default:
		return "IDLE"
	}
}

// Warning is a user-facing message raised by the printer host.
type Warning struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Snapshot is one immutable view of everything the UI shows.
type Snapshot struct {
	Printer     PrinterState `json:"printer"`
	Readiness   Readiness    `json:"readiness"`
	Link        link.Status  `json:"link"`
	Unconnected bool         `json:"unconnected"`
	Consistent  bool         `json:"consistent"`
	Pending     int          `json:"pending"`
	LastRefresh time.Time    `json:"lastRefresh"`
	LastWarning Warning      `json:"lastWarning"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Ready reports whether the panel may send commands.
func (s Snapshot) Ready() bool {
	return s.Link == link.Connected && s.Readiness.Ready()
}

// Offline is true when the link is down or the last GET never got a response.
func (s Snapshot) Offline() bool {
	return s.Link != link.Connected || s.Unconnected
}

// StatusText is the headline shown on the panel.
func (s Snapshot) StatusText() string {
	if s.Link != link.Connected {
		return "Connecting..."
	}
	if !s.Readiness.Ready() {
		return "Not ready"
	}
	return s.Printer.Activity()
}

// Store publishes snapshots. Publish replaces the whole snapshot with one
// atomic pointer swap, so readers never see half of a refresh.
type Store struct {
	current    atomic.Pointer[Snapshot]
	warning    atomic.Pointer[Warning]
	refreshing atomic.Bool
}

// BeginRefresh clears the consistency hint until the next Publish.
func (s *Store) BeginRefresh() {
	s.refreshing.Store(true)
}

// Publish makes snap the latest snapshot and sets the consistency hint.
func (s *Store) Publish(snap Snapshot) {
	snap.UpdatedAt = time.Now()
	snap.LastWarning = Warning{}
	s.current.Store(&snap)
	s.refreshing.Store(false)
}

// Warn records the latest warning. Safe from any goroutine.
func (s *Store) Warn(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	s.warning.Store(&Warning{Message: message, At: time.Now()})
}

// Snapshot returns a copy of the latest snapshot.
func (s *Store) Snapshot() Snapshot {
	var snap Snapshot
	if cur := s.current.Load(); cur != nil {
		snap = *cur
	}
	if w := s.warning.Load(); w != nil {
		snap.LastWarning = *w
	}
	snap.Consistent = !s.refreshing.Load()
	return snap
}

// BaseName strips any directory prefix from a host file path and bounds the
// result to MaxFilePathLen runes.
func BaseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	runes := []rune(path)
	if len(runes) > MaxFilePathLen {
		return string(runes[:MaxFilePathLen])
	}
	return path
}
