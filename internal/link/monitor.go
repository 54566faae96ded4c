package link

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Link is the network path to the printer host.
type Link interface {
	// Check reports the current link state. It should return quickly.
	Check(ctx context.Context) LinkState
	// Reconnect re-issues the stored target so the next Check starts fresh.
	Reconnect(ctx context.Context) error
}

const (
	defaultInterval = time.Second
	defaultCooldown = 5 * time.Second
)

// MonitorOptions tune the monitor's timing. Zero values use defaults.
type MonitorOptions struct {
	Interval time.Duration
	Cooldown time.Duration
}

// Monitor owns the connectivity state. Run is its only writer; Status may be
// called from any goroutine.
type Monitor struct {
	link     Link
	logger   *zap.Logger
	interval time.Duration
	cooldown time.Duration

	status     atomic.Int32
	errorSince time.Time
}

// NewMonitor builds a monitor starting in Disconnected.
func NewMonitor(l Link, logger *zap.Logger, opts MonitorOptions) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		link:     l,
		logger:   logger.Named("link"),
		interval: opts.Interval,
		cooldown: opts.Cooldown,
	}
	if m.interval <= 0 {
		m.interval = defaultInterval
	}
	if m.cooldown <= 0 {
		m.cooldown = defaultCooldown
	}
	return m
}

// Status returns the current connectivity state.
func (m *Monitor) Status() Status {
	return Status(m.status.Load())
}

// Run drives the state machine until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.step(ctx, time.Now())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) step(ctx context.Context, now time.Time) {
	current := m.Status()

	if current == Error {
		if now.Sub(m.errorSince) >= m.cooldown {
			m.set(Disconnected)
		}
		return
	}

	state := m.link.Check(ctx)

	switch current {
	case Connected:
		if state == LinkUp {
			return
		}
		m.set(Connecting)
		m.reconnect(ctx)
	case Connecting, Disconnected:
		switch state {
		case LinkUp:
			m.set(Connected)
		case LinkFailed:
			m.errorSince = now
			m.set(Error)
		case LinkDown:
			if current == Disconnected {
				m.reconnect(ctx)
				m.set(Connecting)
			}
		}
	}
}

func (m *Monitor) reconnect(ctx context.Context) {
	if err := m.link.Reconnect(ctx); err != nil {
		m.logger.Debug("reconnect failed", zap.Error(err))
	}
}

func (m *Monitor) set(next Status) {
	prev := Status(m.status.Swap(int32(next)))
	if prev != next {
		m.logger.Info("connectivity changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", next))
	}
}
