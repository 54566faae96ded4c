package app

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/five82/roost/internal/link"
	"github.com/five82/roost/internal/moonraker"
	"github.com/five82/roost/internal/state"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultFullRefresh  = 5 * time.Second
	fallbackTool        = "tool0"
)

// PrinterHost is the read side of the printer API the poller needs.
type PrinterHost interface {
	QueryReadiness(ctx context.Context) (string, error)
	QueryPrinter(ctx context.Context) (*moonraker.PrinterInfo, error)
	QueryProgress(ctx context.Context) (*moonraker.VirtualSDCard, error)
	QueryStatusMacro(ctx context.Context, macro string) (*moonraker.StatusMacro, error)
	Unconnected() bool
}

// LinkStatus reports connectivity.
type LinkStatus interface {
	Status() link.Status
}

// PollerOptions tune the poller. Zero values use defaults.
type PollerOptions struct {
	Interval    time.Duration
	FullRefresh time.Duration
	Tool        string
	StatusMacro string
	// Pending reports queued command depth for the snapshot.
	Pending func() int
}

// Poller mirrors printer state into a Store. Everything below the store
// pointer is owned by the Run goroutine.
type Poller struct {
	host        PrinterHost
	link        LinkStatus
	store       *state.Store
	logger      *zap.Logger
	interval    time.Duration
	fullRefresh time.Duration
	tool        string
	macro       string
	pending     func() int

	printer     state.PrinterState
	readiness   state.Readiness
	wasReady    bool
	lastRefresh time.Time
}

// NewPoller builds a poller. A nil link means the host is always polled.
func NewPoller(host PrinterHost, l LinkStatus, store *state.Store, logger *zap.Logger, opts PollerOptions) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{
		host:        host,
		link:        l,
		store:       store,
		logger:      logger.Named("poller"),
		interval:    opts.Interval,
		fullRefresh: opts.FullRefresh,
		tool:        opts.Tool,
		macro:       opts.StatusMacro,
		pending:     opts.Pending,
	}
	if p.interval <= 0 {
		p.interval = defaultPollInterval
	}
	if p.fullRefresh <= 0 {
		p.fullRefresh = defaultFullRefresh
	}
	if p.tool == "" {
		p.tool = fallbackTool
	}
	if p.pending == nil {
		p.pending = func() int { return 0 }
	}
	return p
}

// Run polls at the configured cadence until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.cycle(ctx, time.Now())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RefreshOnce queries readiness and, when the host is ready, runs the full
// refresh and progress once. It ignores the link monitor and returns the
// published snapshot.
func (p *Poller) RefreshOnce(ctx context.Context) state.Snapshot {
	p.store.BeginRefresh()
	p.readiness = p.queryReadiness(ctx)
	p.wasReady = p.readiness.Ready()
	if p.wasReady {
		p.refreshFull(ctx, time.Now())
		if p.printer.Printing {
			p.refreshProgress(ctx)
		}
	}
	p.publish(p.linkStatus())
	return p.store.Snapshot()
}

func (p *Poller) cycle(ctx context.Context, now time.Time) {
	status := p.linkStatus()
	if status == link.Connected {
		p.poll(ctx, now)
	} else {
		p.readiness = state.ReadinessUnknown
		p.wasReady = false
	}
	p.publish(status)
}

func (p *Poller) poll(ctx context.Context, now time.Time) {
	p.store.BeginRefresh()

	p.readiness = p.queryReadiness(ctx)
	ready := p.readiness.Ready()
	edge := ready && !p.wasReady
	p.wasReady = ready
	if !ready {
		return
	}

	if edge {
		p.logger.Info("printer became ready, refreshing")
	}
	if edge || now.Sub(p.lastRefresh) >= p.fullRefresh {
		p.refreshFull(ctx, now)
	}
	if p.printer.Printing {
		p.refreshProgress(ctx)
	}
}

func (p *Poller) queryReadiness(ctx context.Context) state.Readiness {
	hostState, err := p.host.QueryReadiness(ctx)
	if err != nil {
		p.logger.Debug("readiness query failed", zap.Error(err))
		return state.ReadinessUnknown
	}
	if hostState == "ready" {
		return state.ReadinessReady
	}
	return state.ReadinessNotReady
}

// refreshFull reads the status macro before /api/printer.
func (p *Poller) refreshFull(ctx context.Context, now time.Time) {
	p.lastRefresh = now

	if sm, err := p.host.QueryStatusMacro(ctx, p.macro); err != nil {
		p.logger.Debug("status macro query failed", zap.String("macro", p.macro), zap.Error(err))
	} else {
		applyStatusMacro(&p.printer, sm)
	}

	if info, err := p.host.QueryPrinter(ctx); err != nil {
		p.logger.Debug("printer query failed", zap.Error(err))
	} else {
		applyPrinterInfo(&p.printer, info, p.tool)
	}
}

func (p *Poller) refreshProgress(ctx context.Context) {
	sd, err := p.host.QueryProgress(ctx)
	if err != nil {
		p.logger.Debug("progress query failed", zap.Error(err))
		return
	}
	applyProgress(&p.printer, sd)
}

func (p *Poller) publish(status link.Status) {
	p.store.Publish(state.Snapshot{
		Printer:     p.printer,
		Readiness:   p.readiness,
		Link:        status,
		Unconnected: p.host.Unconnected(),
		Pending:     p.pending(),
		LastRefresh: p.lastRefresh,
	})
}

func (p *Poller) linkStatus() link.Status {
	if p.link != nil {
		return p.link.Status()
	}
	if p.host.Unconnected() {
		return link.Disconnected
	}
	return link.Connected
}

func applyStatusMacro(ps *state.PrinterState, sm *moonraker.StatusMacro) {
	setBool(&ps.Homing, sm.Homing)
	setBool(&ps.Probing, sm.Probing)
	setBool(&ps.QuadGantryLeveling, sm.Qgling)
	setBool(&ps.HeatingNozzle, sm.HeatingNozzle)
	setBool(&ps.HeatingBed, sm.HeatingBed)
}

// applyPrinterInfo recomputes pause and printing only when flags were sent;
// a flag missing from a present object counts as false.
func applyPrinterInfo(ps *state.PrinterState, info *moonraker.PrinterInfo, tool string) {
	if info.State != nil && info.State.Flags != nil {
		f := info.State.Flags
		ps.Pause = isSet(f.Pausing) || isSet(f.Paused)
		ps.Printing = isSet(f.Printing) || isSet(f.Cancelling) || ps.Pause
	}

	if bed, ok := info.Heater("bed"); ok {
		ps.BedActual = roundTemp(*bed.Actual)
		ps.BedTarget = roundTemp(*bed.Target)
	}

	nozzle, ok := info.Heater(tool)
	if !ok && tool != fallbackTool {
		nozzle, ok = info.Heater(fallbackTool)
	}
	if ok {
		ps.NozzleActual = roundTemp(*nozzle.Actual)
		ps.NozzleTarget = roundTemp(*nozzle.Target)
	}
}

func applyProgress(ps *state.PrinterState, sd *moonraker.VirtualSDCard) {
	if sd.Progress != nil {
		pct := int(math.Round(*sd.Progress * 100))
		ps.Progress = min(max(pct, 0), 100)
	}
	if sd.FilePath != nil {
		ps.FilePath = state.BaseName(*sd.FilePath)
	}
}

func roundTemp(v float64) int {
	return int(math.Round(v))
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func isSet(v *bool) bool {
	return v != nil && *v
}
