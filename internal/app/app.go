package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"go.uber.org/zap"

	"github.com/five82/roost/internal/api"
	"github.com/five82/roost/internal/config"
	"github.com/five82/roost/internal/control"
	"github.com/five82/roost/internal/link"
	"github.com/five82/roost/internal/moonraker"
	"github.com/five82/roost/internal/prefs"
	"github.com/five82/roost/internal/queue"
	"github.com/five82/roost/internal/state"
	"github.com/five82/roost/internal/ui"
)

// Options configure a roost run.
type Options struct {
	Config    config.Config
	Logger    *zap.Logger
	PrefsPath string // empty uses ~/.config/roost/prefs.toml
	LogPath   string // file the logger writes to; shown in the log view
	Headless  bool   // no panel; run until ctx is cancelled
}

// Runtime holds the wired components of one roost process.
type Runtime struct {
	Store   *state.Store
	Queue   *queue.Queue
	Client  *moonraker.Client
	Monitor *link.Monitor
	Poller  *Poller
	Sender  *queue.Sender
	Control *control.Controller
	API     *api.Server // nil when the status API is disabled
	cfg     config.Config
	logger  *zap.Logger
}

// NewRuntime wires every component from cfg without starting anything.
func NewRuntime(cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store := &state.Store{}
	client, err := moonraker.NewClient(cfg.Host, cfg.Port, moonraker.Options{
		Warnings: store.Warn,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init moonraker client: %w", err)
	}

	probe := link.NewProbe(cfg.Address(), cfg.ProbeTimeout)
	probe.OnReconnect(client.CloseIdleConnections)
	monitor := link.NewMonitor(probe, logger, link.MonitorOptions{})

	q := &queue.Queue{}
	rt := &Runtime{
		Store:   store,
		Queue:   q,
		Client:  client,
		Monitor: monitor,
		Poller: NewPoller(client, monitor, store, logger, PollerOptions{
			Tool:        cfg.Tool,
			StatusMacro: cfg.StatusMacro,
			Pending:     q.Len,
		}),
		Control: control.New(store, q, cfg.Presets, logger),
		cfg:     cfg,
		logger:  logger,
	}
	rt.Sender = queue.NewSender(q, client, monitor, logger, queue.SenderOptions{})

	if cfg.APIListen != "" {
		gin.SetMode(gin.ReleaseMode)
		rt.API = api.NewServer(cfg.APIListen, store, rt.Control, logger, api.Options{Queue: q})
	}
	return rt, nil
}

// Run boots roost until ctx is cancelled or the panel quits.
func Run(ctx context.Context, opts Options) error {
	rt, err := NewRuntime(opts.Config, opts.Logger)
	if err != nil {
		return err
	}

	var uiOpts *ui.Options
	if !opts.Headless {
		prefsPath := opts.PrefsPath
		if prefsPath == "" {
			prefsPath = prefs.DefaultPath()
		}
		userPrefs := prefs.Load(prefsPath)
		uiOpts = &ui.Options{
			Store:      rt.Store,
			Control:    rt.Control,
			Address:    rt.cfg.Address(),
			PrefsPath:  prefsPath,
			LogPath:    opts.LogPath,
			ThemeName:  userPrefs.Theme,
			LastPreset: userPrefs.LastPreset,
		}
	}
	return rt.run(ctx, uiOpts)
}

func (rt *Runtime) run(ctx context.Context, uiOpts *ui.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group
	addLoop := func(name string, loop func(context.Context) error) {
		loopCtx, stop := context.WithCancel(ctx)
		g.Add(func() error {
			rt.logger.Debug("loop started", zap.String("loop", name))
			return loop(loopCtx)
		}, func(error) {
			stop()
		})
	}

	addLoop("link", rt.Monitor.Run)
	addLoop("poller", rt.Poller.Run)
	addLoop("sender", rt.Sender.Run)
	if rt.API != nil {
		addLoop("api", rt.API.Run)
	}

	if uiOpts != nil {
		opts := *uiOpts
		g.Add(func() error {
			return ui.Run(ctx, opts)
		}, func(error) {
			cancel()
		})
	} else {
		g.Add(func() error {
			<-ctx.Done()
			return ctx.Err()
		}, func(error) {
			cancel()
		})
	}

	rt.logger.Info("roost started",
		zap.String("printer", rt.Client.BaseURL()),
		zap.String("api", rt.cfg.APIListen),
		zap.Bool("panel", uiOpts != nil))

	err := g.Run()
	rt.Client.CloseIdleConnections()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		rt.logger.Info("roost stopped")
		return nil
	}
	return err
}

// Status runs one refresh cycle against the printer and returns the result.
// The link monitor is not started; connectivity is inferred from responses.
func Status(ctx context.Context, cfg config.Config, logger *zap.Logger) (state.Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return state.Snapshot{}, fmt.Errorf("invalid config: %w", err)
	}
	store := &state.Store{}
	client, err := moonraker.NewClient(cfg.Host, cfg.Port, moonraker.Options{
		Warnings: store.Warn,
		Logger:   logger,
	})
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("init moonraker client: %w", err)
	}
	defer client.CloseIdleConnections()

	poller := NewPoller(client, nil, store, logger, PollerOptions{
		Tool:        cfg.Tool,
		StatusMacro: cfg.StatusMacro,
	})
	return poller.RefreshOnce(ctx), nil
}

// SendGcode validates script and posts it once through the executor, bypassing
// the queue and the readiness gate.
func SendGcode(ctx context.Context, cfg config.Config, logger *zap.Logger, script string) (moonraker.Result, error) {
	if err := cfg.Validate(); err != nil {
		return moonraker.Result{}, fmt.Errorf("invalid config: %w", err)
	}
	script, err := control.ValidateGcode(script)
	if err != nil {
		return moonraker.Result{}, err
	}
	client, err := moonraker.NewClient(cfg.Host, cfg.Port, moonraker.Options{Logger: logger})
	if err != nil {
		return moonraker.Result{}, fmt.Errorf("init moonraker client: %w", err)
	}
	defer client.CloseIdleConnections()

	return client.Execute(ctx, http.MethodPost, moonraker.GcodePath(script)), nil
}
