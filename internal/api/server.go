// Package api serves roost's snapshot and panel actions over local HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/five82/roost/internal/config"
	"github.com/five82/roost/internal/queue"
	"github.com/five82/roost/internal/state"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 3 * time.Second
)

// SnapshotSource provides the latest printer view.
type SnapshotSource interface {
	Snapshot() state.Snapshot
}

// Controller performs panel actions.
type Controller interface {
	Home() error
	QuadGantryLevel() error
	ApplyPreset(name string) (config.Preset, error)
	SendGcode(script string) error
	Presets() []config.Preset
}

// QueueSource lists commands waiting to be sent.
type QueueSource interface {
	Pending() []queue.Command
	Cap() int
}

// Options tune the server. Zero values use defaults.
type Options struct {
	PushInterval time.Duration
	// Queue, when set, is exposed at GET /api/queue.
	Queue QueueSource
}

// Server wires HTTP routes to the store and controller.
type Server struct {
	snapshots    SnapshotSource
	control      Controller
	queue        QueueSource
	logger       *zap.Logger
	pushInterval time.Duration
	http         *http.Server
}

// NewServer builds a server listening on addr.
func NewServer(addr string, snapshots SnapshotSource, ctrl Controller, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		snapshots:    snapshots,
		control:      ctrl,
		queue:        opts.Queue,
		logger:       logger.Named("api"),
		pushInterval: opts.PushInterval,
	}
	if s.pushInterval <= 0 {
		s.pushInterval = defaultPushInterval
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Routes builds the gin engine with every route registered.
func (s *Server) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog)

	api := router.Group("/api")
	{
		api.GET("/state", s.getState)
		api.GET("/presets", s.getPresets)
		api.POST("/presets/:name", s.applyPreset)
		api.POST("/gcode", s.sendGcode)
		api.POST("/home", s.home)
		api.POST("/qgl", s.quadGantryLevel)
		api.GET("/ws", s.wsConnect)
		if s.queue != nil {
			api.GET("/queue", s.getQueue)
		}
	}
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status api listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)))
}
