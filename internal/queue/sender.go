package queue

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/five82/roost/internal/link"
	"github.com/five82/roost/internal/moonraker"
)

const defaultSendInterval = 500 * time.Millisecond

// Gate reports connectivity; the sender only drains while Connected.
type Gate interface {
	Status() link.Status
}

// SenderOptions tune the sender loop.
type SenderOptions struct {
	Interval time.Duration
	// OnResult, when set, sees every delivered or dropped command.
	OnResult func(Command, moonraker.Result)
}

// Sender drains a Queue through an Executor. Delivery is at-most-once: a
// command whose request is abandoned is logged and dropped.
type Sender struct {
	queue    *Queue
	exec     moonraker.Executor
	gate     Gate
	logger   *zap.Logger
	interval time.Duration
	onResult func(Command, moonraker.Result)
}

// NewSender wires a sender loop.
func NewSender(q *Queue, exec moonraker.Executor, gate Gate, logger *zap.Logger, opts SenderOptions) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sender{
		queue:    q,
		exec:     exec,
		gate:     gate,
		logger:   logger.Named("sender"),
		interval: opts.Interval,
		onResult: opts.OnResult,
	}
	if s.interval <= 0 {
		s.interval = defaultSendInterval
	}
	return s
}

// Run sends at most one command per interval until ctx is cancelled.
func (s *Sender) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		s.sendOne(ctx)
		timer.Reset(s.interval)
	}
}

// sendOne delivers the oldest command if the link is up. It reports whether
// a command was taken off the queue.
func (s *Sender) sendOne(ctx context.Context) bool {
	if s.gate.Status() != link.Connected {
		return false
	}
	cmd, ok := s.queue.Dequeue()
	if !ok {
		return false
	}

	res := s.exec.Execute(ctx, http.MethodPost, cmd.Path)
	fields := []zap.Field{
		zap.String("id", cmd.ID),
		zap.String("path", cmd.Path),
		zap.Stringer("outcome", res.Outcome),
		zap.Int("attempts", res.Attempts),
		zap.Duration("queued", time.Since(cmd.EnqueuedAt)),
	}
	switch {
	case res.Outcome == moonraker.OutcomeSuccess:
		s.logger.Info("command delivered", fields...)
	case res.Succeeded():
		s.logger.Warn("command rejected by host", append(fields, zap.String("message", res.Message))...)
	default:
		s.logger.Warn("command dropped", append(fields, zap.Error(res.Err))...)
	}
	if s.onResult != nil {
		s.onResult(cmd, res)
	}
	return true
}
