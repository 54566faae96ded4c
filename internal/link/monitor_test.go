package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeLink struct {
	mu         sync.Mutex
	state      LinkState
	reconnects int
}

func (f *fakeLink) Check(context.Context) LinkState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeLink) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	return nil
}

func (f *fakeLink) set(s LinkState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeLink) reconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

func TestMonitor_DisconnectedToConnected(t *testing.T) {
	fl := &fakeLink{state: LinkUp}
	m := NewMonitor(fl, zaptest.NewLogger(t), MonitorOptions{})

	if got := m.Status(); got != Disconnected {
		t.Fatalf("initial Status = %v, want disconnected", got)
	}
	m.step(context.Background(), time.Now())
	if got := m.Status(); got != Connected {
		t.Fatalf("Status = %v, want connected", got)
	}
	if fl.reconnectCount() != 0 {
		t.Fatalf("reconnects = %d, want 0", fl.reconnectCount())
	}
}

func TestMonitor_DisconnectedLinkDownStartsConnecting(t *testing.T) {
	fl := &fakeLink{state: LinkDown}
	m := NewMonitor(fl, zaptest.NewLogger(t), MonitorOptions{})

	m.step(context.Background(), time.Now())
	if got := m.Status(); got != Connecting {
		t.Fatalf("Status = %v, want connecting", got)
	}
	if fl.reconnectCount() != 1 {
		t.Fatalf("reconnects = %d, want 1", fl.reconnectCount())
	}

	// Still down: stay connecting without hammering reconnect.
	m.step(context.Background(), time.Now())
	if got := m.Status(); got != Connecting {
		t.Fatalf("Status = %v, want connecting", got)
	}
	if fl.reconnectCount() != 1 {
		t.Fatalf("reconnects = %d, want 1", fl.reconnectCount())
	}

	fl.set(LinkUp)
	m.step(context.Background(), time.Now())
	if got := m.Status(); got != Connected {
		t.Fatalf("Status = %v, want connected", got)
	}
}

func TestMonitor_ConnectedLossReissuesTarget(t *testing.T) {
	fl := &fakeLink{state: LinkUp}
	m := NewMonitor(fl, zaptest.NewLogger(t), MonitorOptions{})
	m.step(context.Background(), time.Now())

	fl.set(LinkDown)
	m.step(context.Background(), time.Now())
	if got := m.Status(); got != Connecting {
		t.Fatalf("Status = %v, want connecting", got)
	}
	if fl.reconnectCount() != 1 {
		t.Fatalf("reconnects = %d, want 1 on leaving connected", fl.reconnectCount())
	}
}

func TestMonitor_PersistentFailureCoolsDown(t *testing.T) {
	fl := &fakeLink{state: LinkFailed}
	m := NewMonitor(fl, zaptest.NewLogger(t), MonitorOptions{Cooldown: 5 * time.Second})

	start := time.Now()
	m.step(context.Background(), start)
	if got := m.Status(); got != Error {
		t.Fatalf("Status = %v, want error", got)
	}

	m.step(context.Background(), start.Add(4*time.Second))
	if got := m.Status(); got != Error {
		t.Fatalf("Status = %v, want error held during cooldown", got)
	}

	m.step(context.Background(), start.Add(5*time.Second))
	if got := m.Status(); got != Disconnected {
		t.Fatalf("Status = %v, want disconnected after cooldown", got)
	}

	fl.set(LinkDown)
	m.step(context.Background(), start.Add(6*time.Second))
	if got := m.Status(); got != Connecting {
		t.Fatalf("Status = %v, want connecting once attempts resume", got)
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	fl := &fakeLink{state: LinkUp}
	m := NewMonitor(fl, zaptest.NewLogger(t), MonitorOptions{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for m.Status() != Connected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Status() != Connected {
		t.Fatalf("Status = %v, want connected", m.Status())
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		Error:        "error",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
	text, err := Connected.MarshalText()
	if err != nil || string(text) != "connected" {
		t.Fatalf("MarshalText = %q, %v", text, err)
	}
}

func TestProbe_CheckListeningAndClosedPorts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	p := NewProbe(ln.Addr().String(), 500*time.Millisecond)
	if got := p.Check(context.Background()); got != LinkUp {
		t.Fatalf("Check = %v, want up", got)
	}

	addr := ln.Addr().String()
	_ = ln.Close()
	p = NewProbe(addr, 500*time.Millisecond)
	if got := p.Check(context.Background()); got != LinkDown {
		t.Fatalf("Check after close = %v, want down", got)
	}
}

func TestClassifyDialError(t *testing.T) {
	notFound := &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}}
	if got := classifyDialError(notFound); got != LinkFailed {
		t.Fatalf("classify(not found) = %v, want failed", got)
	}
	temporary := &net.DNSError{Err: "server misbehaving", Name: "x", IsTemporary: true}
	if got := classifyDialError(temporary); got != LinkDown {
		t.Fatalf("classify(temporary dns) = %v, want down", got)
	}
	if got := classifyDialError(fmt.Errorf("dial: %w", errors.New("connection refused"))); got != LinkDown {
		t.Fatalf("classify(refused) = %v, want down", got)
	}
}

func TestProbe_ReconnectRunsHooks(t *testing.T) {
	p := NewProbe("127.0.0.1:7125", time.Second)
	calls := 0
	p.OnReconnect(func() { calls++ })
	p.OnReconnect(nil)

	if err := p.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("hook calls = %d, want 1", calls)
	}

	p = NewProbe("printer.local:7125", time.Second)
	p.lookup = func(context.Context, string) ([]string, error) {
		return nil, &net.DNSError{Err: "no such host", Name: "printer.local", IsNotFound: true}
	}
	if err := p.Reconnect(context.Background()); err == nil {
		t.Fatal("Reconnect with unresolvable host returned nil, want error")
	}
}
