package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/five82/roost/internal/config"
	"github.com/five82/roost/internal/control"
	"github.com/five82/roost/internal/link"
	"github.com/five82/roost/internal/moonraker"
	"github.com/five82/roost/internal/state"
)

func testConfig(f *fakeHost) config.Config {
	cfg := config.Default()
	cfg.Host = f.host
	cfg.Port = f.port
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewRuntime_RejectsMissingHost(t *testing.T) {
	if _, err := NewRuntime(config.Default(), nil); err == nil {
		t.Fatal("expected error for empty host")
	}
}

func TestRuntime_HeadlessDeliversQueuedCommand(t *testing.T) {
	host, _ := newFakeHost(t)
	home := moonraker.GcodePath(control.CmdHome)
	host.set(home, `{"result":"ok"}`)

	rt, err := NewRuntime(testConfig(host), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if rt.API != nil {
		t.Fatal("API should be disabled without a listen address")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.run(ctx, nil) }()

	waitFor(t, "ready snapshot", func() bool { return rt.Store.Snapshot().Ready() })

	if err := rt.Control.Home(); err != nil {
		t.Fatalf("Home: %v", err)
	}
	waitFor(t, "home delivered", func() bool { return host.count(home) == 1 })
	if rt.Queue.Len() != 0 {
		t.Fatalf("queue not drained: %d", rt.Queue.Len())
	}

	snap := rt.Store.Snapshot()
	if snap.Link != link.Connected || snap.Printer.NozzleTarget != 205 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestStatus(t *testing.T) {
	host, _ := newFakeHost(t)

	snap, err := Status(context.Background(), testConfig(host), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snap.Readiness != state.ReadinessReady || snap.Link != link.Connected {
		t.Fatalf("readiness=%v link=%v", snap.Readiness, snap.Link)
	}
	if snap.Printer.BedTarget != 60 || snap.Printer.NozzleActual != 205 {
		t.Fatalf("temperatures not mirrored: %+v", snap.Printer)
	}
	if !snap.Printer.HeatingNozzle {
		t.Fatal("status macro not applied")
	}
}

func TestStatus_InvalidConfig(t *testing.T) {
	if _, err := Status(context.Background(), config.Default(), zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected config error")
	}
}

func TestSendGcode(t *testing.T) {
	host, _ := newFakeHost(t)
	path := moonraker.GcodePath("M104 S220 T0")
	host.set(path, `{"result":"ok"}`)
	cfg := testConfig(host)

	res, err := SendGcode(context.Background(), cfg, zaptest.NewLogger(t), "  M104 S220 T0 ")
	if err != nil {
		t.Fatalf("SendGcode: %v", err)
	}
	if !res.Succeeded() || host.count(path) != 1 {
		t.Fatalf("result %v, hits %v", res, host.requests())
	}

	host.reset()
	_, err = SendGcode(context.Background(), cfg, zaptest.NewLogger(t), "   ")
	if !errors.Is(err, control.ErrInvalidGcode) {
		t.Fatalf("err = %v, want ErrInvalidGcode", err)
	}
	if len(host.requests()) != 0 {
		t.Fatalf("invalid script reached the host: %v", host.requests())
	}
}
