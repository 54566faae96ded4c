package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Probe is a Link that treats a successful TCP dial of the printer host as
// "link up". A host name that does not resolve is a persistent failure.
type Probe struct {
	address string
	timeout time.Duration
	dialer  net.Dialer
	lookup  func(ctx context.Context, host string) ([]string, error)

	mu    sync.Mutex
	hooks []func()
}

// NewProbe builds a probe for address (host:port).
func NewProbe(address string, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Probe{
		address: address,
		timeout: timeout,
		lookup:  net.DefaultResolver.LookupHost,
	}
}

// OnReconnect registers fn to run on every Reconnect, e.g. dropping idle
// keep-alive connections that went stale while the link was down.
func (p *Probe) OnReconnect(fn func()) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.hooks = append(p.hooks, fn)
	p.mu.Unlock()
}

// Check dials the target once.
func (p *Probe) Check(ctx context.Context) LinkState {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err == nil {
		_ = conn.Close()
		return LinkUp
	}
	return classifyDialError(err)
}

// Reconnect runs the reset hooks and re-resolves the host.
func (p *Probe) Reconnect(ctx context.Context) error {
	p.mu.Lock()
	hooks := append([]func(){}, p.hooks...)
	p.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	host, _, err := net.SplitHostPort(p.address)
	if err != nil {
		return fmt.Errorf("split address %q: %w", p.address, err)
	}
	if net.ParseIP(host) != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.lookup(ctx, host); err != nil {
		return fmt.Errorf("resolve %q: %w", host, err)
	}
	return nil
}

func classifyDialError(err error) LinkState {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return LinkFailed
	}
	return LinkDown
}
