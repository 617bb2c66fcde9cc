package ews

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// DefaultProbeTimeout bounds a single liveness probe.
const DefaultProbeTimeout = 10 * time.Second

// Monitor determines whether the device accepts connections. It probes at
// the raw TCP level, independent of the HTTP transport, so "down" means the
// network path itself is broken and not that the device answered badly.
type Monitor struct {
	addr   string
	probe  func(ctx context.Context, addr string) error
	delay  time.Duration
	logger *slog.Logger

	down bool
}

// NewMonitor creates a Monitor probing the session's management port.
func NewMonitor(s *Session) *Monitor {
	return &Monitor{
		addr:   s.ProbeAddr(),
		probe:  dialProbe,
		delay:  time.Second,
		logger: slog.Default(),
	}
}

// dialProbe races a TCP connect against the context deadline. Whichever
// side loses is torn down: cancel releases the dial, Close releases a
// connection that won.
func dialProbe(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

// IsAlive reports whether the device accepts a TCP connection within
// timeout. A non-positive timeout means DefaultProbeTimeout.
func (m *Monitor) IsAlive(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.probe(ctx, m.addr) == nil
}

// WaitUntilUp blocks until the device accepts a connection, retrying with a
// fixed delay. Device absence is an expected operating condition, so the
// retry is unbounded; only ctx cancellation stops it. The down/up edges are
// logged exactly once per outage.
func (m *Monitor) WaitUntilUp(ctx context.Context) error {
	for {
		if m.IsAlive(0) {
			if m.down {
				m.down = false
				m.logger.Info("device came back up", "addr", m.addr)
			}
			return nil
		}
		if !m.down {
			m.down = true
			m.logger.Warn("device went down", "addr", m.addr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
}
