package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Prober checks reachability once. A nil error means connected.
type Prober interface {
	Probe(ctx context.Context) error
}

// DialProber reports connectivity by opening a TCP connection to Address.
type DialProber struct {
	Address string
	Timeout time.Duration
}

// Probe dials Address and closes the connection immediately.
func (p DialProber) Probe(ctx context.Context) error {
	dialer := net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.Address, err)
	}
	return conn.Close()
}

// Listener is called with the new state after every transition.
type Listener func(connected bool)

// Monitor holds the current connectivity state.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	connected bool
	listeners []Listener
}

// NewMonitor creates a Monitor starting in the initial state. prober may be
// nil, in which case Run only waits for cancellation.
func NewMonitor(prober Prober, interval time.Duration, initial bool, logger *slog.Logger) *Monitor {
	return &Monitor{
		prober:    prober,
		interval:  interval,
		logger:    logger.With("component", "connectivity_monitor"),
		connected: initial,
	}
}

// Subscribe registers l for future transitions.
func (m *Monitor) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Connected returns the current state.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Set records the state and notifies listeners if it changed. It reports
// whether a transition happened.
func (m *Monitor) Set(connected bool) bool {
	m.mu.Lock()
	if m.connected == connected {
		m.mu.Unlock()
		return false
	}
	m.connected = connected
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Info("connectivity changed", "connected", connected)
	for _, l := range listeners {
		l(connected)
	}
	return true
}

// Check probes once and applies the result. Without a prober it returns the
// current state unchanged.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.prober == nil {
		return m.Connected()
	}
	err := m.prober.Probe(ctx)
	if err != nil {
		m.logger.Debug("connectivity probe failed", "error", err)
	}
	m.Set(err == nil)
	return err == nil
}

// Run probes every interval until ctx is cancelled. The first probe runs
// immediately.
func (m *Monitor) Run(ctx context.Context) error {
	if m.prober == nil {
		<-ctx.Done()
		return nil
	}

	m.logger.Info("starting connectivity monitor", "interval", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.Check(ctx)
		select {
		case <-ctx.Done():
			m.logger.Info("connectivity monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}
