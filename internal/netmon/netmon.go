// Package netmon reports backend connectivity changes.
package netmon

import (
	"context"
	"sync"
	"time"

	"offlinesync/internal/events"

	"github.com/rs/zerolog"
)

// Event is emitted when connectivity is (re)evaluated.
type Event struct {
	IsConnected bool
}

// Monitor delivers connectivity events to subscribers.
type Monitor interface {
	Subscribe(listener func(Event)) (unsubscribe func())
}

// Manual is a Monitor driven by explicit Set calls.
type Manual struct {
	bus       *events.Bus[Event]
	mu        sync.Mutex
	connected bool
}

func NewManual(connected bool, logger *zerolog.Logger) *Manual {
	return &Manual{bus: events.NewBus[Event](logger), connected: connected}
}

func (m *Manual) Subscribe(listener func(Event)) func() {
	return m.bus.Subscribe(listener)
}

// Set records the state and publishes it, even when unchanged.
func (m *Manual) Set(connected bool) {
	m.mu.Lock()
	m.connected = connected
	m.mu.Unlock()
	m.bus.Publish(Event{IsConnected: connected})
}

func (m *Manual) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// ProbeFunc returns nil while the backend is reachable.
type ProbeFunc func(ctx context.Context) error

// Prober polls a ProbeFunc and publishes an Event whenever the result
// differs from the previous one. The first result is always published.
type Prober struct {
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration
	bus      *events.Bus[Event]
	logger   *zerolog.Logger

	mu    sync.Mutex
	known bool
	last  bool
}

func NewProber(probe ProbeFunc, interval time.Duration, logger *zerolog.Logger) *Prober {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Prober{
		probe:    probe,
		interval: interval,
		timeout:  interval,
		bus:      events.NewBus[Event](logger),
		logger:   logger,
	}
}

func (p *Prober) Subscribe(listener func(Event)) func() {
	return p.bus.Subscribe(listener)
}

// Check probes once and returns the observed state.
func (p *Prober) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.probe(probeCtx)
	cancel()
	connected := err == nil

	p.mu.Lock()
	changed := !p.known || p.last != connected
	p.known = true
	p.last = connected
	p.mu.Unlock()

	if changed {
		ev := p.logger.Info().Bool("connected", connected)
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("Connectivity changed")
		p.bus.Publish(Event{IsConnected: connected})
	}
	return connected
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
