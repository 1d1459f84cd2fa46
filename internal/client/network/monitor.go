// Package network tracks whether the remote API is reachable and notifies
// subscribers about connectivity transitions.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/client/client"
	"github.com/dmitrijs2005/offlinekit/internal/logging"
	"github.com/dmitrijs2005/offlinekit/internal/pubsub"
)

const defaultProbeTimeout = 3 * time.Second

// Monitor holds the latest known connectivity state.
//
// Listeners run synchronously, in subscription order, once per delivered
// transition. Transitions that are superseded before they can be delivered
// collapse into the latest state: a listener never sees a history of
// intermediate values. Listeners must not call Set.
type Monitor struct {
	log logging.Logger

	mu     sync.Mutex
	online bool

	deliverMu sync.Mutex
	delivered bool

	hub pubsub.Hub[bool]

	ProbeTimeout time.Duration
}

func NewMonitor(initial bool, log logging.Logger) *Monitor {
	if log == nil {
		log = logging.Nop()
	}
	return &Monitor{
		log:          log.With("module", "network"),
		online:       initial,
		delivered:    initial,
		ProbeTimeout: defaultProbeTimeout,
	}
}

func (m *Monitor) CurrentStatus() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for future transitions. Call the returned function
// to stop receiving them.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	return m.hub.Subscribe(fn)
}

// Set records a new connectivity state, e.g. from a platform notification
// or a manual override, and notifies listeners if it changed.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if changed {
		m.deliver()
	}
}

func (m *Monitor) deliver() {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	latest := m.CurrentStatus()
	if latest == m.delivered {
		return
	}
	m.delivered = latest

	if latest {
		m.log.Info(context.Background(), "switched to online mode")
	} else {
		m.log.Info(context.Background(), "switched to offline mode")
	}
	m.hub.Publish(latest)
}

// Run polls p every interval until ctx is done. The first probe happens
// immediately.
func (m *Monitor) Run(ctx context.Context, p client.Prober, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.probe(ctx, p)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context, p client.Prober) {
	pctx, cancel := context.WithTimeout(ctx, m.ProbeTimeout)
	err := p.Ping(pctx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.log.Debug(ctx, "probe failed", "error", err)
	}
	m.Set(err == nil)
}
