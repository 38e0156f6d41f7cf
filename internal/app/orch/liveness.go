package orch

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Monitor periodically evicts sessions that have been idle longer than
// the timeout. One loop serves every connection.
type Monitor struct {
	orch     *Orchestrator
	clock    clockwork.Clock
	timeout  time.Duration
	interval time.Duration
}

// NewMonitor builds a monitor. A non-positive interval defaults to half the
// timeout.
func NewMonitor(o *Orchestrator, clock clockwork.Clock, timeout, interval time.Duration) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = timeout / 2
	}
	return &Monitor{orch: o, clock: clock, timeout: timeout, interval: interval}
}

func (m *Monitor) Interval() time.Duration { return m.interval }

// Run sweeps on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	log.Info().Str("module", "orch.liveness").Dur("timeout", m.timeout).Dur("interval", m.interval).Msg("liveness monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch.liveness").Msg("liveness monitor stopped")
			return
		case <-ticker.Chan():
			m.Sweep()
		}
	}
}

// Sweep evicts idle sessions once and returns how many it evicted.
func (m *Monitor) Sweep() int {
	idle := m.orch.Registry.SnapshotIdle(m.timeout)
	evicted := 0
	for _, sid := range idle {
		// activity may have arrived since the snapshot
		if last, ok := m.orch.Registry.LastActivity(sid); ok && m.clock.Since(last) <= m.timeout {
			continue
		}
		if m.orch.Evict(sid, "idle timeout") {
			m.orch.Metrics.ObserveEviction()
			evicted++
		}
	}
	if evicted > 0 {
		log.Info().Str("module", "orch.liveness").Int("evicted", evicted).Msg("idle sessions evicted")
	}
	return evicted
}
