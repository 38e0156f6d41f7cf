package orch

import (
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the only writer of memberships. It keeps the registry and
// the room index in step: every subscription change and every disconnect
// cleanup runs under mu, so no half-applied change is visible to another
// writer.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomIndex
	Policy   app.Policy
	Clock    clockwork.Clock
	Metrics  *metrics.Relay

	mu sync.Mutex
}

// Now is the orchestrator clock, used for wire timestamps.
func (o *Orchestrator) Now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}
	return o.Clock.Now()
}

// Connect admits a new connection and returns its session id.
func (o *Orchestrator) Connect(sig core.SignalConnection, client string) core.SessionID {
	o.mu.Lock()
	defer o.mu.Unlock()
	sid := o.Registry.Admit(sig, client)
	o.Metrics.SetConnections(o.Registry.Len())
	return sid
}

// Touch records inbound activity for sid.
func (o *Orchestrator) Touch(sid core.SessionID) {
	o.Registry.Touch(sid)
}

// AuthorizePublish applies the configured publish policy, if any.
func (o *Orchestrator) AuthorizePublish(apiKey string) error {
	if o.Policy == nil {
		return nil
	}
	return o.Policy.AuthorizePublish(apiKey)
}

// Evict drops sid from the registry and its rooms, then closes its
// transport. It reports whether this call performed the cleanup; the read
// loop woken by the close finds nothing left to do.
func (o *Orchestrator) Evict(sid core.SessionID, reason string) bool {
	sig, ok := o.Registry.GetSignal(sid)
	if !ok {
		return false
	}
	info, _ := o.Registry.Info(sid)
	removed := o.CleanupOnDisconnect(sid)
	sig.Close()
	if removed {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("client", info.Client).
			Dur("connected_for", o.Now().Sub(info.ConnectedAt)).Str("reason", reason).Msg("evicted session")
	}
	return removed
}

// Shutdown evicts every live connection.
func (o *Orchestrator) Shutdown() {
	sids := o.Registry.Sessions()
	for _, sid := range sids {
		o.Evict(sid, "shutdown")
	}
	log.Info().Str("module", "orch").Int("sessions", len(sids)).Msg("all sessions closed")
}
