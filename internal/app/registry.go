package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("unknown session")

type sessionEntry struct {
	Signal      core.SignalConnection
	Client      string
	ConnectedAt time.Time

	// unix nanos; written by Touch without taking the registry lock
	lastActivity atomic.Int64
	// guarded by Registry.mu
	rooms map[domain.RoomName]struct{}
}

// Registry tracks live connections, their last activity and their room
// memberships. Memberships must only be changed by the orchestrator, which
// keeps them in step with the room index.
type Registry struct {
	clock    clockwork.Clock
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:    clock,
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// Admit registers a new connection with no memberships. It never fails.
func (r *Registry) Admit(sig core.SignalConnection, client string) core.SessionID {
	sid := core.NewSessionID()
	now := r.clock.Now()
	e := &sessionEntry{
		Signal:      sig,
		Client:      client,
		ConnectedAt: now,
		rooms:       make(map[domain.RoomName]struct{}),
	}
	e.lastActivity.Store(now.UnixNano())

	r.mu.Lock()
	r.sessions[sid] = e
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("client", client).Msg("admitted session")
	return sid
}

// Touch marks sid as active now. Unknown sids are ignored.
func (r *Registry) Touch(sid core.SessionID) {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.lastActivity.Store(r.clock.Now().UnixNano())
}

// Remove deletes sid and returns the rooms it belonged to. The boolean is
// false when sid was already gone, which makes repeated calls no-ops.
func (r *Registry) Remove(sid core.SessionID) ([]domain.RoomName, bool) {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.sessions, sid)
	rooms := make([]domain.RoomName, 0, len(e.rooms))
	for name := range e.rooms {
		rooms = append(rooms, name)
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", len(rooms)).Msg("removed session")
	return rooms, true
}

// SnapshotIdle lists sessions whose last activity is older than now-threshold.
// Only the map walk runs under the read lock.
func (r *Registry) SnapshotIdle(threshold time.Duration) []core.SessionID {
	cutoff := r.clock.Now().Add(-threshold).UnixNano()
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.SessionID
	for sid, e := range r.sessions {
		if e.lastActivity.Load() < cutoff {
			out = append(out, sid)
		}
	}
	return out
}

func (r *Registry) GetSignal(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Signal, true
	}
	return nil, false
}

// SessionInfo describes a live connection.
type SessionInfo struct {
	Client       string
	ConnectedAt  time.Time
	LastActivity time.Time
}

func (r *Registry) Info(sid core.SessionID) (SessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return SessionInfo{}, false
	}
	return SessionInfo{
		Client:       e.Client,
		ConnectedAt:  e.ConnectedAt,
		LastActivity: time.Unix(0, e.lastActivity.Load()),
	}, true
}

func (r *Registry) LastActivity(sid core.SessionID) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, e.lastActivity.Load()), true
}

// AddRoom records a membership. It reports false if it was already present.
func (r *Registry) AddRoom(sid core.SessionID, name domain.RoomName) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false, ErrUnknownSession
	}
	if _, ok := e.rooms[name]; ok {
		return false, nil
	}
	e.rooms[name] = struct{}{}
	return true, nil
}

// RemoveRoom drops a membership. It reports false if it was not present.
func (r *Registry) RemoveRoom(sid core.SessionID, name domain.RoomName) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false, ErrUnknownSession
	}
	if _, ok := e.rooms[name]; !ok {
		return false, nil
	}
	delete(e.rooms, name)
	return true, nil
}

func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomName, 0, len(e.rooms))
	for name := range e.rooms {
		out = append(out, name)
	}
	return out
}

func (r *Registry) Sessions() []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid := range r.sessions {
		out = append(out, sid)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
