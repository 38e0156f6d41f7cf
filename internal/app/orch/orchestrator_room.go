package orch

import (
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Subscribe adds sid to room. Subscribing twice is a no-op; the boolean
// reports whether the membership was new.
func (o *Orchestrator) Subscribe(sid core.SessionID, room domain.RoomName) (bool, error) {
	if room == "" {
		return false, domain.ErrRoomRequired
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	sig, ok := o.Registry.GetSignal(sid)
	if !ok {
		return false, app.ErrUnknownSession
	}
	added, err := o.Registry.AddRoom(sid, room)
	if err != nil || !added {
		return false, err
	}
	o.Rooms.AddMember(room, sid, sig)
	o.Metrics.SetRooms(o.Rooms.Len())
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("subscribed")
	return true, nil
}

// Unsubscribe removes sid from room. Unsubscribing from a room sid is not
// in is a no-op; the boolean reports whether a membership was removed.
func (o *Orchestrator) Unsubscribe(sid core.SessionID, room domain.RoomName) (bool, error) {
	if room == "" {
		return false, domain.ErrRoomRequired
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	removed, err := o.Registry.RemoveRoom(sid, room)
	if err != nil || !removed {
		return false, err
	}
	o.Rooms.RemoveMember(room, sid)
	o.Metrics.SetRooms(o.Rooms.Len())
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("unsubscribed")
	return true, nil
}

// CleanupOnDisconnect removes sid from the registry and from every room it
// belonged to. Only the first call for a session does anything, so the read
// loop, a write error and the liveness monitor may all call it.
func (o *Orchestrator) CleanupOnDisconnect(sid core.SessionID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	rooms, ok := o.Registry.Remove(sid)
	if !ok {
		return false
	}
	for _, room := range rooms {
		o.Rooms.RemoveMember(room, sid)
	}
	o.Metrics.SetConnections(o.Registry.Len())
	o.Metrics.SetRooms(o.Rooms.Len())
	log.Info().Str("module", "orch").Str("sid", string(sid)).Int("rooms", len(rooms)).Msg("session cleaned up")
	return true
}
