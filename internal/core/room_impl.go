package core

import (
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is an in-memory member set.
// It never closes adapter-owned resources.
type roomImpl struct {
	name  domain.RoomName
	bySID map[SessionID]SignalConnection
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:  name,
		bySID: make(map[SessionID]SignalConnection),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int { return len(r.bySID) }

func (r *roomImpl) AddMember(sid SessionID, sig SignalConnection) {
	if _, ok := r.bySID[sid]; ok {
		return
	}
	r.bySID[sid] = sig
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Msg("member added")
}

func (r *roomImpl) RemoveMember(sid SessionID) {
	if _, ok := r.bySID[sid]; !ok {
		return
	}
	delete(r.bySID, sid)
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Msg("member removed")
}

// Members returns a copy, so callers may iterate after the owner's lock is released.
func (r *roomImpl) Members() []Member {
	out := make([]Member, 0, len(r.bySID))
	for sid, sig := range r.bySID {
		out = append(out, Member{SID: sid, Signal: sig})
	}
	return out
}
