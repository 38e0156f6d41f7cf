package app

import (
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl is the room index. One RWMutex orders every membership
// change against every MembersOf snapshot.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{rooms: make(map[domain.RoomName]core.RoomService)}
}

var _ core.RoomIndex = (*RoomManagerImpl)(nil)

func (f *RoomManagerImpl) AddMember(name domain.RoomName, sid core.SessionID, sig core.SignalConnection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[name]
	if !ok {
		room = core.NewRoomService(name)
		f.rooms[name] = room
		log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room created")
	}
	room.AddMember(sid, sig)
}

// RemoveMember drops sid from the room and deletes the room once it is empty.
func (f *RoomManagerImpl) RemoveMember(name domain.RoomName, sid core.SessionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[name]
	if !ok {
		return
	}
	room.RemoveMember(sid)
	if room.MemberCount() == 0 {
		delete(f.rooms, name)
		log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room removed")
	}
}

// MembersOf returns a snapshot of the room's members, or nil if the room
// does not exist. Lookups never create rooms.
func (f *RoomManagerImpl) MembersOf(name domain.RoomName) []core.Member {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	if !ok {
		return nil
	}
	return room.Members()
}

func (f *RoomManagerImpl) Has(name domain.RoomName) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.rooms[name]
	return ok
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return out
}

func (f *RoomManagerImpl) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}
