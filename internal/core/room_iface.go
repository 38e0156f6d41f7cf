package core

import (
	"github.com/dkeye/Relay/internal/domain"
)

// PublishResult reports delivery stats for one broadcast.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

// Member is a room member as seen by the dispatcher.
type Member struct {
	SID    SessionID
	Signal SignalConnection
}

// RoomService is the member set of a single room.
// It never touches transport resources and is not safe for concurrent use;
// the RoomIndex that owns it serializes access.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	Members() []Member

	AddMember(sid SessionID, sig SignalConnection)
	RemoveMember(sid SessionID)
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

// RoomIndex maps rooms to their members. A room exists only while it has
// at least one member.
type RoomIndex interface {
	AddMember(name domain.RoomName, sid SessionID, sig SignalConnection)
	RemoveMember(name domain.RoomName, sid SessionID)
	MembersOf(name domain.RoomName) []Member
	Has(name domain.RoomName) bool
	List() []RoomInfo
	Len() int
}
