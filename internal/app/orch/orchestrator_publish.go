package orch

import (
	"encoding/json"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Publish encodes one update and offers it to every current member of room.
// SendTo counts frames accepted by a connection's send buffer, not frames
// confirmed by the client. Publishing to a room nobody is in returns zero
// and does not create the room.
func (o *Orchestrator) Publish(room domain.RoomName, payload, metadata json.RawMessage) (core.PublishResult, error) {
	if room == "" {
		return core.PublishResult{}, domain.ErrRoomRequired
	}
	frame, err := domain.NewUpdate(room, payload, metadata, o.Now()).Encode()
	if err != nil {
		return core.PublishResult{}, err
	}

	// Sends happen outside the index lock; TrySend never blocks.
	members := o.Rooms.MembersOf(room)
	res := core.PublishResult{}
	for _, m := range members {
		// A failed send is dropped here on purpose. Closing or evicting the
		// connection is left to its read loop and the liveness monitor.
		if err := m.Signal.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, m.SID)
			log.Debug().Err(err).Str("module", "orch").Str("room", string(room)).Str("sid", string(m.SID)).Msg("send dropped")
			continue
		}
		res.SendTo++
	}
	o.Metrics.ObservePublish(res.SendTo, len(res.Dropped))
	log.Debug().Str("module", "orch").Str("room", string(room)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res, nil
}
