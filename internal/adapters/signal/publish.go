package signal

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	errMsgUnauthorized = "unauthorized"
	errMsgRateLimited  = "rate limited"
)

func (ctl *SignalWSController) handlePublish(sid core.SessionID, conn *WsSignalConn, msg domain.Inbound) {
	if err := ctl.Orch.AuthorizePublish(msg.APIKeyString()); err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("publish rejected: bad api key")
		ctl.sendErr(conn, errMsgUnauthorized)
		return
	}
	room, err := domain.ParseRoomName(msg.RoomString())
	if err != nil {
		ctl.sendErr(conn, err.Error())
		return
	}
	if !ctl.limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("publish rejected: rate limited")
		ctl.sendErr(conn, errMsgRateLimited)
		return
	}

	res, err := ctl.Orch.Publish(room, msg.Payload, msg.Metadata)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", string(room)).Msg("publish failed")
		ctl.sendErr(conn, err.Error())
		return
	}
	ctl.sendJSON(conn, domain.PublishAck{Type: domain.TypePublished, Room: room, SentTo: res.SendTo})
}
