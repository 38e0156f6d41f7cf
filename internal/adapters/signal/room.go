package signal

import (
	"errors"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleSubscribe(sid core.SessionID, conn *WsSignalConn, msg domain.Inbound) {
	room, err := domain.ParseRoomName(msg.RoomString())
	if err != nil {
		ctl.sendErr(conn, err.Error())
		return
	}
	if _, err := ctl.Orch.Subscribe(sid, room); err != nil {
		ctl.replyFailure(sid, conn, "subscribe", err)
		return
	}
	ctl.sendJSON(conn, domain.RoomAck{Type: domain.TypeSubscribed, Room: room})
}

func (ctl *SignalWSController) handleUnsubscribe(sid core.SessionID, conn *WsSignalConn, msg domain.Inbound) {
	room, err := domain.ParseRoomName(msg.RoomString())
	if err != nil {
		ctl.sendErr(conn, err.Error())
		return
	}
	if _, err := ctl.Orch.Unsubscribe(sid, room); err != nil {
		ctl.replyFailure(sid, conn, "unsubscribe", err)
		return
	}
	ctl.sendJSON(conn, domain.RoomAck{Type: domain.TypeUnsubscribed, Room: room})
}

// replyFailure handles errors that can only come from a session that is
// already being torn down.
func (ctl *SignalWSController) replyFailure(sid core.SessionID, conn *WsSignalConn, op string, err error) {
	log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("op", op).Msg("room operation failed")
	if errors.Is(err, domain.ErrRoomRequired) {
		ctl.sendErr(conn, err.Error())
	}
}
