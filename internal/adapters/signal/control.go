package signal

import "github.com/dkeye/Relay/internal/domain"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, domain.Pong{
		Type: domain.TypePong,
		TS:   domain.UnixMillis(ctl.Orch.Now()),
	})
}
