package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				// closing unblocks the read pump, which runs the cleanup
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		cancel()
		c.Close()
		ctl.limiter.Forget(sid)
		ctl.Orch.CleanupOnDisconnect(sid)
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(sid, c, data)
	}
}

// handleSignal dispatches one inbound message. Anything that is not a JSON
// object with a known string type is dropped without a reply and does not
// count as activity.
func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	var msg domain.Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return
	}

	switch msg.Type {
	case domain.TypeSubscribe, domain.TypeUnsubscribe, domain.TypePing, domain.TypePublish:
	default:
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("type", msg.Type).Msg("unknown signal")
		return
	}
	ctl.Orch.Touch(sid)

	switch msg.Type {
	case domain.TypeSubscribe:
		ctl.handleSubscribe(sid, c, msg)
	case domain.TypeUnsubscribe:
		ctl.handleUnsubscribe(sid, c, msg)
	case domain.TypePing:
		ctl.handlePing(c)
	case domain.TypePublish:
		ctl.handlePublish(sid, c, msg)
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendErr(c core.SignalConnection, message string) {
	ctl.sendJSON(c, domain.ErrorReply{Type: domain.TypeErr, Message: message})
}
