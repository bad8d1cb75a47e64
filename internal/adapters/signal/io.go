package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case f, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(ctl.cfg.WriteWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(messageType(f), f.Data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("ping failed")
				return
			}
		}
	}
}

func messageType(f core.Frame) int {
	if f.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// readPump owns the connection lifecycle: when it returns the
// connection is disconnected exactly once.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	defer func() {
		cancel()
		c.Close()
		ctl.Hub.Unregister(c.id)
		ctl.Orch.OnDisconnected(c.id)
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
		switch mt {
		case websocket.BinaryMessage:
			ctl.handleAudio(c, data)
		case websocket.TextMessage:
			ctl.handleSignal(c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(c *WsSignalConn, data []byte) {
	var inv Invocation
	if err := json.Unmarshal(data, &inv); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad json")
		return
	}
	if inv.Type != "invoke" {
		log.Warn().Str("module", "signal").Str("type", inv.Type).Msg("unknown signal")
		return
	}
	ctl.countInvocation(inv.Method)

	switch inv.Method {
	case MethodJoinRoom:
		ctl.handleJoin(c, inv)
	case MethodLeaveRoom:
		ctl.handleLeave(c, inv)
	case MethodRequestBroadcasterRole:
		ctl.handleRequestRole(c, inv)
	case MethodReleaseBroadcasterRole:
		ctl.handleReleaseRole(c, inv)
	case MethodSendAudioChunkBase64:
		ctl.handleAudioBase64(c, inv)
	case MethodPing:
		ctl.handlePing(c, inv)
	default:
		log.Warn().Str("module", "signal").Str("method", inv.Method).Msg("unknown method")
		ctl.replyError(c, inv, "unknown method "+inv.Method)
	}
}

func (ctl *SignalWSController) countInvocation(method string) {
	if ctl.Hub.Metrics == nil {
		return
	}
	switch method {
	case MethodJoinRoom, MethodLeaveRoom, MethodRequestBroadcasterRole, MethodReleaseBroadcasterRole,
		MethodSendAudioChunkBase64, MethodSendAudioChunk, MethodPing:
	default:
		method = "unknown"
	}
	ctl.Hub.Metrics.Invocations.WithLabelValues(method).Inc()
}

// reply answers inv when the client asked for a result.
func (ctl *SignalWSController) reply(c *WsSignalConn, inv Invocation, result any) {
	if inv.ID == "" {
		return
	}
	ctl.sendJSON(c, Result{Type: "result", ID: inv.ID, Result: result})
}

func (ctl *SignalWSController) replyError(c *WsSignalConn, inv Invocation, msg string) {
	if inv.ID == "" {
		return
	}
	ctl.sendJSON(c, Result{Type: "result", ID: inv.ID, Error: msg})
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(core.Frame{Data: b}); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("sendJSON dropped")
	}
}
