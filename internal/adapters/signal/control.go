package signal

import (
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(c *WsSignalConn, inv Invocation) {
	if inv.ID == "" {
		ctl.sendJSON(c, struct {
			Type string `json:"type"`
		}{
			Type: "pong",
		})
		return
	}
	ctl.reply(c, inv, "pong")
}

// allowControl applies the per-client invocation limit. A denied call
// is answered with BroadcastError and an error result.
func (ctl *SignalWSController) allowControl(c *WsSignalConn, inv Invocation) bool {
	if ctl.Limiter == nil || ctl.Limiter.Allow(limiterKey(c)) {
		return true
	}
	if ctl.Hub.Metrics != nil {
		ctl.Hub.Metrics.RateLimited.Inc()
	}
	log.Warn().Str("module", "signal").Str("conn", string(c.id)).Str("client_token", c.token).Str("method", inv.Method).Msg("rate limited")
	if err := ctl.Hub.SendToCaller(c.id, domain.BroadcastError(domain.MsgRateLimited)); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("rate limit notice dropped")
	}
	ctl.replyError(c, inv, domain.MsgRateLimited)
	return false
}

// Connections without a client token are limited on their own.
func limiterKey(c *WsSignalConn) string {
	if c.token != "" {
		return c.token
	}
	return "conn:" + string(c.id)
}

// requireChannel answers inv with an error when it names no channel.
func (ctl *SignalWSController) requireChannel(c *WsSignalConn, inv Invocation) bool {
	if inv.Channel != "" {
		return true
	}
	ctl.replyError(c, inv, "channel is required")
	return false
}
