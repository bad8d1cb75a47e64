package signal

import (
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(c *WsSignalConn, inv Invocation) {
	if !ctl.requireChannel(c, inv) || !ctl.allowControl(c, inv) {
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(c.id)).Str("channel", string(inv.Channel)).Msg("join")
	if err := ctl.Orch.JoinRoom(inv.Channel, c.id, inv.Broadcast); err != nil {
		ctl.replyError(c, inv, err.Error())
		return
	}
	ctl.reply(c, inv, nil)
}

// handleLeave drops membership; the socket stays open.
func (ctl *SignalWSController) handleLeave(c *WsSignalConn, inv Invocation) {
	if !ctl.requireChannel(c, inv) || !ctl.allowControl(c, inv) {
		return
	}
	ctl.Orch.LeaveRoom(inv.Channel, c.id)
	ctl.reply(c, inv, nil)
}

func (ctl *SignalWSController) handleRequestRole(c *WsSignalConn, inv Invocation) {
	if !ctl.requireChannel(c, inv) || !ctl.allowControl(c, inv) {
		return
	}
	granted := ctl.Orch.RequestBroadcasterRole(inv.Channel, c.id)
	ctl.reply(c, inv, granted)
}

func (ctl *SignalWSController) handleReleaseRole(c *WsSignalConn, inv Invocation) {
	if !ctl.requireChannel(c, inv) || !ctl.allowControl(c, inv) {
		return
	}
	released := ctl.Orch.ReleaseBroadcasterRole(inv.Channel, c.id)
	ctl.reply(c, inv, released)
}
