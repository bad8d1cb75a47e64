package signal

import (
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleAudio serves binary SendAudioChunk frames. Audio is never rate
// limited and never answered on success.
func (ctl *SignalWSController) handleAudio(c *WsSignalConn, data []byte) {
	ctl.countInvocation(MethodSendAudioChunk)
	ch, payload, err := DecodeAudioFrame(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad audio frame")
		_ = ctl.Hub.SendToCaller(c.id, domain.BroadcastError(err.Error()))
		return
	}
	ctl.Orch.SendAudioChunk(ch, c.id, payload)
}

func (ctl *SignalWSController) handleAudioBase64(c *WsSignalConn, inv Invocation) {
	if !ctl.requireChannel(c, inv) {
		return
	}
	res, err := ctl.Orch.SendAudioChunkBase64(inv.Channel, c.id, inv.Data)
	if err != nil {
		ctl.replyError(c, inv, err.Error())
		return
	}
	ctl.reply(c, inv, res.Kind.String())
}
