package orch

import (
	"github.com/dkeye/VoiceRelay/internal/app"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// SendAudioChunk relays one frame from conn. Authorization failures are
// reported to conn alone with BroadcastError.
func (o *Orchestrator) SendAudioChunk(ch domain.ChannelID, conn domain.ConnID, frame []byte) app.RelayResult {
	res := o.Relay.Relay(ch, conn, frame)
	o.onRelayResult(ch, conn, res)
	return res
}

// SendAudioChunkBase64 is SendAudioChunk for the text encoding of a frame.
// A malformed payload is dropped and reported to conn.
func (o *Orchestrator) SendAudioChunkBase64(ch domain.ChannelID, conn domain.ConnID, encoded string) (app.RelayResult, error) {
	res, err := o.Relay.RelayBase64(ch, conn, encoded)
	if err != nil {
		o.countRejected("invalid_encoding")
		log.Debug().Err(err).Str("module", "orch").Str("channel", string(ch)).Str("conn", string(conn)).Msg("bad base64 frame")
		_ = o.sendToCaller(conn, domain.BroadcastError(err.Error()))
		return res, err
	}
	o.onRelayResult(ch, conn, res)
	return res, nil
}

func (o *Orchestrator) onRelayResult(ch domain.ChannelID, conn domain.ConnID, res app.RelayResult) {
	switch res.Kind {
	case app.RelayDelivered:
		if o.Metrics != nil {
			o.Metrics.FramesRelayed.Inc()
			o.Metrics.BytesRelayed.Add(float64(res.Bytes))
		}
		o.onBackPressure(ch, res.Publish)
	case app.RelayEmpty:
		o.countRejected(res.Kind.String())
	case app.RelayNoBroadcaster, app.RelayUnauthorized:
		o.countRejected(res.Kind.String())
		_ = o.sendToCaller(conn, domain.BroadcastError(res.ErrorMessage()))
	}
}

func (o *Orchestrator) countRejected(reason string) {
	if o.Metrics != nil {
		o.Metrics.FramesRejected.WithLabelValues(reason).Inc()
	}
}
