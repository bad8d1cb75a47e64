package app

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrInvalidEncoding = errors.New("invalid audio encoding")

type RelayKind int

const (
	RelayDelivered RelayKind = iota
	// RelayEmpty is an authorized empty frame; it is dropped silently.
	RelayEmpty
	RelayNoBroadcaster
	RelayUnauthorized
)

func (k RelayKind) String() string {
	switch k {
	case RelayDelivered:
		return "delivered"
	case RelayEmpty:
		return "empty"
	case RelayNoBroadcaster:
		return "no_broadcaster"
	case RelayUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

type RelayResult struct {
	Kind  RelayKind
	Bytes int
	// Publish is only filled for RelayDelivered.
	Publish core.PublishResult
}

// ErrorMessage is the BroadcastError text owed to the sender, if any.
func (r RelayResult) ErrorMessage() string {
	switch r.Kind {
	case RelayNoBroadcaster:
		return domain.MsgNoBroadcaster
	case RelayUnauthorized:
		return domain.MsgUnauthorized
	default:
		return ""
	}
}

// RelayEngine forwards frames from the verified broadcaster of a channel
// to every other member. Payloads are opaque.
type RelayEngine struct {
	arbiter  core.Arbiter
	notifier core.Notifier
}

func NewRelayEngine(arbiter core.Arbiter, notifier core.Notifier) *RelayEngine {
	return &RelayEngine{arbiter: arbiter, notifier: notifier}
}

func (e *RelayEngine) Relay(ch domain.ChannelID, sender domain.ConnID, frame []byte) RelayResult {
	holder, ok := e.arbiter.CurrentBroadcaster(ch)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("channel", string(ch)).Str("conn", string(sender)).Msg("frame without broadcaster")
		return RelayResult{Kind: RelayNoBroadcaster}
	}
	if holder != sender {
		log.Debug().Str("module", "app.relay").Str("channel", string(ch)).Str("conn", string(sender)).Str("holder", string(holder)).Msg("frame from non-broadcaster")
		return RelayResult{Kind: RelayUnauthorized}
	}
	if len(frame) == 0 {
		return RelayResult{Kind: RelayEmpty}
	}

	pub := e.notifier.SendToGroupExcept(ch, sender, domain.ReceiveAudioChunk(ch, frame))
	return RelayResult{Kind: RelayDelivered, Bytes: len(frame), Publish: pub}
}

// RelayBase64 decodes the text form of a frame and relays it through
// the same authorization path as Relay.
func (e *RelayEngine) RelayBase64(ch domain.ChannelID, sender domain.ConnID, encoded string) (RelayResult, error) {
	frame, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return RelayResult{}, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return e.Relay(ch, sender, frame), nil
}
