package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

// Invocation methods accepted on text frames.
const (
	MethodJoinRoom               = "JoinRoom"
	MethodLeaveRoom              = "LeaveRoom"
	MethodRequestBroadcasterRole = "RequestBroadcasterRole"
	MethodReleaseBroadcasterRole = "ReleaseBroadcasterRole"
	MethodSendAudioChunkBase64   = "SendAudioChunkBase64"
	MethodSendAudioChunk         = "SendAudioChunk"
	MethodPing                   = "Ping"
)

const maxChannelLen = 255

var ErrBadAudioFrame = errors.New("bad audio frame")

// Invocation is a client call carried in a text frame.
type Invocation struct {
	Type      string           `json:"type"`
	ID        string           `json:"id,omitempty"`
	Method    string           `json:"method"`
	Channel   domain.ChannelID `json:"channel,omitempty"`
	Broadcast bool             `json:"broadcast,omitempty"`
	Data      string           `json:"data,omitempty"`
}

// Result answers an Invocation that carried an ID.
type Result struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type eventMessage struct {
	Type string `json:"type"`
	domain.Event
}

// EncodeEvent turns ev into a queued frame. Audio goes out as the raw
// chunk in a binary frame; everything else is a JSON text frame.
func EncodeEvent(ev domain.Event) (core.Frame, error) {
	if ev.Name == domain.EventReceiveAudioChunk {
		return core.Frame{Binary: true, Data: ev.Frame}, nil
	}
	b, err := json.Marshal(eventMessage{Type: "event", Event: ev})
	if err != nil {
		return core.Frame{}, fmt.Errorf("encode %s: %w", ev.Name, err)
	}
	return core.Frame{Data: b}, nil
}

// EncodeAudioFrame builds the binary SendAudioChunk frame: one length
// byte, the channel id, then the payload.
func EncodeAudioFrame(ch domain.ChannelID, payload []byte) ([]byte, error) {
	if len(ch) == 0 || len(ch) > maxChannelLen {
		return nil, fmt.Errorf("%w: channel id length %d", ErrBadAudioFrame, len(ch))
	}
	out := make([]byte, 0, 1+len(ch)+len(payload))
	out = append(out, byte(len(ch)))
	out = append(out, ch...)
	return append(out, payload...), nil
}

// DecodeAudioFrame is the inverse of EncodeAudioFrame. The payload
// aliases data.
func DecodeAudioFrame(data []byte) (domain.ChannelID, []byte, error) {
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty", ErrBadAudioFrame)
	}
	n := int(data[0])
	if n == 0 || len(data) < 1+n {
		return "", nil, fmt.Errorf("%w: channel id length %d", ErrBadAudioFrame, n)
	}
	return domain.ChannelID(data[1 : 1+n]), data[1+n:], nil
}
