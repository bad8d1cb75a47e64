package app

import (
	"fmt"

	"github.com/dkeye/VoiceRelay/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a listener whose send queue was full
// when a frame was fanned out.
type Policy interface {
	OnBackPressure(ch domain.ChannelID, conn domain.ConnID) BackpressureAction
}

// DropPolicy lets the slow listener miss the frame. Fan-out is best effort.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.ChannelID, domain.ConnID) BackpressureAction {
	return DropFrame
}

// KickPolicy disconnects the slow listener.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.ChannelID, domain.ConnID) BackpressureAction {
	return KickMember
}

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
