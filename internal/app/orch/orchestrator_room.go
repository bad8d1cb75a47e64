package orch

import (
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinRoom adds conn to the channel and tells it whether a broadcaster
// is live. Listeners joining a silent channel are told to wait.
func (o *Orchestrator) JoinRoom(ch domain.ChannelID, conn domain.ConnID, wantsBroadcast bool) error {
	o.transitions.Lock()
	defer o.transitions.Unlock()

	o.Registry.Join(ch, conn)
	_, hasBroadcaster := o.Arbiter.CurrentBroadcaster(ch)
	log.Info().
		Str("module", "orch").
		Str("channel", string(ch)).
		Str("conn", string(conn)).
		Bool("wants_broadcast", wantsBroadcast).
		Bool("has_broadcaster", hasBroadcaster).
		Msg("joined room")

	if err := o.sendToCaller(conn, domain.RoomStatus(ch, hasBroadcaster)); err != nil {
		return err
	}
	if !wantsBroadcast && !hasBroadcaster {
		return o.sendToCaller(conn, domain.WaitingForBroadcaster(ch))
	}
	return nil
}

// LeaveRoom drops membership only. A broadcaster that leaves keeps its
// role until it releases it or disconnects.
func (o *Orchestrator) LeaveRoom(ch domain.ChannelID, conn domain.ConnID) {
	empty := o.Registry.Leave(ch, conn)
	log.Info().Str("module", "orch").Str("channel", string(ch)).Str("conn", string(conn)).Bool("empty", empty).Msg("left room")
}

// RequestBroadcasterRole returns the grant. A denial is only visible to
// the caller through the return value.
func (o *Orchestrator) RequestBroadcasterRole(ch domain.ChannelID, conn domain.ConnID) bool {
	o.transitions.Lock()
	defer o.transitions.Unlock()

	if !o.Arbiter.RequestRole(ch, conn) {
		o.countRole("denied")
		return false
	}
	o.countRole("granted")
	o.toGroup(ch, domain.BroadcasterJoined(ch, conn))
	o.toOthers(ch, conn, domain.BroadcasterAvailable(ch))
	return true
}

// ReleaseBroadcasterRole is a no-op unless conn holds the role.
func (o *Orchestrator) ReleaseBroadcasterRole(ch domain.ChannelID, conn domain.ConnID) bool {
	o.transitions.Lock()
	defer o.transitions.Unlock()

	if !o.Arbiter.ReleaseRole(ch, conn) {
		return false
	}
	o.toGroup(ch, domain.BroadcasterLeft(ch, conn))
	o.toOthers(ch, conn, domain.WaitingForBroadcaster(ch))
	return true
}

// OnDisconnected releases every role held by conn, notifies the former
// channel-mates while they are still members, then drops membership.
func (o *Orchestrator) OnDisconnected(conn domain.ConnID) {
	o.transitions.Lock()
	defer o.transitions.Unlock()

	released := o.Arbiter.ForceRelease(conn)
	for _, ch := range released {
		o.toOthers(ch, conn, domain.BroadcasterLeft(ch, conn))
		o.toOthers(ch, conn, domain.WaitingForBroadcaster(ch))
	}

	channels := o.Registry.ChannelsOf(conn)
	for _, ch := range channels {
		o.Registry.Leave(ch, conn)
	}
	log.Info().
		Str("module", "orch").
		Str("conn", string(conn)).
		Int("released", len(released)).
		Int("left", len(channels)).
		Msg("connection cleaned up")
}

func (o *Orchestrator) countRole(outcome string) {
	if o.Metrics != nil {
		o.Metrics.RoleRequests.WithLabelValues(outcome).Inc()
	}
}
