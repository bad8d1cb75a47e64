package orch

import (
	"sync"

	"github.com/dkeye/VoiceRelay/internal/app"
	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Orchestrator keeps the Registry and the Arbiter consistent and emits
// the channel notifications. It is the entry point the transport calls.
type Orchestrator struct {
	Registry core.Registry
	Arbiter  core.Arbiter
	Notifier core.Notifier
	Relay    *app.RelayEngine
	Policy   app.Policy
	// Kicker is optional; without it KickMember degrades to DropFrame.
	Kicker  core.Disconnector
	Metrics *metrics.RelayMetrics

	// transitions orders role changes and join status reads with the
	// notifications they queue, so listeners see them in the same order.
	transitions sync.Mutex
}

func New(
	channels *core.ChannelTable,
	notifier core.Notifier,
	policy app.Policy,
	m *metrics.RelayMetrics,
) *Orchestrator {
	if policy == nil {
		policy = app.DropPolicy{}
	}
	return &Orchestrator{
		Registry: channels,
		Arbiter:  channels,
		Notifier: notifier,
		Relay:    app.NewRelayEngine(channels, notifier),
		Policy:   policy,
		Metrics:  m,
	}
}

// GetDebugInfo returns broadcasters and member counts from one snapshot.
func (o *Orchestrator) GetDebugInfo() domain.DebugInfo {
	channels := o.Registry.AllChannels()
	out := domain.DebugInfo{
		Broadcasters: make(map[domain.ChannelID]domain.ConnID),
		MemberCounts: make(map[domain.ChannelID]int, len(channels)),
	}
	for _, c := range channels {
		if c.HasBroadcaster() {
			out.Broadcasters[c.ID] = c.Broadcaster
		}
		out.MemberCounts[c.ID] = c.MemberCount
	}
	return out
}

func (o *Orchestrator) Channels() []domain.ChannelInfo {
	return o.Registry.AllChannels()
}

func (o *Orchestrator) ChannelStatus(ch domain.ChannelID) (domain.ChannelInfo, bool) {
	return o.Registry.ChannelInfo(ch)
}

func (o *Orchestrator) sendToCaller(conn domain.ConnID, ev domain.Event) error {
	if err := o.Notifier.SendToCaller(conn, ev); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(conn)).Str("event", string(ev.Name)).Msg("send to caller failed")
		return err
	}
	return nil
}

func (o *Orchestrator) toGroup(ch domain.ChannelID, ev domain.Event) {
	res := o.Notifier.SendToGroup(ch, ev)
	o.onBackPressure(ch, res)
}

func (o *Orchestrator) toOthers(ch domain.ChannelID, exclude domain.ConnID, ev domain.Event) {
	res := o.Notifier.SendToGroupExcept(ch, exclude, ev)
	o.onBackPressure(ch, res)
}

func (o *Orchestrator) onBackPressure(ch domain.ChannelID, res core.PublishResult) {
	if len(res.Dropped) == 0 {
		return
	}
	if o.Metrics != nil {
		o.Metrics.ListenerDrops.Add(float64(len(res.Dropped)))
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(ch, slow) {
		case app.KickMember:
			if o.Kicker == nil {
				continue
			}
			log.Warn().Str("module", "orch").Str("channel", string(ch)).Str("conn", string(slow)).Msg("kicking slow listener")
			o.Kicker.Disconnect(slow)
		case app.DropFrame, app.NoAction:
			log.Debug().Str("module", "orch").Str("channel", string(ch)).Str("conn", string(slow)).Msg("listener queue full, frame dropped")
		}
	}
}
