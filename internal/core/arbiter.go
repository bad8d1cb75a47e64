package core

import (
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RequestRole grants the broadcaster role when the channel has none.
// A re-request by the current holder succeeds without a transition.
// The winner becomes a member in the same critical section.
func (t *ChannelTable) RequestRole(ch domain.ChannelID, conn domain.ConnID) bool {
	if conn == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.channels[ch]
	if ok && s.broadcaster != "" {
		if s.broadcaster == conn {
			return true
		}
		log.Debug().Str("module", "core.channels").Str("channel", string(ch)).Str("conn", string(conn)).Str("holder", string(s.broadcaster)).Msg("broadcaster role denied")
		return false
	}
	s = t.getOrCreateLocked(ch)
	s.broadcaster = conn
	s.members[conn] = struct{}{}
	log.Info().Str("module", "core.channels").Str("channel", string(ch)).Str("conn", string(conn)).Msg("broadcaster role granted")
	return true
}

func (t *ChannelTable) ReleaseRole(ch domain.ChannelID, conn domain.ConnID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.channels[ch]
	if !ok || s.broadcaster != conn || conn == "" {
		return false
	}
	s.broadcaster = ""
	t.pruneLocked(ch, s)
	log.Info().Str("module", "core.channels").Str("channel", string(ch)).Str("conn", string(conn)).Msg("broadcaster role released")
	return true
}

func (t *ChannelTable) IsAuthorized(ch domain.ChannelID, conn domain.ConnID) bool {
	holder, ok := t.CurrentBroadcaster(ch)
	return ok && holder == conn
}

func (t *ChannelTable) CurrentBroadcaster(ch domain.ChannelID) (domain.ConnID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.channels[ch]
	if !ok || s.broadcaster == "" {
		return "", false
	}
	return s.broadcaster, true
}

func (t *ChannelTable) ForceRelease(conn domain.ConnID) []domain.ChannelID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var released []domain.ChannelID
	for ch, s := range t.channels {
		if s.broadcaster != conn || conn == "" {
			continue
		}
		s.broadcaster = ""
		released = append(released, ch)
		t.pruneLocked(ch, s)
	}
	if len(released) > 0 {
		log.Info().Str("module", "core.channels").Str("conn", string(conn)).Int("channels", len(released)).Msg("broadcaster roles force released")
	}
	return sortedChannels(released)
}
