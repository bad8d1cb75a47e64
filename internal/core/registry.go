package core

import (
	"slices"
	"strings"

	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (t *ChannelTable) Join(ch domain.ChannelID, conn domain.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.getOrCreateLocked(ch)
	if _, ok := s.members[conn]; ok {
		return
	}
	s.members[conn] = struct{}{}
	log.Debug().Str("module", "core.channels").Str("channel", string(ch)).Str("conn", string(conn)).Int("members", len(s.members)).Msg("member joined")
}

func (t *ChannelTable) Leave(ch domain.ChannelID, conn domain.ConnID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.channels[ch]
	if !ok {
		return true
	}
	if _, ok := s.members[conn]; ok {
		delete(s.members, conn)
		log.Debug().Str("module", "core.channels").Str("channel", string(ch)).Str("conn", string(conn)).Int("members", len(s.members)).Msg("member left")
	}
	empty := len(s.members) == 0
	t.pruneLocked(ch, s)
	return empty
}

func (t *ChannelTable) MembersOf(ch domain.ChannelID) []domain.ConnID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.channels[ch]
	if !ok {
		return nil
	}
	out := make([]domain.ConnID, 0, len(s.members))
	for conn := range s.members {
		out = append(out, conn)
	}
	slices.Sort(out)
	return out
}

func (t *ChannelTable) ChannelsOf(conn domain.ConnID) []domain.ChannelID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []domain.ChannelID
	for ch, s := range t.channels {
		if _, ok := s.members[conn]; ok {
			out = append(out, ch)
		}
	}
	return sortedChannels(out)
}

func (t *ChannelTable) AllChannels() []domain.ChannelInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChannelInfo, 0, len(t.channels))
	for ch, s := range t.channels {
		out = append(out, domain.ChannelInfo{ID: ch, Broadcaster: s.broadcaster, MemberCount: len(s.members)})
	}
	slices.SortFunc(out, func(a, b domain.ChannelInfo) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}
