package core

import (
	"slices"
	"sync"

	"github.com/dkeye/VoiceRelay/internal/domain"
)

var (
	_ Registry = (*ChannelTable)(nil)
	_ Arbiter  = (*ChannelTable)(nil)
)

type channelState struct {
	broadcaster domain.ConnID
	members     map[domain.ConnID]struct{}
}

func (s *channelState) idle() bool {
	return s.broadcaster == "" && len(s.members) == 0
}

// ChannelTable is the in-memory channel state shared by the Registry
// and the Arbiter. A single RWMutex serializes every transition; reads
// take the same lock so they never see a half-applied write.
//
// A channel record is created on first use and dropped once it has no
// members and no broadcaster.
type ChannelTable struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]*channelState
}

func NewChannelTable() *ChannelTable {
	return &ChannelTable{channels: make(map[domain.ChannelID]*channelState)}
}

func (t *ChannelTable) getOrCreateLocked(ch domain.ChannelID) *channelState {
	s, ok := t.channels[ch]
	if !ok {
		s = &channelState{members: make(map[domain.ConnID]struct{})}
		t.channels[ch] = s
	}
	return s
}

func (t *ChannelTable) pruneLocked(ch domain.ChannelID, s *channelState) {
	if s.idle() {
		delete(t.channels, ch)
	}
}

// ChannelInfo returns the view of a single channel.
func (t *ChannelTable) ChannelInfo(ch domain.ChannelID) (domain.ChannelInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.channels[ch]
	if !ok {
		return domain.ChannelInfo{ID: ch}, false
	}
	return domain.ChannelInfo{ID: ch, Broadcaster: s.broadcaster, MemberCount: len(s.members)}, true
}

func sortedChannels(chs []domain.ChannelID) []domain.ChannelID {
	slices.Sort(chs)
	return chs
}
