package core

import "github.com/dkeye/VoiceRelay/internal/domain"

// Registry tracks channel membership.
type Registry interface {
	Join(ch domain.ChannelID, conn domain.ConnID)
	// Leave reports whether the channel has no members left.
	Leave(ch domain.ChannelID, conn domain.ConnID) bool
	MembersOf(ch domain.ChannelID) []domain.ConnID
	ChannelsOf(conn domain.ConnID) []domain.ChannelID
	ChannelInfo(ch domain.ChannelID) (domain.ChannelInfo, bool)
	AllChannels() []domain.ChannelInfo
}

// Arbiter holds at most one broadcaster per channel.
type Arbiter interface {
	RequestRole(ch domain.ChannelID, conn domain.ConnID) bool
	ReleaseRole(ch domain.ChannelID, conn domain.ConnID) bool
	IsAuthorized(ch domain.ChannelID, conn domain.ConnID) bool
	CurrentBroadcaster(ch domain.ChannelID) (domain.ConnID, bool)
	// ForceRelease drops every role held by conn and returns the affected channels.
	ForceRelease(conn domain.ConnID) []domain.ChannelID
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnID
}

// Notifier is the transport side of the hub: it delivers events to
// a single connection or to the members of a channel.
type Notifier interface {
	SendToCaller(conn domain.ConnID, ev domain.Event) error
	SendToGroup(ch domain.ChannelID, ev domain.Event) PublishResult
	SendToGroupExcept(ch domain.ChannelID, exclude domain.ConnID, ev domain.Event) PublishResult
}

// Disconnector lets the core ask the transport to drop a connection.
// The transport reports the drop back through OnDisconnected.
type Disconnector interface {
	Disconnect(conn domain.ConnID)
}
