// Package domain contains entities without logic, just meta-data
package domain

type (
	// ChannelID names a room. Format is not checked here.
	ChannelID string
	// ConnID is an opaque connection handle owned by the transport.
	ConnID string
)

// ChannelInfo is a read-only view of one channel for APIs.
type ChannelInfo struct {
	ID          ChannelID `json:"channel"`
	Broadcaster ConnID    `json:"broadcaster,omitempty"`
	MemberCount int       `json:"members"`
}

func (c ChannelInfo) HasBroadcaster() bool { return c.Broadcaster != "" }

// DebugInfo is the diagnostic snapshot returned by GetDebugInfo.
type DebugInfo struct {
	Broadcasters map[ChannelID]ConnID `json:"broadcasters"`
	MemberCounts map[ChannelID]int    `json:"memberCounts"`
}
