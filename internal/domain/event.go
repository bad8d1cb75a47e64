package domain

type EventName string

const (
	EventRoomStatus            EventName = "RoomStatus"
	EventWaitingForBroadcaster EventName = "WaitingForBroadcaster"
	EventBroadcasterJoined     EventName = "BroadcasterJoined"
	EventBroadcasterAvailable  EventName = "BroadcasterAvailable"
	EventBroadcasterLeft       EventName = "BroadcasterLeft"
	EventBroadcastError        EventName = "BroadcastError"
	EventReceiveAudioChunk     EventName = "ReceiveAudioChunk"
)

// Messages carried by BroadcastError.
const (
	MsgNoBroadcaster = "No active broadcaster for this channel"
	MsgUnauthorized  = "Another user is currently broadcasting on this channel"
	MsgRateLimited   = "rate limit exceeded"
)

// Event is a notification pushed to one or more connections.
// Frame is only set for ReceiveAudioChunk.
type Event struct {
	Name           EventName `json:"event"`
	Channel        ChannelID `json:"channel,omitempty"`
	Conn           ConnID    `json:"connectionId,omitempty"`
	HasBroadcaster *bool     `json:"hasBroadcaster,omitempty"`
	Message        string    `json:"message,omitempty"`
	Frame          []byte    `json:"-"`
}

func RoomStatus(ch ChannelID, hasBroadcaster bool) Event {
	return Event{Name: EventRoomStatus, Channel: ch, HasBroadcaster: &hasBroadcaster}
}

func WaitingForBroadcaster(ch ChannelID) Event {
	return Event{Name: EventWaitingForBroadcaster, Channel: ch}
}

func BroadcasterJoined(ch ChannelID, conn ConnID) Event {
	return Event{Name: EventBroadcasterJoined, Channel: ch, Conn: conn}
}

func BroadcasterAvailable(ch ChannelID) Event {
	return Event{Name: EventBroadcasterAvailable, Channel: ch}
}

func BroadcasterLeft(ch ChannelID, conn ConnID) Event {
	return Event{Name: EventBroadcasterLeft, Channel: ch, Conn: conn}
}

func BroadcastError(msg string) Event {
	return Event{Name: EventBroadcastError, Message: msg}
}

func ReceiveAudioChunk(ch ChannelID, frame []byte) Event {
	return Event{Name: EventReceiveAudioChunk, Channel: ch, Frame: frame}
}
