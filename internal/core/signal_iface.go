package core

// Frame is one message queued for a connection: an encoded event, or
// an audio chunk when Binary is set.
type Frame struct {
	Binary bool
	Data   []byte
}

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
