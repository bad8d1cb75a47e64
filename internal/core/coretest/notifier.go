// Package coretest provides in-memory doubles for the core interfaces.
package coretest

import (
	"sync"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

// Delivery is one event as seen by one connection.
type Delivery struct {
	To    domain.ConnID
	Event domain.Event
}

// Notifier records every event it would deliver. Group sends resolve
// membership through the Registry at call time, like the real hub.
type Notifier struct {
	Members core.Registry

	mu         sync.Mutex
	deliveries []Delivery
	groupSends int
	// Slow connections fail every send with backpressure.
	slow map[domain.ConnID]bool
}

var _ core.Notifier = (*Notifier)(nil)

func NewNotifier(members core.Registry) *Notifier {
	return &Notifier{Members: members, slow: make(map[domain.ConnID]bool)}
}

func (n *Notifier) MarkSlow(conn domain.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.slow[conn] = true
}

func (n *Notifier) SendToCaller(conn domain.ConnID, ev domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, Delivery{To: conn, Event: ev})
	return nil
}

func (n *Notifier) SendToGroup(ch domain.ChannelID, ev domain.Event) core.PublishResult {
	return n.SendToGroupExcept(ch, "", ev)
}

func (n *Notifier) SendToGroupExcept(ch domain.ChannelID, exclude domain.ConnID, ev domain.Event) core.PublishResult {
	members := n.Members.MembersOf(ch)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.groupSends++
	res := core.PublishResult{}
	for _, conn := range members {
		if conn == exclude {
			continue
		}
		if n.slow[conn] {
			res.Dropped = append(res.Dropped, conn)
			continue
		}
		n.deliveries = append(n.deliveries, Delivery{To: conn, Event: ev})
		res.SendTo++
	}
	return res
}

func (n *Notifier) GroupSends() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.groupSends
}

func (n *Notifier) All() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Delivery(nil), n.deliveries...)
}

// For returns the events delivered to conn, in order.
func (n *Notifier) For(conn domain.ConnID) []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Event
	for _, d := range n.deliveries {
		if d.To == conn {
			out = append(out, d.Event)
		}
	}
	return out
}

// NamesFor returns only the event names delivered to conn.
func (n *Notifier) NamesFor(conn domain.ConnID) []domain.EventName {
	var out []domain.EventName
	for _, ev := range n.For(conn) {
		out = append(out, ev.Name)
	}
	return out
}

func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = nil
	n.groupSends = 0
}
