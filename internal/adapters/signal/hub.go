package signal

import (
	"errors"
	"sync"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Hub maps ConnIDs to live connections and delivers events to them.
// Group membership is read from the Registry at send time.
type Hub struct {
	Members core.Registry
	Metrics *metrics.HubMetrics

	mu    sync.RWMutex
	conns map[domain.ConnID]core.SignalConnection
}

var (
	_ core.Notifier     = (*Hub)(nil)
	_ core.Disconnector = (*Hub)(nil)
)

func NewHub(members core.Registry, m *metrics.HubMetrics) *Hub {
	return &Hub{
		Members: members,
		Metrics: m,
		conns:   make(map[domain.ConnID]core.SignalConnection),
	}
}

func (h *Hub) Register(id domain.ConnID, c core.SignalConnection) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
	if h.Metrics != nil {
		h.Metrics.ActiveConnections.Inc()
	}
}

// Unregister reports whether id was known.
func (h *Hub) Unregister(id domain.ConnID) bool {
	h.mu.Lock()
	_, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if ok && h.Metrics != nil {
		h.Metrics.ActiveConnections.Dec()
	}
	return ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) lookup(id domain.ConnID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

func (h *Hub) SendToCaller(conn domain.ConnID, ev domain.Event) error {
	c, ok := h.lookup(conn)
	if !ok {
		return ErrUnknownConn
	}
	f, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return c.TrySend(f)
}

func (h *Hub) SendToGroup(ch domain.ChannelID, ev domain.Event) core.PublishResult {
	return h.SendToGroupExcept(ch, "", ev)
}

// SendToGroupExcept encodes ev once and queues it for every member but
// exclude. A full queue is reported in Dropped and never blocks the rest.
func (h *Hub) SendToGroupExcept(ch domain.ChannelID, exclude domain.ConnID, ev domain.Event) core.PublishResult {
	res := core.PublishResult{}
	f, err := EncodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("channel", string(ch)).Msg("encode event")
		return res
	}

	members := h.Members.MembersOf(ch)
	type target struct {
		id   domain.ConnID
		conn core.SignalConnection
	}
	targets := make([]target, 0, len(members))
	h.mu.RLock()
	for _, id := range members {
		if id == exclude {
			continue
		}
		if c, ok := h.conns[id]; ok {
			targets = append(targets, target{id, c})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		err := t.conn.TrySend(f)
		switch {
		case err == nil:
			res.SendTo++
		case errors.Is(err, ErrBackpressure):
			res.Dropped = append(res.Dropped, t.id)
		default:
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(t.id)).Msg("group send skipped")
		}
	}
	return res
}

// Disconnect closes the socket; the read pump then runs the normal
// disconnect path.
func (h *Hub) Disconnect(conn domain.ConnID) {
	if c, ok := h.lookup(conn); ok {
		c.Close()
	}
}
