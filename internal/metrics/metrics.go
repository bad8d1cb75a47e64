// Package metrics holds the Prometheus collectors of the relay.
package metrics

import (
	"net/http"

	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voicerelay"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// RelayMetrics covers arbitration and frame fan-out.
type RelayMetrics struct {
	FramesRelayed  prometheus.Counter
	BytesRelayed   prometheus.Counter
	FramesRejected *prometheus.CounterVec
	ListenerDrops  prometheus.Counter
	RoleRequests   *prometheus.CounterVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		FramesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Audio frames fanned out to listeners.",
		}),
		BytesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "bytes_total",
			Help:      "Audio payload bytes accepted for fan-out.",
		}),
		FramesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "frames_rejected_total",
			Help:      "Frames not relayed, by reason.",
		}, []string{"reason"}),
		ListenerDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "listener_drops_total",
			Help:      "Per-listener sends skipped because the listener queue was full.",
		}),
		RoleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arbiter",
			Name:      "role_requests_total",
			Help:      "Broadcaster role requests, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.FramesRelayed, m.BytesRelayed, m.FramesRejected, m.ListenerDrops, m.RoleRequests)
	return m
}

// ChannelLister is satisfied by core.ChannelTable.
type ChannelLister interface {
	AllChannels() []domain.ChannelInfo
}

// RegisterChannelGauges exposes channel and broadcaster counts computed on scrape.
func RegisterChannelGauges(reg prometheus.Registerer, channels ChannelLister) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "arbiter",
			Name:      "channels",
			Help:      "Channels currently held in memory.",
		}, func() float64 {
			return float64(len(channels.AllChannels()))
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "arbiter",
			Name:      "active_broadcasters",
			Help:      "Channels with an active broadcaster.",
		}, func() float64 {
			n := 0
			for _, c := range channels.AllChannels() {
				if c.HasBroadcaster() {
					n++
				}
			}
			return float64(n)
		}),
	)
}

// HubMetrics holds Prometheus metrics for the websocket hub.
type HubMetrics struct {
	ActiveConnections prometheus.Gauge
	Invocations       *prometheus.CounterVec
	RateLimited       prometheus.Counter
}

func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "invocations_total",
			Help:      "Hub invocations received, by method.",
		}, []string{"method"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rate_limited_total",
			Help:      "Control invocations rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.Invocations, m.RateLimited)
	return m
}
