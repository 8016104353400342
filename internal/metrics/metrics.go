package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mossy-p/room-signaling/internal/presence"
)

const namespace = "signaling"

var _ presence.Observer = (*Metrics)(nil)

// Drop reasons for outbound and inbound messages.
const (
	DropSendBufferFull = "send_buffer_full"
	DropMalformed      = "malformed"
	DropUnknownEvent   = "unknown_event"
	DropEncodeFailed   = "encode_failed"
)

// Metrics holds the signaling collectors and implements presence.Observer.
type Metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	inbound     *prometheus.CounterVec
	relayed     prometheus.Counter
	dropped     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live websocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound websocket events by event name.",
		}, []string{"event"}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_delivered_total",
			Help:      "Signal messages queued to room peers.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages dropped by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.connections, m.rooms, m.inbound, m.relayed, m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ConnectionsChanged(n int) {
	m.connections.Set(float64(n))
}

func (m *Metrics) RoomChanged(_ string, _ []string, rooms int) {
	m.rooms.Set(float64(rooms))
}

func (m *Metrics) SignalRelayed(_ string, recipients int) {
	m.relayed.Add(float64(recipients))
}

func (m *Metrics) InboundEvent(event string) {
	m.inbound.WithLabelValues(event).Inc()
}

func (m *Metrics) Dropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

// Handler exposes the registry at /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
