package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics tracks websocket gateway activity.
type RealtimeMetrics struct {
	connections prometheus.Gauge
	online      prometheus.Gauge
	events      *prometheus.CounterVec
	drops       *prometheus.CounterVec
}

// NewRealtimeMetrics registers the gateway metrics on the provided registerer.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_connections",
		Help:      "Open websocket connections.",
	})
	online := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_online_users",
		Help:      "Users with at least one announced connection.",
	})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_inbound_events_total",
		Help:      "Inbound websocket events by name and outcome.",
	}, []string{"event", "outcome"})
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_outbound_drops_total",
		Help:      "Outbound frames dropped because a client send buffer was full.",
	}, []string{"event"})
	reg.MustRegister(connections, online, events, drops)
	return &RealtimeMetrics{
		connections: connections,
		online:      online,
		events:      events,
		drops:       drops,
	}
}

func (m *RealtimeMetrics) ConnectionOpened() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Inc()
}

func (m *RealtimeMetrics) ConnectionClosed() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Dec()
}

// SetOnlineUsers publishes the presence registry size.
func (m *RealtimeMetrics) SetOnlineUsers(n int) {
	if m == nil || m.online == nil {
		return
	}
	m.online.Set(float64(n))
}

// ObserveEvent counts one inbound event; outcome is "ok" or "error".
func (m *RealtimeMetrics) ObserveEvent(event, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

func (m *RealtimeMetrics) IncDrop(event string) {
	if m == nil || m.drops == nil {
		return
	}
	m.drops.WithLabelValues(normalizeLabel(event)).Inc()
}
