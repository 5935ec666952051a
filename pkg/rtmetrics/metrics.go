// Package rtmetrics exports realtime session metrics to Prometheus. Metrics
// is an openairealtime.Observer; attach it with openairealtime.WithObserver.
package rtmetrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

// Metrics groups the Prometheus instruments of one engine.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	Sessions         *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec
	Events           *prometheus.CounterVec
	Evictions        prometheus.Counter
	StatusChanges    prometheus.Counter
	ConnectLatency   prometheus.Histogram

	mu        sync.Mutex
	started   time.Time
	live      bool
	connected bool
}

// NewMetrics registers the instruments with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of connected realtime voice sessions.",
		}),
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions that connected, and the single final outcome of each: ended or failed.",
		}, []string{"outcome"}),
		StateTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Negotiation state transitions by target state.",
		}, []string{"state"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Data channel events by direction and type.",
		}, []string{"direction", "type"}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_evictions_total",
			Help:      "Conversation items evicted and deleted on the server.",
		}),
		StatusChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Status lines reported to observers.",
		}),
		ConnectLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connect_latency_ms",
			Help:      "Time from Call to ICE connected in milliseconds.",
			Buckets:   []float64{250, 500, 750, 1000, 1500, 2000, 3000, 5000, 10000},
		}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) OnStatusChange(string) {
	m.StatusChanges.Inc()
}

func (m *Metrics) OnStateChange(_, to openairealtime.State) {
	m.StateTransitions.WithLabelValues(to.String()).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	switch to {
	case openairealtime.StateBootstrapping:
		m.started = time.Now()
		m.live = true
	case openairealtime.StateConnected:
		if !m.started.IsZero() {
			m.ConnectLatency.Observe(float64(time.Since(m.started).Milliseconds()))
			m.started = time.Time{}
		}
	case openairealtime.StateDisconnected:
		if !m.live {
			return
		}
		// The final outcome is decided here, whether or not OnDisconnected follows.
		if m.connected {
			m.connected = false
			m.ActiveSessions.Dec()
			m.Sessions.WithLabelValues("ended").Inc()
		} else {
			m.Sessions.WithLabelValues("failed").Inc()
		}
		m.live = false
		m.started = time.Time{}
	}
}

func (m *Metrics) OnConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		m.connected = true
		m.ActiveSessions.Inc()
		m.Sessions.WithLabelValues("connected").Inc()
	}
}

func (m *Metrics) OnDisconnected() {}

func (m *Metrics) OnEvent(dir openairealtime.Direction, eventType string) {
	m.Events.WithLabelValues(string(dir), eventType).Inc()
	if dir == openairealtime.DirectionOutbound && eventType == openairealtime.EventTypeConversationItemDelete {
		m.Evictions.Inc()
	}
}

var _ openairealtime.Observer = (*Metrics)(nil)
