package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the hub and auth handlers update.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	connections  prometheus.Gauge
	broadcasts   *prometheus.CounterVec
	evictions    prometheus.Counter
	handshakes   *prometheus.CounterVec
	authRequests *prometheus.CounterVec
}

// NewMetrics registers the service collectors on a private registry, so
// several servers in one process (tests) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gochat",
			Name:      "connections",
			Help:      "Currently registered WebSocket connections.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gochat",
			Name:      "broadcasts_total",
			Help:      "Hub broadcasts by kind.",
		}, []string{"kind"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gochat",
			Name:      "evictions_total",
			Help:      "Clients dropped because their send queue was full.",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gochat",
			Name:      "handshakes_total",
			Help:      "WebSocket handshakes by resulting identity state.",
		}, []string{"state"}),
		authRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gochat",
			Name:      "auth_requests_total",
			Help:      "Auth endpoint responses by operation and status code.",
		}, []string{"op", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections,
		m.broadcasts,
		m.evictions,
		m.handshakes,
		m.authRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) setConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) incBroadcast(kind string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(kind).Inc()
}

func (m *Metrics) addEvictions(n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(float64(n))
}

func (m *Metrics) incHandshake(state string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(state).Inc()
}

func (m *Metrics) incAuth(op string, code int) {
	if m == nil {
		return
	}
	m.authRequests.WithLabelValues(op, strconv.Itoa(code)).Inc()
}
