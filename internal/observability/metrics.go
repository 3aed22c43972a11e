package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus collectors for the service. Each instance has
// its own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	wsClients       prometheus.Gauge
	envelopes       *prometheus.CounterVec
	botInteractions *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "HTTP requests that ended in an application error, by error code.",
		}, []string{"method", "path", "code"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helpdesk_ws_clients",
			Help: "Currently connected websocket clients.",
		}),
		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_ws_envelopes_total",
			Help: "Notification envelopes offered to websocket clients.",
		}, []string{"type", "outcome"}),
		botInteractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_bot_interactions_total",
			Help: "Discord interactions handled, by command and outcome.",
		}, []string{"command", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.errors, m.wsClients, m.envelopes, m.botInteractions,
	)
	return m
}

// RecordRequest counts a finished request. path should be the route pattern.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordBotInteraction counts a handled Discord interaction.
func (m *Metrics) RecordBotInteraction(command, outcome string) {
	if m == nil {
		return
	}
	m.botInteractions.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}

func (m *Metrics) EnvelopesDelivered(eventType string, n int) {
	if m != nil && n > 0 {
		m.envelopes.WithLabelValues(eventType, "delivered").Add(float64(n))
	}
}

func (m *Metrics) EnvelopesDropped(eventType string, n int) {
	if m != nil && n > 0 {
		m.envelopes.WithLabelValues(eventType, "dropped").Add(float64(n))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
