package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors on a private registry, so several
// instances (one per test) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// Events created by severity
	EventsCreated *prometheus.CounterVec

	// Status transitions by target status
	Transitions *prometheus.CounterVec

	// Timeline entries written outside transitions
	TimelineNotes prometheus.Counter

	// Failed operations by operation and error code
	OperationErrors *prometheus.CounterVec

	// Request latency by route pattern, method and status code
	RequestLatency *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetrail_events_created_total",
			Help: "Total emergency events created by severity",
		}, []string{"severity"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetrail_status_transitions_total",
			Help: "Total committed status transitions by target status",
		}, []string{"status"}),

		TimelineNotes: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrail_timeline_notes_total",
			Help: "Total free-form timeline notes appended",
		}),

		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetrail_operation_errors_total",
			Help: "Failed lifecycle operations by operation and error code",
		}, []string{"operation", "code"}),

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safetrail_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "code"}),
	}
}

func (m *Metrics) IncrementCreated(severity string) {
	if m != nil {
		m.EventsCreated.WithLabelValues(severity).Inc()
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementNote() {
	if m != nil {
		m.TimelineNotes.Inc()
	}
}

func (m *Metrics) IncrementError(operation, code string) {
	if m != nil {
		m.OperationErrors.WithLabelValues(operation, code).Inc()
	}
}

func (m *Metrics) ObserveRequest(route, method, code string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route, method, code).Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
