package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the record gateway.
type Metrics struct {
	registry      *prometheus.Registry
	requestsTotal *prometheus.CounterVec
	errorsTotal   prometheus.Counter
	startedTotal  prometheus.Counter
	stoppedTotal  prometheus.Counter
	rejectedTotal *prometheus.CounterVec
	activeRecords prometheus.Gauge
}

// New creates and registers Prometheus metrics for the gateway.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "record_requests_total",
		Help: "Total number of HTTP requests received, by method and route pattern",
	}, []string{"method", "route"})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	startedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "records_started_total",
		Help: "Total number of recordings started",
	})
	stoppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "records_stopped_total",
		Help: "Total number of recordings stopped",
	})
	rejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "records_rejected_total",
		Help: "Total number of start or stop requests rejected, by reason",
	}, []string{"reason"})
	activeRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "records_active",
		Help: "Number of tracked recordings that have not finished",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		startedTotal,
		stoppedTotal,
		rejectedTotal,
		activeRecords,
	)

	return &Metrics{
		registry:      registry,
		requestsTotal: requestsTotal,
		errorsTotal:   errorsTotal,
		startedTotal:  startedTotal,
		stoppedTotal:  stoppedTotal,
		rejectedTotal: rejectedTotal,
		activeRecords: activeRecords,
	}
}

// IncRequests increments the request counter for method and route.
func (m *Metrics) IncRequests(method, route string) {
	m.requestsTotal.WithLabelValues(method, route).Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncStarted increments the started recordings counter.
func (m *Metrics) IncStarted() {
	m.startedTotal.Inc()
}

// IncStopped increments the stopped recordings counter.
func (m *Metrics) IncStopped() {
	m.stoppedTotal.Inc()
}

// IncRejected increments the rejected requests counter for reason.
func (m *Metrics) IncRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// SetActiveRecords sets the active recordings gauge.
func (m *Metrics) SetActiveRecords(n int) {
	m.activeRecords.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
