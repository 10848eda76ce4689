package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ProvisionsTotal    *prometheus.CounterVec
	ProvisionFailures  *prometheus.CounterVec
	ProvisionDuration  prometheus.Histogram
	CarrierCalls       *prometheus.CounterVec
	CarrierCallLatency *prometheus.HistogramVec
}

// NewMetrics creates Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipdoc_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipdoc_request_duration_seconds",
				Help:    "HTTP request duration in seconds by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ProvisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipdoc_provisions_total",
				Help: "Total number of provisioning runs by outcome",
			},
			[]string{"outcome"},
		),
		ProvisionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipdoc_provision_failures_total",
				Help: "Total provisioning failures by failing step and error code",
			},
			[]string{"step", "code"},
		),
		ProvisionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shipdoc_provision_duration_seconds",
				Help:    "Duration of provisioning runs in seconds",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40},
			},
		),
		CarrierCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipdoc_carrier_calls_total",
				Help: "Total carrier API calls by model, method and status",
			},
			[]string{"model", "method", "status"},
		),
		CarrierCallLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipdoc_carrier_call_duration_seconds",
				Help:    "Carrier API call duration in seconds by model and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "method"},
		),
	}
}

// RecordRequest records an HTTP request metric.
func (m *Metrics) RecordRequest(route, status string, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration)
}

// RecordProvision records the outcome of one provisioning run.
// step and code are empty on success.
func (m *Metrics) RecordProvision(step, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProvisionDuration.Observe(duration.Seconds())
	if code == "" {
		m.ProvisionsTotal.WithLabelValues("success").Inc()
		return
	}
	m.ProvisionsTotal.WithLabelValues("failure").Inc()
	m.ProvisionFailures.WithLabelValues(step, code).Inc()
}

// ObserveCarrierCall records one carrier API call.
func (m *Metrics) ObserveCarrierCall(model, method string, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CarrierCalls.WithLabelValues(model, method, status).Inc()
	m.CarrierCallLatency.WithLabelValues(model, method).Observe(took.Seconds())
}
