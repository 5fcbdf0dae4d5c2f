package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling
// engine. All observe methods are nil-safe so callers never need to guard.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	proposalsTotal  *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	pinValidations  *prometheus.CounterVec
	slotsResolved   prometheus.Histogram
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	proposalsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_proposals_total",
		Help: "Appointment proposals by outcome",
	}, []string{"outcome"})

	transitionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_transitions_total",
		Help: "Appointment lifecycle transitions by action and outcome",
	}, []string{"action", "outcome"})

	pinValidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pin_validations_total",
		Help: "PIN validation attempts by outcome",
	}, []string{"outcome"})

	slotsResolved := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_slots_resolved",
		Help:    "Number of open slots returned per availability resolution",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, proposalsTotal,
		transitionTotal, pinValidations, slotsResolved, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		proposalsTotal:  proposalsTotal,
		transitionTotal: transitionTotal,
		pinValidations:  pinValidations,
		slotsResolved:   slotsResolved,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveProposal counts a proposal attempt. Outcomes: accepted, overlap,
// blocked, contended, invalid.
func (m *MetricsService) ObserveProposal(outcome string) {
	if m == nil {
		return
	}
	m.proposalsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTransition counts a lifecycle transition attempt.
func (m *MetricsService) ObserveTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(action, outcome).Inc()
}

// ObservePinValidation counts a PIN validation attempt. Outcomes: validated,
// mismatch, expired, attempts_exceeded.
func (m *MetricsService) ObservePinValidation(outcome string) {
	if m == nil {
		return
	}
	m.pinValidations.WithLabelValues(outcome).Inc()
}

// ObserveSlotsResolved records the size of a resolved availability result.
func (m *MetricsService) ObserveSlotsResolved(count int) {
	if m == nil {
		return
	}
	m.slotsResolved.Observe(float64(count))
}
