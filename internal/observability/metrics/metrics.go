package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulingMetrics exposes counters/histograms for the scheduling client.
type SchedulingMetrics struct {
	backendTotal   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	staleTotal     *prometheus.CounterVec
	bookingTotal   *prometheus.CounterVec
	lifecycleTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		backendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total scheduling backend requests",
		}, []string{"operation", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "barbershop",
			Subsystem: "backend",
			Name:      "request_seconds",
			Help:      "Latency of scheduling backend requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		staleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "scheduling",
			Name:      "stale_responses_total",
			Help:      "Responses dropped because a newer request superseded them",
		}, []string{"component"}),
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		lifecycleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "appointments",
			Name:      "lifecycle_operations_total",
			Help:      "Complete/cancel operations by outcome",
		}, []string{"operation", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.backendTotal, m.backendLatency, m.staleTotal, m.bookingTotal, m.lifecycleTotal)
	return m
}

func (m *SchedulingMetrics) ObserveBackend(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendTotal.WithLabelValues(operation, status).Inc()
	m.backendLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *SchedulingMetrics) ObserveStale(component string) {
	if m == nil {
		return
	}
	m.staleTotal.WithLabelValues(component).Inc()
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveLifecycle(operation, outcome string) {
	if m == nil {
		return
	}
	m.lifecycleTotal.WithLabelValues(operation, outcome).Inc()
}
