// Package metrics defines the Prometheus collectors of the booking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons used as the `reason` label.
const (
	ReasonValidation    = "validation"
	ReasonHorizon       = "horizon"
	ReasonSlotFull      = "slot_full"
	ReasonDayFull       = "day_full"
	ReasonAdvanceNotice = "advance_notice"
	ReasonStoreError    = "store_error"
)

// Metrics holds all collectors.
type Metrics struct {
	BookingsAdmitted  prometheus.Counter
	BookingsRejected  *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BookingsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_admitted_total",
			Help:      "Bookings created in pending status.",
		}),
		BookingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_rejected_total",
			Help:      "Booking submissions refused, by reason.",
		}, []string{"reason"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_transitions_total",
			Help:      "Successful booking status transitions, by target status.",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.BookingsAdmitted, m.BookingsRejected, m.StatusTransitions, m.RequestDuration)
	}
	return m
}

// Discard returns unregistered collectors, for tests.
func Discard() *Metrics {
	return New("test", nil)
}
