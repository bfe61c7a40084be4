// Package metrics exposes Prometheus collectors for the reservation engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the process registry and the engine's counters. It satisfies
// both the app recorder and the transport request observer.
type Collector struct {
	registry *prometheus.Registry

	reserveOutcomes    *prometheus.CounterVec
	availabilityChecks *prometheus.CounterVec
	invariantClamps    prometheus.Counter
	requestDuration    *prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		reserveOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reserve_outcomes_total",
				Help: "Reservation attempts by outcome",
			},
			[]string{"outcome"},
		),
		availabilityChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availability_checks_total",
				Help: "Availability checks by result",
			},
			[]string{"result"},
		),
		invariantClamps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "availability_invariant_clamps_total",
				Help: "Times a reserved sum exceeded an item's total stock",
			},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}

	c.registry.MustRegister(
		c.reserveOutcomes,
		c.availabilityChecks,
		c.invariantClamps,
		c.requestDuration,
	)
	return c
}

func (c *Collector) ReserveOutcome(outcome string) {
	c.reserveOutcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) AvailabilityCheck(available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	c.availabilityChecks.WithLabelValues(result).Inc()
}

func (c *Collector) InvariantClamp() {
	c.invariantClamps.Inc()
}

func (c *Collector) ObserveRequest(method string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
