package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	SchedulingTotal *prometheus.CounterVec
	LockWaitSeconds prometheus.Histogram
	LockHeldSeconds prometheus.Histogram
}

// NewCollector registers the metrics on reg. Pass nil to use a fresh
// registry, which keeps tests independent.
func NewCollector(serviceName string, reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		SchedulingTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Scheduling operations by operation and outcome.",
		}, []string{"operation", "outcome"}),

		LockWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "doctor_lock_wait_seconds",
			Help:      "Time spent waiting to acquire the per-doctor lock.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5},
		}),

		LockHeldSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "doctor_lock_held_seconds",
			Help:      "Time spent inside the per-doctor critical section.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
	}
}

func (c *Collector) ObserveRequest(method, route string, status int, took time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (c *Collector) IncInFlight() {
	if c == nil {
		return
	}
	c.InFlightGauge.Inc()
}

func (c *Collector) DecInFlight() {
	if c == nil {
		return
	}
	c.InFlightGauge.Dec()
}

// ObserveScheduling counts one scheduling operation. outcome is "ok" or an
// error code such as "double_booking".
func (c *Collector) ObserveScheduling(operation, outcome string) {
	if c == nil {
		return
	}
	c.SchedulingTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveLockWait records how long a writer waited for a doctor lock,
// whether or not it got it.
func (c *Collector) ObserveLockWait(took time.Duration) {
	if c == nil {
		return
	}
	c.LockWaitSeconds.Observe(took.Seconds())
}

func (c *Collector) ObserveLockHeld(took time.Duration) {
	if c == nil {
		return
	}
	c.LockHeldSeconds.Observe(took.Seconds())
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
