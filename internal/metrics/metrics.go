package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reservation outcomes recorded by the ledger.
const (
	OutcomeCreated          = "created"
	OutcomeIdempotent       = "idempotent"
	OutcomeCapacityExceeded = "capacity_exceeded"
	OutcomeError            = "error"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver so callers never need to branch on whether metrics
// are enabled.
type Metrics struct {
	reserveOutcomes *prometheus.CounterVec
	holdTransitions *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	sweepExpired    prometheus.Counter
	sweepBatchSize  prometheus.Gauge
	sweepFailures   prometheus.Counter
}

// New registers the service collectors on the default registry.
func New(serviceName string) *Metrics {
	return NewWith(prometheus.DefaultRegisterer, serviceName)
}

// NewWith registers the service collectors on reg.
func NewWith(reg prometheus.Registerer, serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}
	factory := promauto.With(reg)
	return &Metrics{
		reserveOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "seathold_reserve_total",
			Help:        "Reserve attempts by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		holdTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "seathold_hold_transitions_total",
			Help:        "Hold state transitions by resulting status.",
			ConstLabels: labels,
		}, []string{"status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "seathold_http_request_duration_seconds",
			Help:        "HTTP request latency by route.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		sweepExpired: factory.NewCounter(prometheus.CounterOpts{
			Name:        "seathold_sweep_expired_total",
			Help:        "Holds marked expired by the sweep.",
			ConstLabels: labels,
		}),
		sweepBatchSize: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "seathold_sweep_last_batch",
			Help:        "Holds expired in the most recent sweep pass.",
			ConstLabels: labels,
		}),
		sweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name:        "seathold_sweep_failures_total",
			Help:        "Sweep passes that ended with an error.",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) ObserveReserve(outcome string) {
	if m == nil {
		return
	}
	m.reserveOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.holdTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSweep(expired int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.sweepFailures.Inc()
		return
	}
	m.sweepExpired.Add(float64(expired))
	m.sweepBatchSize.Set(float64(expired))
}
