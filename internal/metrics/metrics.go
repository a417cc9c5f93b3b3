// ABOUTME: Prometheus collectors for RPC call counts, call latency and lock waits
// ABOUTME: Handler serves the private registry in the Prometheus text format

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "viewgate"

// Metrics records pipeline and lock activity.
type Metrics struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lockWait prometheus.Histogram
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "RPC calls by view, method and response status.",
		}, []string{"view", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "RPC call latency by view.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_lock_wait_seconds",
			Help:      "Time spent waiting for a per-(session, view) lock.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
		}),
	}
	m.registry.MustRegister(
		m.calls,
		m.duration,
		m.lockWait,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCall records one finished call.
func (m *Metrics) ObserveCall(view, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(view, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(view).Observe(elapsed.Seconds())
}

// ObserveLockWait records how long a call waited for its view lock.
func (m *Metrics) ObserveLockWait(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(elapsed.Seconds())
}

// RegisterLockGauge exposes the number of locked (session, view) pairs.
func (m *Metrics) RegisterLockGauge(keys func() int) {
	if m == nil || keys == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "view_locks_active",
		Help:      "Number of (session, view) pairs with a lock holder.",
	}, func() float64 { return float64(keys()) }))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
