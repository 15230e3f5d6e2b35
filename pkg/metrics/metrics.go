// Package metrics exposes Prometheus metrics for the fault simulator, the
// resilience pipelines, the health probes and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/fruitstand/fruitstand/pkg/faults"
	"github.com/fruitstand/fruitstand/pkg/health"
	"github.com/fruitstand/fruitstand/pkg/resilience"
)

const namespace = "fruitstand"

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	simulatedFaults  *prometheus.CounterVec
	resilienceEvents *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
	probeUp          *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New returns Metrics registered on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		simulatedFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulated_faults_total",
			Help:      "Number of faults produced by the fault simulator.",
		}, []string{"kind"}),
		resilienceEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resilience_events_total",
			Help:      "Number of retries, timeouts, rejections, fallbacks and breaker transitions.",
		}, []string{"pipeline", "event"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"pipeline"}),
		probeUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_probe_up",
			Help:      "1 when the last run of the probe reported UP.",
		}, []string{"probe"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FaultHook counts simulated faults. Pass it to faults.WithTriggerHook.
func (m *Metrics) FaultHook() func(faults.Kind) {
	return func(k faults.Kind) {
		m.simulatedFaults.WithLabelValues(string(k)).Inc()
	}
}

// ResilienceHooks counts pipeline events and tracks breaker state.
func (m *Metrics) ResilienceHooks() resilience.Hooks {
	return resilience.Hooks{
		OnEvent: func(name string, ev resilience.Event) {
			m.resilienceEvents.WithLabelValues(name, string(ev)).Inc()
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			m.SetBreakerState(name, to)
		},
	}
}

// SetBreakerState records the breaker state of a pipeline.
func (m *Metrics) SetBreakerState(pipeline string, s gobreaker.State) {
	m.breakerState.WithLabelValues(pipeline).Set(float64(s))
}

// ObserveProbe records the outcome of a health probe.
func (m *Metrics) ObserveProbe(probe string, s health.Status) {
	v := 0.0
	if s.Up() {
		v = 1
	}
	m.probeUp.WithLabelValues(probe).Set(v)
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
