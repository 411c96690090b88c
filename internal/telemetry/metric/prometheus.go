package metric

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

const namespace = "notekeep"

// Label values for refresh_total and retries_total.
const (
	RefreshSuccess    = "success"
	RefreshFailure    = "failure"
	RefreshNoToken    = "no_token"
	RetrySucceeded    = "succeeded"
	RetryFailed       = "failed"
	RetryUnauthorized = "unauthorized"
)

// Registry holds the gateway metrics and the prometheus registry they live in.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RefreshTotal    *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	RefreshWaiters  prometheus.Gauge
}

// NewRegistry creates a registry with the gateway metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Outbound API requests by method and HTTP status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Outbound API request latency.",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "refresh_total",
			Help:      "Credential refresh attempts by result.",
		}, []string{"result"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Requests replayed after a 401, by outcome.",
		}, []string{"outcome"}),
		RefreshWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "refresh_waiters",
			Help:      "Requests currently waiting for an in-flight refresh.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RequestsTotal,
		r.RequestDuration,
		r.RefreshTotal,
		r.RetriesTotal,
		r.RefreshWaiters,
	)
	return r
}

// Registerer exposes the underlying registry for additional collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for scraping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordRequest counts one completed request.
func (r *Registry) RecordRequest(method string, code int) {
	r.RequestsTotal.WithLabelValues(method, fmt.Sprint(code)).Inc()
}

// ObserveRequestDuration records request latency in seconds.
func (r *Registry) ObserveRequestDuration(method string, seconds float64) {
	r.RequestDuration.WithLabelValues(method).Observe(seconds)
}

// RecordRefresh counts one refresh outcome.
func (r *Registry) RecordRefresh(result string) {
	r.RefreshTotal.WithLabelValues(result).Inc()
}

// RecordRetry counts one retry outcome.
func (r *Registry) RecordRetry(outcome string) {
	r.RetriesTotal.WithLabelValues(outcome).Inc()
}

// WriteText encodes every metric family in the text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
