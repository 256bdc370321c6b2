// Package monitoring exposes the service's Prometheus metrics.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelchat"

// Agent run outcomes.
const (
	AgentOutcomeOK       = "ok"
	AgentOutcomeFallback = "fallback"
)

// Metrics 指标收集器. Every collector lives on a private registry so that
// tests and multiple app instances never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec

	CatalogFailuresTotal *prometheus.CounterVec

	AgentRunsTotal *prometheus.CounterVec
	AgentSteps     prometheus.Histogram

	BreakerState *prometheus.GaugeVec

	StartTime time.Time
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg, StartTime: time.Now()}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	m.ToolCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of agent tool calls",
		},
		[]string{"tool", "result"},
	)

	m.ToolCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of agent tool calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	m.CatalogFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_failures_total",
			Help:      "Total number of failed movie catalog lookups",
		},
		[]string{"op"},
	)

	m.AgentRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_runs_total",
			Help:      "Total number of agent runs by outcome",
		},
		[]string{"outcome"},
	)

	m.AgentSteps = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_steps",
			Help:      "LLM round trips per successful agent run",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	m.BreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "llm_breaker_state",
			Help:      "Circuit breaker state per LLM provider (1 marks the current state)",
		},
		[]string{"provider", "state"},
	)

	return m
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordToolCall records an agent tool call.
func (m *Metrics) RecordToolCall(tool, outcome string, duration time.Duration) {
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordCatalogFailure counts a failed catalog lookup.
func (m *Metrics) RecordCatalogFailure(op string) {
	m.CatalogFailuresTotal.WithLabelValues(op).Inc()
}

// RecordAgentRun records whether a turn got a real answer or the apology.
func (m *Metrics) RecordAgentRun(outcome string, steps int) {
	m.AgentRunsTotal.WithLabelValues(outcome).Inc()
	if outcome == AgentOutcomeOK && steps > 0 {
		m.AgentSteps.Observe(float64(steps))
	}
}

// RecordBreakerState tracks the current circuit state per provider.
func (m *Metrics) RecordBreakerState(provider, state string) {
	for _, s := range []string{"closed", "open", "half_open"} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.BreakerState.WithLabelValues(provider, s).Set(v)
	}
}

// Registry exposes the private registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
