package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the harness
type Metrics struct {
	registry *prometheus.Registry

	// Iteration metrics
	IterationsTotal   *prometheus.CounterVec
	IterationDuration prometheus.Histogram
	SleepSecondsTotal prometheus.Counter

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Tool metrics
	ToolExecutionsTotal  *prometheus.CounterVec
	CommandsBlockedTotal prometheus.Counter

	// Rate limit metrics
	RateLimitHitsTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Iteration metrics
		IterationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_iterations_total",
				Help: "Total number of harness iterations by outcome",
			},
			[]string{"outcome"},
		),
		IterationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vigil_iteration_duration_seconds",
				Help:    "Duration of agent sessions in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		SleepSecondsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vigil_sleep_seconds_total",
				Help: "Total seconds slept waiting for rate limit resets",
			},
		),

		// Session metrics
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vigil_sessions_active",
				Help: "Number of currently active agent sessions",
			},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vigil_sessions_total",
				Help: "Total number of agent sessions opened",
			},
		),

		// Tool metrics
		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		CommandsBlockedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vigil_commands_blocked_total",
				Help: "Total number of shell commands denied by the execution policy",
			},
		),

		// Rate limit metrics
		RateLimitHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vigil_rate_limit_hits_total",
				Help: "Total number of provider rate limit hits detected",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.IterationsTotal)
	m.registry.MustRegister(m.IterationDuration)
	m.registry.MustRegister(m.SleepSecondsTotal)

	m.registry.MustRegister(m.SessionsActive)
	m.registry.MustRegister(m.SessionsTotal)

	m.registry.MustRegister(m.ToolExecutionsTotal)
	m.registry.MustRegister(m.CommandsBlockedTotal)

	m.registry.MustRegister(m.RateLimitHitsTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
