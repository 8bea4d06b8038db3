package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the agent's operational signals: provider request
// volume and latency, retry pressure, breaker state, history
// compactions, and safety verdicts.
type Metrics struct {
	// LLMRequestCounter counts provider requests.
	// Labels: provider, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMRequestDuration measures provider call latency in seconds.
	// Labels: provider
	LLMRequestDuration *prometheus.HistogramVec

	// RetryCounter counts retry sleeps by operation.
	// Labels: operation
	RetryCounter *prometheus.CounterVec

	// CircuitState reports breaker state (0 closed, 1 half-open, 2 open).
	// Labels: name
	CircuitState *prometheus.GaugeVec

	// CompactionCounter counts history compactions.
	// Labels: outcome (summarized|truncated)
	CompactionCounter *prometheus.CounterVec

	// RiskVerdictCounter counts safety classifications.
	// Labels: kind (command|file_write|file_delete|package), level
	RiskVerdictCounter *prometheus.CounterVec

	// ToolExecutionCounter counts executed tool actions.
	// Labels: tool, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given
// registerer. Pass prometheus.DefaultRegisterer at startup; tests use a
// fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_llm_requests_total",
				Help: "Total number of LLM requests by provider and status",
			},
			[]string{"provider", "status"},
		),

		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),

		RetryCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_retries_total",
				Help: "Total number of retries by operation",
			},
			[]string{"operation"},
		),

		CircuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "warden_circuit_state",
				Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
			[]string{"name"},
		),

		CompactionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_compactions_total",
				Help: "Total number of history compactions by outcome",
			},
			[]string{"outcome"},
		),

		RiskVerdictCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_risk_verdicts_total",
				Help: "Total number of safety classifications by kind and level",
			},
			[]string{"kind", "level"},
		),

		ToolExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_tool_executions_total",
				Help: "Total number of executed tool actions by tool and status",
			},
			[]string{"tool", "status"},
		),
	}
}

// ObserveCircuitState records a breaker state change.
func (m *Metrics) ObserveCircuitState(name, state string) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.CircuitState.WithLabelValues(name).Set(v)
}
