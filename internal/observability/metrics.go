package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the agent loop.
//
// The metrics track:
//   - Remote completion requests and their latency
//   - Computer actions executed against the backend
//   - Registered tool executions
//   - Rate-limit retries and the time spent waiting
//   - Errors categorized by component
//
// A nil *Metrics is valid and records nothing.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(reg)
//	metrics.RecordResponse("computer-use-preview", "success", time.Since(start).Seconds())
type Metrics struct {
	// TasksStarted counts StartTask calls.
	TasksStarted prometheus.Counter

	// ResponseCounter counts completion requests.
	// Labels: model, status (success|error|rate_limited)
	ResponseCounter *prometheus.CounterVec

	// ResponseDuration measures completion request latency in seconds.
	// Labels: model
	// Buckets: 0.5s, 1s, 2s, 5s, 10s, 20s, 30s, 60s, 120s
	ResponseDuration *prometheus.HistogramVec

	// ActionCounter counts computer actions.
	// Labels: action, status (success|error)
	ActionCounter *prometheus.CounterVec

	// ActionDuration measures action execution time including the follow-up
	// screenshot.
	// Labels: action
	ActionDuration *prometheus.HistogramVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool
	ToolExecutionDuration *prometheus.HistogramVec

	// RateLimitRetries counts retries caused by rate limiting.
	RateLimitRetries prometheus.Counter

	// RateLimitWait accumulates seconds spent waiting on rate limits.
	RateLimitWait prometheus.Counter

	// ErrorCounter tracks errors by type and component.
	// Labels: component (agent|computer|tool|client), error_type
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg uses
// the Prometheus default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TasksStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cua_tasks_started_total",
			Help: "Total number of tasks started",
		}),

		ResponseCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cua_responses_total",
				Help: "Total number of completion requests by model and status",
			},
			[]string{"model", "status"},
		),

		ResponseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cua_response_duration_seconds",
				Help:    "Duration of completion requests in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model"},
		),

		ActionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cua_actions_total",
				Help: "Total number of computer actions by action and status",
			},
			[]string{"action", "status"},
		),

		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cua_action_duration_seconds",
				Help:    "Duration of computer actions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"action"},
		),

		ToolExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cua_tool_executions_total",
				Help: "Total number of tool executions by tool and status",
			},
			[]string{"tool", "status"},
		),

		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cua_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),

		RateLimitRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "cua_rate_limit_retries_total",
			Help: "Total number of requests retried after rate limiting",
		}),

		RateLimitWait: factory.NewCounter(prometheus.CounterOpts{
			Name: "cua_rate_limit_wait_seconds_total",
			Help: "Total seconds spent waiting on rate limits",
		}),

		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cua_errors_total",
				Help: "Total number of errors by component and type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// TaskStarted records a new task.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksStarted.Inc()
}

// RecordResponse records a completion request.
func (m *Metrics) RecordResponse(model, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ResponseCounter.WithLabelValues(model, status).Inc()
	m.ResponseDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordAction records a computer action.
func (m *Metrics) RecordAction(action, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ActionCounter.WithLabelValues(action, status).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(durationSeconds)
}

// RecordToolExecution records a tool execution.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordRateLimit records one rate-limit retry and its wait.
func (m *Metrics) RecordRateLimit(waitSeconds float64) {
	if m == nil {
		return
	}
	m.RateLimitRetries.Inc()
	m.RateLimitWait.Add(waitSeconds)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}
