package agent

import (
	"context"
	"time"

	"github.com/ryogok/computer-use-model/internal/observability"
)

// Rate limit defaults.
const (
	// DefaultMaxAttempts bounds the completion requests issued per turn.
	DefaultMaxAttempts = 10

	// DefaultRetryDelay is used when a rate limit error names no wait time.
	DefaultRetryDelay = 10 * time.Second
)

// RetryConfig controls how rate limited requests are re-issued.
type RetryConfig struct {
	// MaxAttempts is the total number of requests per turn, including the first.
	MaxAttempts int

	// DefaultDelay is the wait used when the error does not say how long to wait.
	DefaultDelay time.Duration
}

// DefaultRetryConfig returns the baseline retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxAttempts,
		DefaultDelay: DefaultRetryDelay,
	}
}

func mergeRetryConfig(base, override RetryConfig) RetryConfig {
	merged := base
	if override.MaxAttempts > 0 {
		merged.MaxAttempts = override.MaxAttempts
	}
	if override.DefaultDelay > 0 {
		merged.DefaultDelay = override.DefaultDelay
	}
	return merged
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger used for action and retry diagnostics.
func WithLogger(logger *observability.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records request, action and tool metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Agent) { a.metrics = metrics }
}

// WithTracer records a span per request, action and tool execution.
func WithTracer(tracer *observability.Tracer) Option {
	return func(a *Agent) { a.tracer = tracer }
}

// WithRetryConfig overrides the rate limit policy. Zero fields keep the defaults.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(a *Agent) { a.retry = mergeRetryConfig(a.retry, cfg) }
}

// WithSleep replaces the wait between rate limited attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Agent) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

// WithReasoningSummary sets the reasoning summary verbosity requested on
// continuation turns. An empty string disables the summary.
func WithReasoningSummary(summary string) Option {
	return func(a *Agent) { a.reasoningSummary = summary }
}
