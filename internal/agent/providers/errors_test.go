package providers

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Reason
	}{
		{"nil error", nil, ReasonUnknown},
		{"deadline exceeded", errors.New("context deadline exceeded"), ReasonTimeout},
		{"rate limit", errors.New("Rate limit reached for computer-use-preview"), ReasonRateLimit},
		{"retry hint only", errors.New("Please try again in 250ms."), ReasonRateLimit},
		{"429 status", errors.New("HTTP 429"), ReasonRateLimit},
		{"invalid api key", errors.New("invalid api key"), ReasonAuth},
		{"quota exceeded", errors.New("quota exceeded"), ReasonBilling},
		{"content filter", errors.New("content_filter triggered"), ReasonContentFilter},
		{"azure deployment", errors.New("DeploymentNotFound: no such deployment"), ReasonModelUnavailable},
		{"server error", errors.New("internal server error"), ReasonServerError},
		{"unknown", errors.New("something went wrong"), ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestProviderError_RateLimit(t *testing.T) {
	cause := errors.New("upstream")
	err := NewProviderError("azure", "computer-use-preview", cause).
		WithStatus(429).
		WithMessage("Rate limit reached. Please try again in 12s.").
		WithRequestID("req-123")

	if !err.IsRateLimit() {
		t.Errorf("expected rate limit, reason = %v", err.Reason)
	}
	for _, want := range []string{"[rate_limit]", "azure", "status=429", "Please try again in 12s"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error() = %q, missing %q", err.Error(), want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap() did not return cause")
	}
}

func TestProviderError_CodeOverridesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   Reason
	}{
		{"openai throttling", 400, "rate_limit_exceeded", ReasonRateLimit},
		{"azure throttling", 0, "429", ReasonRateLimit},
		{"unknown code keeps status", 401, "unrecognised", ReasonAuth},
		{"quota", 429, "insufficient_quota", ReasonBilling},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError("openai", "m", nil).WithStatus(tt.status).WithCode(tt.code)
			if err.Reason != tt.want {
				t.Errorf("reason = %v, want %v", err.Reason, tt.want)
			}
		})
	}
}

func TestProviderError_StatusKeepsTextReason(t *testing.T) {
	err := NewProviderError("openai", "m", errors.New("request timeout")).WithStatus(200)
	if err.Reason != ReasonTimeout {
		t.Errorf("unclassified status must keep the text reason, got %v", err.Reason)
	}
}

func TestGetProviderError(t *testing.T) {
	providerErr := NewProviderError("openai", "m", errors.New("test"))
	wrapped := fmt.Errorf("turn failed: %w", providerErr)

	got, ok := GetProviderError(wrapped)
	if !ok || got != providerErr {
		t.Error("GetProviderError should extract a wrapped ProviderError")
	}
	if _, ok := GetProviderError(errors.New("regular")); ok {
		t.Error("GetProviderError should return false for regular error")
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status   int
		expected Reason
	}{
		{401, ReasonAuth},
		{403, ReasonAuth},
		{402, ReasonBilling},
		{429, ReasonRateLimit},
		{400, ReasonInvalidRequest},
		{404, ReasonModelUnavailable},
		{408, ReasonTimeout},
		{500, ReasonServerError},
		{200, ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := classifyStatusCode(tt.status); got != tt.expected {
				t.Errorf("classifyStatusCode(%d) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}
