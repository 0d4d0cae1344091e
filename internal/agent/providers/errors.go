package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Reason categorizes why a request to the remote service failed.
type Reason string

const (
	ReasonRateLimit        Reason = "rate_limit"
	ReasonAuth             Reason = "auth"
	ReasonBilling          Reason = "billing"
	ReasonTimeout          Reason = "timeout"
	ReasonServerError      Reason = "server_error"
	ReasonInvalidRequest   Reason = "invalid_request"
	ReasonModelUnavailable Reason = "model_unavailable"
	ReasonContentFilter    Reason = "content_filter"
	ReasonUnknown          Reason = "unknown"
)

// ProviderError is a classified failure reported by the remote completion
// service. The agent re-issues requests whose error reports IsRateLimit.
type ProviderError struct {
	Reason Reason

	// Provider is the endpoint name ("openai" or "azure").
	Provider string
	Model    string

	// Status is the HTTP status code, zero when the request never got a response.
	Status int

	// Code is the service's error code, e.g. "rate_limit_exceeded".
	Code string

	// Message is the service's message. Rate limit messages carry the wait,
	// e.g. "Please try again in 7s", and are kept verbatim.
	Message string

	// RequestID is the x-request-id header of the failed response.
	RequestID string

	Cause error
}

// Error renders the reason, endpoint, status, code and message.
func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Reason)
	if e.Provider != "" {
		b.WriteString(" " + e.Provider)
	}
	if e.Model != "" {
		b.WriteString(" model=" + e.Model)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Code != "" {
		b.WriteString(" code=" + e.Code)
	}
	switch {
	case e.Message != "":
		b.WriteString(" " + e.Message)
	case e.Cause != nil:
		b.WriteString(" " + e.Cause.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRateLimit reports whether the service rejected the request for exceeding
// its rate limit.
func (e *ProviderError) IsRateLimit() bool {
	return e.Reason == ReasonRateLimit
}

// NewProviderError wraps cause and classifies it from its text. Status and
// code, when known, refine the classification.
func NewProviderError(provider, model string, cause error) *ProviderError {
	err := &ProviderError{
		Provider: provider,
		Model:    model,
		Cause:    cause,
		Reason:   ReasonUnknown,
	}
	if cause != nil {
		err.Message = cause.Error()
		err.Reason = ClassifyError(cause)
	}
	return err
}

// WithStatus records the HTTP status and reclassifies from it.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	if reason := classifyStatusCode(status); reason != ReasonUnknown {
		e.Reason = reason
	}
	return e
}

// WithCode records the service error code. Known codes take precedence over
// the status.
func (e *ProviderError) WithCode(code string) *ProviderError {
	e.Code = code
	if reason := classifyErrorCode(code); reason != ReasonUnknown {
		e.Reason = reason
	}
	return e
}

func (e *ProviderError) WithRequestID(id string) *ProviderError {
	e.RequestID = id
	return e
}

func (e *ProviderError) WithMessage(msg string) *ProviderError {
	e.Message = msg
	return e
}

// messagePatterns is checked in order; the first reason with a matching
// substring wins.
var messagePatterns = []struct {
	reason   Reason
	patterns []string
}{
	{ReasonTimeout, []string{"timeout", "deadline exceeded", "etimedout"}},
	{ReasonRateLimit, []string{"rate limit", "rate_limit", "ratelimit", "too many requests", "please try again in", "429"}},
	{ReasonAuth, []string{"unauthorized", "invalid api key", "invalid_api_key", "authentication", "401", "403"}},
	{ReasonBilling, []string{"billing", "payment", "quota", "insufficient", "402"}},
	{ReasonContentFilter, []string{"content_filter", "content policy", "safety", "blocked"}},
	{ReasonModelUnavailable, []string{"model not found", "model_not_found", "deploymentnotfound", "does not exist", "unavailable"}},
	{ReasonServerError, []string{"internal server", "server error", "500", "502", "503", "504"}},
}

// ClassifyError derives a Reason from the error text.
func ClassifyError(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	text := strings.ToLower(err.Error())
	for _, group := range messagePatterns {
		for _, p := range group.patterns {
			if strings.Contains(text, p) {
				return group.reason
			}
		}
	}
	return ReasonUnknown
}

func classifyStatusCode(status int) Reason {
	switch {
	case status == http.StatusTooManyRequests:
		return ReasonRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ReasonAuth
	case status == http.StatusPaymentRequired:
		return ReasonBilling
	case status == http.StatusBadRequest:
		return ReasonInvalidRequest
	case status == http.StatusNotFound:
		return ReasonModelUnavailable
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ReasonTimeout
	case status >= 500:
		return ReasonServerError
	default:
		return ReasonUnknown
	}
}

// classifyErrorCode covers the codes used by OpenAI and Azure OpenAI. Azure
// reports throttling as code "429".
func classifyErrorCode(code string) Reason {
	switch strings.ToLower(code) {
	case "rate_limit_exceeded", "rate_limit_error", "ratelimitreached", "429":
		return ReasonRateLimit
	case "invalid_api_key", "authentication_error", "401":
		return ReasonAuth
	case "insufficient_quota", "billing_error":
		return ReasonBilling
	case "model_not_found", "deploymentnotfound":
		return ReasonModelUnavailable
	case "content_filter", "content_policy_violation":
		return ReasonContentFilter
	case "server_error", "internal_error":
		return ReasonServerError
	case "invalid_request_error":
		return ReasonInvalidRequest
	default:
		return ReasonUnknown
	}
}

// GetProviderError extracts a ProviderError from an error chain.
func GetProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}
