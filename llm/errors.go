package llm

import (
	"fmt"
	"strings"
)

// ProviderError is the single error kind surfaced for transport, auth,
// rate-limit, and decode failures. It names the provider and wraps the
// underlying cause.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether an error is safe to retry. Unknown error types
// default to non-retryable; only classified transient failures retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	pe, ok := err.(*ProviderError)
	if !ok {
		return false
	}
	return pe.Retryable
}

// wrapProviderErr classifies a vendor SDK error by message content, the same
// way the gollm transport classifies errors it cannot type-switch on. Rate
// limits, timeouts, and server errors are retryable; everything else is not.
func wrapProviderErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	status := 0
	retryable := false
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "api key not valid"):
		status = 401
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden") || strings.Contains(lower, "permission"):
		status = 403
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		status = 404
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota"):
		status = 429
		retryable = true
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens") || strings.Contains(lower, "prompt is too long"):
		status = 413
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		status = 408
		retryable = true
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server") || strings.Contains(lower, "overloaded"):
		status = 500
		retryable = true
	}

	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Message:    "chat completion failed",
		Retryable:  retryable,
		Cause:      err,
	}
}
