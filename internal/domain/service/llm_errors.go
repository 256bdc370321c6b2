package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LLMErrorKind classifies LLM errors for circuit breaking and reporting.
type LLMErrorKind int

const (
	// ErrKindTransient means the error is temporary.
	// Examples: timeout, network reset, 5xx, rate limit.
	ErrKindTransient LLMErrorKind = iota

	// ErrKindAuth means authentication or authorization failed (401/403).
	ErrKindAuth

	// ErrKindBadRequest means the request itself is malformed (400/404/422).
	ErrKindBadRequest

	// ErrKindCancelled means the caller gave up: context.Canceled or
	// context.DeadlineExceeded.
	ErrKindCancelled
)

// String returns a human-readable label for the error kind.
func (k LLMErrorKind) String() string {
	switch k {
	case ErrKindTransient:
		return "transient"
	case ErrKindAuth:
		return "auth"
	case ErrKindBadRequest:
		return "bad_request"
	case ErrKindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CountsAgainstProvider reports whether the failure says something about the
// provider's health. Cancellations and malformed requests do not.
func (k LLMErrorKind) CountsAgainstProvider() bool {
	return k == ErrKindTransient || k == ErrKindAuth
}

// LLMError is a structured error from an LLM operation.
type LLMError struct {
	Kind       LLMErrorKind // Classification of the error
	Message    string       // Human-readable description
	StatusCode int          // HTTP status code if applicable (0 if unknown)
	Provider   string       // Provider name that generated the error
	Cause      error        // Original underlying error
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap enables errors.Is/errors.As on the cause chain.
func (e *LLMError) Unwrap() error {
	return e.Cause
}

// NewHTTPLLMError classifies a non-2xx provider response by status code.
func NewHTTPLLMError(provider string, status int, body string) *LLMError {
	kind := ErrKindTransient
	switch {
	case status == 401 || status == 403:
		kind = ErrKindAuth
	case status == 400 || status == 404 || status == 422:
		kind = ErrKindBadRequest
	}
	return &LLMError{
		Kind:       kind,
		Message:    fmt.Sprintf("API error %d: %s", status, strings.TrimSpace(body)),
		StatusCode: status,
		Provider:   provider,
	}
}

// ClassifyError returns err as an *LLMError, classifying unknown errors.
// Anything that is not recognisably a cancellation is treated as transient.
func ClassifyError(err error, provider string) *LLMError {
	if err == nil {
		return nil
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &LLMError{
			Kind:     ErrKindCancelled,
			Message:  "request cancelled",
			Provider: provider,
			Cause:    err,
		}
	}

	return &LLMError{
		Kind:     ErrKindTransient,
		Message:  "transient error",
		Provider: provider,
		Cause:    err,
	}
}
