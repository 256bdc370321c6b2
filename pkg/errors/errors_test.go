package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", NewInvalidInputError("Message is required"), http.StatusBadRequest},
		{"not found", NewNotFoundError("Conversation not found"), http.StatusNotFound},
		{"storage", NewStorageUnavailableError("db down", errors.New("dial tcp")), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("load: %w", NewNotFoundError("x")), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := NewStorageUnavailableError("failed to list", errors.New("password authentication failed"))
	if got := PublicMessage(err, "Failed to fetch conversations"); got != "Failed to fetch conversations" {
		t.Errorf("PublicMessage() = %q", got)
	}

	nf := NewNotFoundError("Conversation not found")
	if got := PublicMessage(nf, "fallback"); got != "Conversation not found" {
		t.Errorf("PublicMessage() = %q", got)
	}
}

func TestWithTraceKeepsCode(t *testing.T) {
	base := NewUpstreamUnavailableError("catalog lookup failed", errors.New("503"))
	traced := base.WithTrace("abc123")

	if !IsUpstreamUnavailable(traced) {
		t.Fatal("expected upstream unavailable code to survive WithTrace")
	}
	if traced.TraceID != "abc123" {
		t.Errorf("TraceID = %q", traced.TraceID)
	}
	if base.TraceID != "" {
		t.Error("WithTrace must not mutate the receiver")
	}
}
