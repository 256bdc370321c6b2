package service

import (
	"context"
	"testing"
	"time"

	"github.com/reelchat/reelchat/internal/domain/entity"
)

func transcript() []*entity.Message {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(i int, role entity.Role, content string) *entity.Message {
		return entity.ReconstructMessage("m"+content, "c1", role, content, base.Add(time.Duration(i)*time.Second))
	}
	return []*entity.Message{
		mk(0, entity.RoleUser, "first"),
		mk(1, entity.RoleAgent, "reply"),
		mk(2, entity.RoleUser, "second"),
		mk(3, entity.RoleAgent, "reply2"),
		mk(4, entity.RoleUser, "latest"),
	}
}

func TestBuildHistory(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantFirst string
		wantLen   int
	}{
		{"window", 3, "second", 3},
		{"larger than transcript", 20, "first", 5},
		{"latest user only", 0, "latest", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildHistory(transcript(), tt.limit)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if got[0].Content != tt.wantFirst {
				t.Errorf("first = %q, want %q", got[0].Content, tt.wantFirst)
			}
			if got[len(got)-1].Content != "latest" || got[len(got)-1].Role != "user" {
				t.Errorf("last message = %+v", got[len(got)-1])
			}
		})
	}

	h := BuildHistory(transcript(), 20)
	if h[1].Role != "assistant" {
		t.Errorf("agent role should map to assistant, got %q", h[1].Role)
	}
}

func TestTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "")
	id := TraceIDFromContext(ctx)
	if len(id) != 16 {
		t.Errorf("generated trace id %q, want 16 hex chars", id)
	}
	if got := TraceIDFromContext(WithTraceID(context.Background(), "abc")); got != "abc" {
		t.Errorf("TraceIDFromContext() = %q", got)
	}
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context trace id = %q", got)
	}
}

func TestEnsureTraceIDKeepsExisting(t *testing.T) {
	ctx := WithTraceID(context.Background(), "keep-me")
	got, id := EnsureTraceID(ctx)
	if id != "keep-me" || got != ctx {
		t.Errorf("EnsureTraceID() replaced existing id: %q", id)
	}

	_, fresh := EnsureTraceID(context.Background())
	if fresh == "" {
		t.Error("EnsureTraceID() should generate an id")
	}
}
