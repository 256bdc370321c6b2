package entity

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveTitle(t *testing.T) {
	long := "Recommend action movies from 2020 with great reviews and strong box office"

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no user message", "", DefaultTitle},
		{"whitespace only", "   \n", DefaultTitle},
		{"short", "Something like Inception?", "Something like Inception?"},
		{"trimmed", "  hi there  ", "hi there"},
		{"exactly fifty", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"long", long, long[:47] + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.content); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle_LongTitleLength(t *testing.T) {
	got := DeriveTitle("Recommend action movies from 2020 with great reviews and strong box office")
	if len([]rune(got)) != 50 {
		t.Errorf("expected 47 characters plus ellipsis, got %d: %q", len([]rune(got)), got)
	}
}

func TestDeriveTitle_CountsRunes(t *testing.T) {
	content := strings.Repeat("é", 60)
	got := DeriveTitle(content)
	if got != strings.Repeat("é", 47)+"..." {
		t.Errorf("unexpected multibyte truncation: %q", got)
	}
}

func TestNewMessage_Validation(t *testing.T) {
	now := time.Now()
	if _, err := NewMessage("", "conv", RoleUser, "hi", now); err != ErrInvalidMessageID {
		t.Errorf("expected ErrInvalidMessageID, got %v", err)
	}
	if _, err := NewMessage("m1", "", RoleUser, "hi", now); err != ErrInvalidConversationID {
		t.Errorf("expected ErrInvalidConversationID, got %v", err)
	}
	if _, err := NewMessage("m1", "conv", Role("assistant"), "hi", now); err != ErrInvalidRole {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}

	msg, err := NewMessage("m1", "conv", RoleAgent, "hello", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.IsFromAgent() || msg.IsFromUser() {
		t.Error("role helpers disagree with RoleAgent")
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("user"); err != nil || r != RoleUser {
		t.Errorf("ParseRole(user) = %v, %v", r, err)
	}
	if _, err := ParseRole("system"); err == nil {
		t.Error("expected error for unknown role")
	}
}
