package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseInstructions(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantMode string
		wantBody string
		wantErr  bool
	}{
		{"plain", "Be terse.\n", ModeReplace, "Be terse.", false},
		{"append", "---\nmode: append\n---\nAnswer in French.", ModeAppend, "Answer in French.", false},
		{"empty frontmatter", "---\n---\nbody", ModeReplace, "body", false},
		{"unclosed", "---\nmode: append\nbody", "", "", true},
		{"bad mode", "---\nmode: shuffle\n---\nbody", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseInstructions("x.md", tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseInstructions() error = %v", err)
			}
			if f.Mode != tt.wantMode || f.Content != tt.wantBody {
				t.Errorf("got mode=%q body=%q", f.Mode, f.Content)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	appendFile := &InstructionsFile{Mode: ModeAppend, Content: "extra"}
	if got := appendFile.Compose("base"); got != "base\n\nextra" {
		t.Errorf("append Compose() = %q", got)
	}
	replaceFile := &InstructionsFile{Mode: ModeReplace, Content: "only"}
	if got := replaceFile.Compose("base"); got != "only" {
		t.Errorf("replace Compose() = %q", got)
	}
	if got := (&InstructionsFile{Mode: ModeReplace}).Compose("base"); got != "base" {
		t.Errorf("empty file should keep defaults, got %q", got)
	}
}

func TestEngineDefaults(t *testing.T) {
	e := NewEngine("", zap.NewNop())
	if e.Instructions() != DefaultInstructions {
		t.Error("engine without file should serve the default persona")
	}
	if !strings.Contains(DefaultInstructions, "TMDB") {
		t.Error("default persona should mention TMDB")
	}

	missing := NewEngine(filepath.Join(t.TempDir(), "nope.md"), zap.NewNop())
	if missing.Instructions() != DefaultInstructions {
		t.Error("missing file should fall back to defaults")
	}
}

func TestEngineReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.md")
	if err := os.WriteFile(path, []byte("Recommend only horror."), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(path, zap.NewNop())
	if e.Instructions() != "Recommend only horror." {
		t.Fatalf("Instructions() = %q", e.Instructions())
	}

	if err := os.WriteFile(path, []byte("---\nmode: nope\n---\nx"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if e.Instructions() != "Recommend only horror." {
		t.Error("failed reload must keep previous instructions")
	}
}

func TestEngineHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.md")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(path, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("---\nmode: append\n---\nv2"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.HasSuffix(e.Instructions(), "\n\nv2") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("instructions not reloaded: %q", e.Instructions())
}
