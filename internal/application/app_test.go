package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/infrastructure/config"
)

// fakeTMDB serves the trending and genre endpoints.
func fakeTMDB(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/genre/movie/list":
			w.Write([]byte(`{"genres":[{"id":878,"name":"Science Fiction"}]}`))
		case strings.HasPrefix(r.URL.Path, "/trending/movie/"):
			w.Write([]byte(`{"results":[{"id":438631,"title":"Dune","release_date":"2021-09-15","vote_average":7.8,"genre_ids":[878]}],"total_results":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

// fakeLLM asks for trendingMovies once, then answers with the tool output.
func fakeLLM(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		last := req.Messages[len(req.Messages)-1]

		w.Header().Set("Content-Type", "application/json")
		if last.Role == "tool" {
			reply := "Nothing found"
			if strings.Contains(last.Content, "Dune") {
				reply = "🎬 Dune (2021) is trending this week."
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"model":   "gpt-4o-mini",
				"choices": []interface{}{map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": reply}}},
			})
			return
		}
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"trendingMovies","arguments":"{\"timeWindow\":\"week\"}"}}]}}]}`))
	}))
}

func testConfig(llmURL, tmdbURL string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 3000, Mode: "test"},
		Database: config.DatabaseConfig{Type: "memory"},
		Chat:     config.ChatConfig{Mode: config.ChatModeMulti, FallbackReply: "fallback"},
		Agent: config.AgentConfig{
			Model:        "gpt-4o-mini",
			MaxSteps:     3,
			HistoryLimit: 10,
			Timeout:      5 * time.Second,
			ToolTimeout:  time.Second,
		},
		LLM: config.LLMConfig{
			Providers:        []config.LLMProviderConfig{{Name: "openai", Type: "openai", BaseURL: llmURL, APIKey: "sk-test"}},
			BreakerThreshold: 5,
			BreakerCooldown:  time.Second,
		},
		TMDB: config.TMDBConfig{BaseURL: tmdbURL, AccessToken: "token", Timeout: time.Second},
	}
}

func TestAppEndToEnd(t *testing.T) {
	var calls int32
	llmSrv := fakeLLM(t, &calls)
	defer llmSrv.Close()
	tmdbSrv := fakeTMDB(t)
	defer tmdbSrv.Close()

	app, err := NewAppCLI(testConfig(llmSrv.URL, tmdbSrv.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppCLI() error = %v", err)
	}
	if app.Addr() != "" {
		t.Errorf("CLI app should not have a server, got %q", app.Addr())
	}

	ctx := context.Background()
	conv, err := app.ConversationUseCase().Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	msgs, err := app.ProcessMessageUseCase().Execute(ctx, usecase.SendMessageInput{
		Message:        "What's trending?",
		ConversationID: conv.ID,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content() != "🎬 Dune (2021) is trending this week." {
		t.Fatalf("transcript = %v", msgs)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("LLM called %d times, want 2", got)
	}
}

func TestAppFallsBackWhenLLMDown(t *testing.T) {
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer llmSrv.Close()
	tmdbSrv := fakeTMDB(t)
	defer tmdbSrv.Close()

	app, err := NewApp(testConfig(llmSrv.URL, tmdbSrv.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	if app.Addr() != "127.0.0.1:3000" {
		t.Errorf("Addr() = %q", app.Addr())
	}

	ctx := context.Background()
	conv, _ := app.ConversationUseCase().Create(ctx)
	msgs, err := app.ProcessMessageUseCase().Execute(ctx, usecase.SendMessageInput{Message: "hi", ConversationID: conv.ID})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if msgs[len(msgs)-1].Content() != "fallback" {
		t.Errorf("agent reply = %q, want fallback", msgs[len(msgs)-1].Content())
	}
}

func TestNewAppRejectsUnknownProviderType(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1", "http://127.0.0.1:1")
	cfg.LLM.Providers[0].Type = "carrier-pigeon"

	if _, err := NewAppCLI(cfg, zap.NewNop()); err == nil || !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Fatalf("NewAppCLI() error = %v", err)
	}
}
