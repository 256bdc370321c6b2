package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppName is the canonical application name
const AppName = "reelchat"

// Chat modes
const (
	ChatModeMulti  = "multi"  // every message names its conversation
	ChatModeSingle = "single" // one implicit conversation, created on first message
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Chat     ChatConfig     `mapstructure:"chat" yaml:"chat"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	TMDB     TMDBConfig     `mapstructure:"tmdb" yaml:"tmdb"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Mode            string        `mapstructure:"mode" yaml:"mode"` // debug, release
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type   string `mapstructure:"type" yaml:"type"` // sqlite, postgres, memory
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
	LogSQL bool   `mapstructure:"log_sql" yaml:"log_sql"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"` // stdout, stderr, or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// ChatConfig controls the request orchestrator.
type ChatConfig struct {
	Mode          string `mapstructure:"mode" yaml:"mode"`
	FallbackReply string `mapstructure:"fallback_reply" yaml:"fallback_reply"`
}

// AgentConfig Agent 配置
type AgentConfig struct {
	Model            string        `mapstructure:"model" yaml:"model"`
	Temperature      float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxSteps         int           `mapstructure:"max_steps" yaml:"max_steps"`
	HistoryLimit     int           `mapstructure:"history_limit" yaml:"history_limit"` // 0 = latest user message only
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ToolTimeout      time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
	InstructionsFile string        `mapstructure:"instructions_file" yaml:"instructions_file"`
}

// LLMConfig lists the providers the LLM router tries in priority order.
// When Providers is empty a single OpenAI-compatible provider is built from
// APIKey and BaseURL.
type LLMConfig struct {
	APIKey           string              `mapstructure:"api_key" yaml:"api_key"`
	BaseURL          string              `mapstructure:"base_url" yaml:"base_url"`
	Providers        []LLMProviderConfig `mapstructure:"providers" yaml:"providers"`
	BreakerThreshold int                 `mapstructure:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration       `mapstructure:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// LLMProviderConfig configures a single LLM provider
type LLMProviderConfig struct {
	Name     string   `mapstructure:"name" yaml:"name"`
	Type     string   `mapstructure:"type" yaml:"type"`
	BaseURL  string   `mapstructure:"base_url" yaml:"base_url"`
	APIKey   string   `mapstructure:"api_key" yaml:"api_key"`
	Models   []string `mapstructure:"models" yaml:"models"`
	Priority int      `mapstructure:"priority" yaml:"priority"`
}

// TMDBConfig configures the movie catalog client.
type TMDBConfig struct {
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	AccessToken   string        `mapstructure:"access_token" yaml:"access_token"`
	Language      string        `mapstructure:"language" yaml:"language"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	GenreCacheTTL time.Duration `mapstructure:"genre_cache_ttl" yaml:"genre_cache_ttl"` // 0 = cache for process lifetime
}

// Load 加载配置 from ./config/config.yaml or ./config.yaml plus environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from an explicit file path. An empty path
// searches the default locations; a missing default file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		for _, dir := range []string{"./config", "."} {
			candidate := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				if err := v.ReadInConfig(); err != nil {
					return nil, fmt.Errorf("failed to read config %s: %w", candidate, err)
				}
				break // 只取第一个找到的本地配置
			}
		}
	}

	// 环境变量覆盖: REELCHAT_SERVER_PORT → server.port
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variable names used by the catalog and OpenAI tooling.
	_ = v.BindEnv("tmdb.access_token", "REELCHAT_TMDB_ACCESS_TOKEN", "TMDB_ACCESS_TOKEN")
	_ = v.BindEnv("llm.api_key", "REELCHAT_LLM_API_KEY", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyProviderFallback()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "reelchat.db")
	v.SetDefault("database.log_sql", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("chat.mode", ChatModeMulti)
	v.SetDefault("chat.fallback_reply", "Sorry, I could not fetch a response right now.")

	v.SetDefault("agent.model", "gpt-4o-mini")
	v.SetDefault("agent.temperature", 0.7)
	v.SetDefault("agent.max_tokens", 1024)
	v.SetDefault("agent.max_steps", 5)
	v.SetDefault("agent.history_limit", 20)
	v.SetDefault("agent.timeout", "2m")
	v.SetDefault("agent.tool_timeout", "15s")
	v.SetDefault("agent.instructions_file", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.breaker_threshold", 5)
	v.SetDefault("llm.breaker_cooldown", "30s")

	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.access_token", "")
	v.SetDefault("tmdb.language", "en-US")
	v.SetDefault("tmdb.timeout", "10s")
	v.SetDefault("tmdb.genre_cache_ttl", "24h")
}

func (c *Config) applyProviderFallback() {
	if len(c.LLM.Providers) > 0 {
		return
	}
	c.LLM.Providers = []LLMProviderConfig{{
		Name:    "openai",
		Type:    "openai",
		BaseURL: c.LLM.BaseURL,
		APIKey:  c.LLM.APIKey,
	}}
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Chat.Mode {
	case ChatModeMulti, ChatModeSingle:
	default:
		errs = append(errs, fmt.Errorf("chat.mode must be %q or %q, got %q", ChatModeMulti, ChatModeSingle, c.Chat.Mode))
	}

	switch c.Database.Type {
	case "sqlite", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported database type: %s", c.Database.Type))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps))
	}

	return errors.Join(errs...)
}

// SingleConversation reports whether the orchestrator runs in
// single-conversation mode.
func (c *Config) SingleConversation() bool {
	return c.Chat.Mode == ChatModeSingle
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.LLM.APIKey = mask(c.LLM.APIKey)
	cp.TMDB.AccessToken = mask(c.TMDB.AccessToken)
	cp.LLM.Providers = make([]LLMProviderConfig, len(c.LLM.Providers))
	for i, p := range c.LLM.Providers {
		p.APIKey = mask(p.APIKey)
		cp.LLM.Providers[i] = p
	}
	return &cp
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
