// Package config provides application configuration with multi-source priority.
//
// Sources, highest priority first:
//  1. Environment variables (prefix COACH_)
//  2. Config file (~/.mlbbcoach/config.yaml)
//  3. Built-in defaults
//
// Categories:
//   - AI: provider selection, model names, temperature, token limits
//   - Retrieval: top-k, passage cap, character budget, per-call timeout
//   - Conversation: history window, token budget, retention
//   - Storage: PostgreSQL connection
//   - Server: HTTP listen address
//
// Sensitive values (database password) are masked in MarshalJSON.
// Validation uses sentinel errors so callers can branch with errors.Is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the generation provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidPassageCap indicates the evidence passage cap is out of range.
	ErrInvalidPassageCap = errors.New("invalid passage cap")

	// ErrInvalidHistoryWindow indicates the history window is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")

	// ErrInvalidPostgresDSN indicates the PostgreSQL connection string is malformed.
	ErrInvalidPostgresDSN = errors.New("invalid postgres connection string")
)

// Provider identifiers accepted in Config.Provider and as request hints.
const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Defaults for the retrieval and conversation budgets. The source system
// left these unspecified, so they are configurable with these starting
// values rather than hard-coded.
const (
	DefaultTopK               = 5
	DefaultMaxPassages        = 5
	DefaultEvidenceCharBudget = 4000
	DefaultRetrievalTimeout   = 2 * time.Second
	DefaultHistoryTurns       = 6
	DefaultHistoryTokenBudget = 2000
	DefaultRetainedTurns      = 100
	DefaultGenerationTimeout  = 60 * time.Second
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when
// adding passwords or keys.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`             // "googleai" (default) or "ollama"
	ModelName     string  `mapstructure:"model_name" json:"model_name"`         // e.g. "gemini-2.5-flash"
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"` // e.g. "gemini-embedding-001"
	OllamaHost    string  `mapstructure:"ollama_host" json:"ollama_host"`
	OllamaModel   string  `mapstructure:"ollama_model" json:"ollama_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`
	Language      string  `mapstructure:"language" json:"language"` // response language, "" = follow the user

	// Retrieval budgets
	TopK               int           `mapstructure:"top_k" json:"top_k"`
	MaxPassages        int           `mapstructure:"max_passages" json:"max_passages"`
	EvidenceCharBudget int           `mapstructure:"evidence_char_budget" json:"evidence_char_budget"`
	RetrievalTimeout   time.Duration `mapstructure:"retrieval_timeout" json:"retrieval_timeout"`

	// Conversation budgets
	HistoryTurns       int `mapstructure:"history_turns" json:"history_turns"`
	HistoryTokenBudget int `mapstructure:"history_token_budget" json:"history_token_budget"`
	RetainedTurns      int `mapstructure:"retained_turns" json:"retained_turns"`

	// Generation
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" json:"generation_timeout"`

	// Storage
	PostgresDSN string `mapstructure:"postgres_dsn" json:"postgres_dsn"`

	// Server
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Observability
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// MarshalJSON masks the database password inside the DSN so configs can be
// logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	a := alias(c)
	a.PostgresDSN = maskDSN(c.PostgresDSN)
	return json.Marshal(a)
}

// maskDSN replaces the password portion of a postgres URL with "***".
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	colon := strings.Index(dsn, "://")
	if colon < 0 {
		return dsn
	}
	creds := dsn[colon+3 : at]
	if pw := strings.Index(creds, ":"); pw >= 0 {
		return dsn[:colon+3] + creds[:pw] + ":***" + dsn[at:]
	}
	return dsn
}

// Load reads configuration from defaults, the optional config file, and
// environment variables, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			// No config file is fine: defaults + env cover a fresh install.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers defaults for every key so Unmarshal always produces
// a complete Config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", "gemini-embedding-001")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3.3")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("language", "")

	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("max_passages", DefaultMaxPassages)
	v.SetDefault("evidence_char_budget", DefaultEvidenceCharBudget)
	v.SetDefault("retrieval_timeout", DefaultRetrievalTimeout)

	v.SetDefault("history_turns", DefaultHistoryTurns)
	v.SetDefault("history_token_budget", DefaultHistoryTokenBudget)
	v.SetDefault("retained_turns", DefaultRetainedTurns)

	v.SetDefault("generation_timeout", DefaultGenerationTimeout)

	v.SetDefault("postgres_dsn", "")
	v.SetDefault("server_addr", "127.0.0.1:3500")
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// configDir returns the configuration directory, creating it with 0750 if
// missing.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".mlbbcoach")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Validate checks configuration ranges. It returns the first violation found
// wrapped around the matching sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	switch c.Provider {
	case ProviderGoogleAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (supported: %s, %s)",
			ErrInvalidProvider, c.Provider, ProviderGoogleAI, ProviderOllama)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (range 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 2_097_152 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d (range 1-50)", ErrInvalidTopK, c.TopK)
	}
	if c.MaxPassages < 1 || c.MaxPassages > c.TopK*3 {
		return fmt.Errorf("%w: %d", ErrInvalidPassageCap, c.MaxPassages)
	}
	if c.HistoryTurns < 0 || c.HistoryTurns > 200 {
		return fmt.Errorf("%w: %d (range 0-200)", ErrInvalidHistoryWindow, c.HistoryTurns)
	}
	if c.PostgresDSN != "" &&
		!strings.HasPrefix(c.PostgresDSN, "postgres://") &&
		!strings.HasPrefix(c.PostgresDSN, "postgresql://") {
		return fmt.Errorf("%w: must start with postgres:// or postgresql://", ErrInvalidPostgresDSN)
	}
	return nil
}
