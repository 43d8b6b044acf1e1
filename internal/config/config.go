package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/csheth/legalease/internal/session"
)

const (
	envPrefix    = "LEGALEASE"
	envConfigVar = "LEGALEASE_CONFIG"
)

// DefaultLanguages lists the output languages offered by the language picker.
var DefaultLanguages = []string{
	"English",
	"Hindi (हिन्दी)",
	"Bengali (বাংলা)",
	"Telugu (తెలుగు)",
	"Marathi (मराठी)",
	"Tamil (தமிழ்)",
	"Urdu (اردو)",
	"Gujarati (ગુજરાતી)",
	"Kannada (ಕನ್ನಡ)",
	"Odia (ଓଡିଆ)",
	"Malayalam (മലയാളം)",
	"Punjabi (ਪੰਜਾਬੀ)",
}

// Config holds application configuration.
type Config struct {
	LLM    LLMConfig
	Limits LimitsConfig
	Retry  RetryConfig
	UI     UIConfig
}

// LLMConfig describes the remote generation service.
type LLMConfig struct {
	Endpoint          string
	Model             string
	APIKey            string        `mapstructure:"api_key"`
	APIKeyEnv         string        `mapstructure:"api_key_env"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// LimitsConfig holds precondition limits enforced before any request.
type LimitsConfig struct {
	MaxDocumentBytes int64 `mapstructure:"max_document_bytes"`
}

// RetryConfig holds the gateway retry budget.
type RetryConfig struct {
	Attempts          int
	InitialBackoffMs  int     `mapstructure:"initial_backoff_ms"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Languages       []string
	DefaultLanguage string `mapstructure:"default_language"`
	ExportDir       string `mapstructure:"export_dir"`
	MarkdownStyle   string `mapstructure:"markdown_style"`
}

// InitialBackoff returns the first retry delay.
func (r RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMs) * time.Millisecond
}

// ResolveAPIKey prefers the explicit key and falls back to the configured env var.
func (l LLMConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(l.APIKey); key != "" {
		return key
	}
	if l.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(l.APIKeyEnv))
}

// Load reads configuration from file and env. Env var overrides use prefix LEGALEASE_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv(envConfigVar); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "legalease"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(c.UI.Languages) == 0 {
		c.UI.Languages = append([]string(nil), DefaultLanguages...)
	}
	if c.UI.DefaultLanguage == "" {
		c.UI.DefaultLanguage = c.UI.Languages[0]
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.model", "gemini-2.5-flash-preview-05-20")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.request_timeout", 2*time.Minute)
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("limits.max_document_bytes", session.DefaultMaxDocumentBytes)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("ui.languages", DefaultLanguages)
	v.SetDefault("ui.default_language", "")
	v.SetDefault("ui.export_dir", ".")
	v.SetDefault("ui.markdown_style", "auto")
}

// Validate rejects settings the orchestrator and gateway cannot work with.
func (c Config) Validate() error {
	switch {
	case c.Limits.MaxDocumentBytes <= 0:
		return fmt.Errorf("limits.max_document_bytes must be positive, got %d", c.Limits.MaxDocumentBytes)
	case c.Retry.Attempts <= 0:
		return fmt.Errorf("retry.attempts must be positive, got %d", c.Retry.Attempts)
	case c.Retry.InitialBackoffMs < 0:
		return fmt.Errorf("retry.initial_backoff_ms must not be negative, got %d", c.Retry.InitialBackoffMs)
	case c.Retry.BackoffMultiplier < 1:
		return fmt.Errorf("retry.backoff_multiplier must be >= 1, got %g", c.Retry.BackoffMultiplier)
	case len(c.UI.Languages) == 0:
		return errors.New("ui.languages must list at least one language")
	}
	return nil
}
