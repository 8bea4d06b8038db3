// Package config loads the YAML configuration file with environment
// variable expansion and sane defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/warden/internal/backoff"
	"github.com/haasonsaas/warden/internal/circuit"
	"github.com/haasonsaas/warden/internal/conversation"
	"github.com/haasonsaas/warden/internal/safety"
)

// Config is the top-level configuration.
type Config struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Context    ContextConfig    `yaml:"context"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Safety     SafetyConfig     `yaml:"safety"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ProviderConfig struct {
	Name      string `yaml:"name"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

type ContextConfig struct {
	TokenBudget        int     `yaml:"token_budget"`
	SummarizeThreshold float64 `yaml:"summarize_threshold"`
	MinRecentMessages  int     `yaml:"min_recent_messages"`
}

type ResilienceConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	Jitter           *bool         `yaml:"jitter"`
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
}

type SafetyConfig struct {
	RequireConfirmation *bool    `yaml:"require_confirmation"`
	BlockedPatterns     []string `yaml:"blocked_patterns"`
	DangerousPatterns   []string `yaml:"dangerous_patterns"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the configuration file. Environment variables
// in the file are expanded before parsing, so secrets can be referenced
// as ${ANTHROPIC_API_KEY}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration bytes with env expansion and defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present. The
// API key is taken from the provider's conventional environment
// variable.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "anthropic"
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 4096
	}
	if cfg.Context.TokenBudget == 0 {
		cfg.Context.TokenBudget = conversation.DefaultTokenBudget
	}
	if cfg.Context.SummarizeThreshold == 0 {
		cfg.Context.SummarizeThreshold = conversation.DefaultSummarizeThreshold
	}
	if cfg.Context.MinRecentMessages == 0 {
		cfg.Context.MinRecentMessages = conversation.DefaultMinRecentMessages
	}
	if cfg.Resilience.MaxAttempts == 0 {
		cfg.Resilience.MaxAttempts = 3
	}
	if cfg.Resilience.BaseDelay == 0 {
		cfg.Resilience.BaseDelay = time.Second
	}
	if cfg.Resilience.MaxDelay == 0 {
		cfg.Resilience.MaxDelay = 30 * time.Second
	}
	if cfg.Resilience.FailureThreshold == 0 {
		cfg.Resilience.FailureThreshold = 5
	}
	if cfg.Resilience.RecoveryTimeout == 0 {
		cfg.Resilience.RecoveryTimeout = 60 * time.Second
	}
	if cfg.Resilience.HalfOpenMaxCalls == 0 {
		cfg.Resilience.HalfOpenMaxCalls = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("provider.name: unknown provider %q", c.Provider.Name)
	}
	if c.Context.SummarizeThreshold < 0 || c.Context.SummarizeThreshold > 1 {
		return fmt.Errorf("context.summarize_threshold must be between 0 and 1, got %v", c.Context.SummarizeThreshold)
	}
	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts must be at least 1, got %d", c.Resilience.MaxAttempts)
	}
	if c.Resilience.BaseDelay < 0 || c.Resilience.MaxDelay < 0 {
		return fmt.Errorf("resilience delays must not be negative")
	}
	return nil
}

// BackoffPolicy returns the backoff policy described by the config.
func (c *Config) BackoffPolicy() backoff.Policy {
	jitter := true
	if c.Resilience.Jitter != nil {
		jitter = *c.Resilience.Jitter
	}
	return backoff.Policy{
		BaseDelay: c.Resilience.BaseDelay,
		MaxDelay:  c.Resilience.MaxDelay,
		Jitter:    jitter,
	}
}

// BreakerConfig returns the circuit breaker config described by the
// config. The name is filled in by the session.
func (c *Config) BreakerConfig() circuit.Config {
	return circuit.Config{
		FailureThreshold: c.Resilience.FailureThreshold,
		RecoveryTimeout:  c.Resilience.RecoveryTimeout,
		HalfOpenMaxCalls: c.Resilience.HalfOpenMaxCalls,
	}
}

// MemoryConfig returns the conversation memory config.
func (c *Config) MemoryConfig() conversation.Config {
	return conversation.Config{
		TokenBudget:        c.Context.TokenBudget,
		SummarizeThreshold: c.Context.SummarizeThreshold,
		MinRecentMessages:  c.Context.MinRecentMessages,
	}
}

// GuardOptions returns the safety guard options described by the
// config.
func (c *Config) GuardOptions() safety.Options {
	confirm := true
	if c.Safety.RequireConfirmation != nil {
		confirm = *c.Safety.RequireConfirmation
	}
	return safety.Options{
		ExtraBlockedPatterns:   c.Safety.BlockedPatterns,
		ExtraDangerousPatterns: c.Safety.DangerousPatterns,
		ConfirmDangerous:       confirm,
	}
}
