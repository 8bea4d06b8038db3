package providers

import (
	"fmt"

	"github.com/haasonsaas/warden/internal/agent"
)

// Config selects and configures a provider backend.
type Config struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// New builds the provider named in the config.
func New(cfg Config) (agent.Provider, error) {
	switch cfg.Name {
	case "anthropic", "":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Name)
}
