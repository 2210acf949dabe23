package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/config"
)

// NewFromConfig creates the LLM client selected by configuration.
// Returns the LLMClient interface to enable dependency injection of mocks.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (LLMClient, error) {
	clientCfg := &Config{
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
	}

	switch cfg.AI.Provider {
	case "openai":
		client, err := NewClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	case "anthropic":
		// The Anthropic client uses its well-known base URL unless one is
		// explicitly configured; the openai-style local default would 404.
		if clientCfg.Endpoint == "http://localhost:11434/v1" {
			clientCfg.Endpoint = ""
		}
		client, err := NewAnthropicClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
