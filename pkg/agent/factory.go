package agent

import (
	"fmt"

	anthropicimpl "oneagent/pkg/agent/internal/llmimpl/anthropic"
	"oneagent/pkg/agent/internal/llmimpl/compat"
	ollamaimpl "oneagent/pkg/agent/internal/llmimpl/ollama"
	openaiimpl "oneagent/pkg/agent/internal/llmimpl/openai"
	"oneagent/pkg/agent/llm"
	"oneagent/pkg/config"
)

// NewProvider builds a raw vendor adapter from provider configuration.
// Dispatch is on the explicit provider tag, never on model-name heuristics.
// Middleware (logging, metrics) is layered by the caller via llm.Chain.
func NewProvider(cfg config.ProviderConfig) (llm.Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropicimpl.NewClient(cfg.APIKey, cfg.Model), nil

	case config.ProviderOpenAI:
		if cfg.BaseURL != "" {
			return openaiimpl.NewClientWithBaseURL(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
		}
		return openaiimpl.NewClient(cfg.APIKey, cfg.Model), nil

	case config.ProviderGLM, config.ProviderKimi:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %s requires a base URL", cfg.Provider)
		}
		return compat.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL, config.SupportsNativeTools(cfg.Model)), nil

	case config.ProviderOllama:
		return ollamaimpl.NewClient(cfg.Host, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
