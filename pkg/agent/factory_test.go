package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneagent/pkg/config"
)

func TestNewProviderDispatch(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{
			name: "anthropic",
			cfg:  config.ProviderConfig{Provider: config.ProviderAnthropic, APIKey: "k", Model: "claude-3-5-sonnet-20241022", Temperature: 0.7},
		},
		{
			name: "openai",
			cfg:  config.ProviderConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "gpt-4o", Temperature: 0.7},
		},
		{
			name: "openai with base url",
			cfg:  config.ProviderConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "gpt-4o", BaseURL: "https://proxy.example/v1", Temperature: 0.7},
		},
		{
			name: "glm",
			cfg:  config.ProviderConfig{Provider: config.ProviderGLM, APIKey: "k", Model: "glm-4-plus", BaseURL: "https://open.bigmodel.cn/api/paas/v4", Temperature: 0.7},
		},
		{
			name: "kimi",
			cfg:  config.ProviderConfig{Provider: config.ProviderKimi, APIKey: "k", Model: "moonshot-v1-8k", BaseURL: "https://api.moonshot.cn/v1", Temperature: 0.7},
		},
		{
			name: "ollama",
			cfg:  config.ProviderConfig{Provider: config.ProviderOllama, Model: "llama3.1", Host: "http://localhost:11434", Temperature: 0.7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Model, p.ModelName())
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	_, err := NewProvider(config.ProviderConfig{Provider: "unknown", APIKey: "k", Model: "m", Temperature: 0.7})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = NewProvider(config.ProviderConfig{Provider: config.ProviderOpenAI, Model: "gpt-4o", Temperature: 0.7})
	assert.ErrorContains(t, err, "API key")

	_, err = NewProvider(config.ProviderConfig{Provider: config.ProviderGLM, APIKey: "k", Model: "glm-4", Temperature: 0.7})
	assert.ErrorContains(t, err, "base URL")
}
