package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelInfoFor(t *testing.T) {
	info, known := ModelInfoFor("claude-3-5-sonnet-20241022")
	assert.True(t, known)
	assert.Equal(t, ProviderAnthropic, info.Provider)
	assert.True(t, info.NativeToolCalls)

	info, known = ModelInfoFor("some-unknown-model")
	assert.False(t, known)
	assert.False(t, info.NativeToolCalls, "unknown models default to degraded mode")

	info, _ = ModelInfoFor("glm-experimental")
	assert.Equal(t, ProviderGLM, info.Provider, "provider inferred from prefix")
	assert.False(t, info.NativeToolCalls)
}

func TestSupportsNativeTools(t *testing.T) {
	assert.True(t, SupportsNativeTools("gpt-4o"))
	assert.True(t, SupportsNativeTools("glm-4-plus"))
	assert.True(t, SupportsNativeTools("moonshot-v1-8k"))
	assert.False(t, SupportsNativeTools("mystery-model-7b"))
}

func TestProviderConfigValidate(t *testing.T) {
	valid := ProviderConfig{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o", Temperature: 0.7}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ProviderConfig)
	}{
		{"empty provider", func(c *ProviderConfig) { c.Provider = "" }},
		{"empty model", func(c *ProviderConfig) { c.Model = "" }},
		{"missing key", func(c *ProviderConfig) { c.APIKey = "" }},
		{"temperature too high", func(c *ProviderConfig) { c.Temperature = 2.5 }},
		{"temperature negative", func(c *ProviderConfig) { c.Temperature = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	// Ollama runs locally and needs no API key.
	ollama := ProviderConfig{Provider: ProviderOllama, Model: "llama3.1", Temperature: 0.7}
	assert.NoError(t, ollama.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.NotNil(t, cfg.Providers)
}

func TestLoadYAMLFile(t *testing.T) {
	content := `
default_provider: openai
max_iterations: 5
providers:
  openai:
    provider: openai
    api_key: sk-from-file
    model: gpt-4o
    temperature: 0.2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, 5, cfg.MaxIterations)

	pc, err := cfg.ActiveProvider()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", pc.APIKey)
	assert.Equal(t, "gpt-4o", pc.Model)
	assert.InDelta(t, 0.2, pc.Temperature, 1e-6)
}

func TestFileProviderBlockWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	content := `
default_provider: openai
providers:
  openai:
    provider: openai
    model: gpt-4o
    temperature: 0.2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	pc, err := cfg.ActiveProvider()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", pc.Model, "file provider block wins over env")
	assert.Equal(t, "sk-from-env", pc.APIKey, "env supplies only the missing API key")
}

func TestEnvOverridesDefaultProvider(t *testing.T) {
	t.Setenv("ONEAGENT_DEFAULT_PROVIDER", "ollama")
	t.Setenv("OLLAMA_HOST", "http://localhost:11434")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.DefaultProvider)

	pc, err := cfg.ActiveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, pc.Provider)
	assert.Equal(t, "http://localhost:11434", pc.Host)
}

func TestActiveProviderMissing(t *testing.T) {
	cfg := Default()
	cfg.DefaultProvider = "nonexistent"
	_, err := cfg.ActiveProvider()
	assert.Error(t, err)
}
