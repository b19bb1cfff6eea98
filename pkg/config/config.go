// Package config provides configuration loading and the model capability
// registry used to decide, per model, whether native tool calling is
// available.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider name constants.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGLM       = "glm"
	ProviderKimi      = "kimi"
	ProviderOllama    = "ollama"
)

// Default agent settings.
const (
	DefaultMaxIterations      = 10
	DefaultMaxHistoryMessages = 50
	DefaultRequestTimeout     = 120 * time.Second
	DefaultToolTimeout        = 60 * time.Second
)

// ModelInfo describes the capabilities of one model identifier. NativeToolCalls
// is the explicit allow-list flag consulted by the compatible adapter family:
// models without it get tool descriptors serialized into the system prompt and
// the fenced-block fallback parser applied to responses.
type ModelInfo struct {
	Provider         string
	MaxContextTokens int
	MaxOutputTokens  int
	NativeToolCalls  bool
}

// KnownModels maps model identifiers to capability flags. Unknown models fall
// back to conservative defaults via ModelInfoFor.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	// Anthropic
	"claude-3-5-sonnet-20241022": {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 8192, NativeToolCalls: true},
	"claude-sonnet-4-20250514":   {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 8192, NativeToolCalls: true},
	"claude-opus-4-1":            {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 16384, NativeToolCalls: true},

	// OpenAI
	"gpt-4-turbo": {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 4096, NativeToolCalls: true},
	"gpt-4o":      {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 16384, NativeToolCalls: true},
	"gpt-4o-mini": {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 16384, NativeToolCalls: true},

	// GLM (OpenAI-compatible)
	"glm-4":      {Provider: ProviderGLM, MaxContextTokens: 128000, MaxOutputTokens: 4096, NativeToolCalls: true},
	"glm-4-plus": {Provider: ProviderGLM, MaxContextTokens: 128000, MaxOutputTokens: 4096, NativeToolCalls: true},
	"glm-4v":     {Provider: ProviderGLM, MaxContextTokens: 8192, MaxOutputTokens: 4096, NativeToolCalls: true},

	// Kimi / Moonshot (OpenAI-compatible)
	"moonshot-v1-8k":   {Provider: ProviderKimi, MaxContextTokens: 8192, MaxOutputTokens: 4096, NativeToolCalls: true},
	"moonshot-v1-32k":  {Provider: ProviderKimi, MaxContextTokens: 32768, MaxOutputTokens: 4096, NativeToolCalls: true},
	"moonshot-v1-128k": {Provider: ProviderKimi, MaxContextTokens: 131072, MaxOutputTokens: 4096, NativeToolCalls: true},
}

// ModelInfoFor returns capability info for a model identifier. Unknown models
// get a conservative default with the provider inferred from the id prefix and
// native tool calling disabled, so degraded mode is the safe fallback.
func ModelInfoFor(model string) (ModelInfo, bool) {
	if info, exists := KnownModels[model]; exists {
		return info, true
	}

	provider := ProviderOpenAI
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "claude"):
		provider = ProviderAnthropic
	case strings.HasPrefix(lower, "glm"):
		provider = ProviderGLM
	case strings.HasPrefix(lower, "moonshot") || strings.HasPrefix(lower, "kimi"):
		provider = ProviderKimi
	}

	return ModelInfo{
		Provider:         provider,
		MaxContextTokens: 8192,
		MaxOutputTokens:  4096,
		NativeToolCalls:  false,
	}, false
}

// SupportsNativeTools reports whether the model is on the native tool-calling
// allow-list.
func SupportsNativeTools(model string) bool {
	info, _ := ModelInfoFor(model)
	return info.NativeToolCalls
}

// ProviderConfig holds the settings for one provider endpoint.
type ProviderConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Host        string  `yaml:"host,omitempty"` // ollama only
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// Validate checks provider configuration for the fields every adapter needs.
func (c *ProviderConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Provider != ProviderOllama && c.APIKey == "" {
		return fmt.Errorf("API key cannot be empty for provider %s", c.Provider)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}

// Config is the top-level agent configuration.
type Config struct {
	DefaultProvider    string                    `yaml:"default_provider"`
	Providers          map[string]ProviderConfig `yaml:"providers"`
	MaxIterations      int                       `yaml:"max_iterations"`
	MaxHistoryMessages int                       `yaml:"max_history_messages"`
	RequestTimeout     time.Duration             `yaml:"request_timeout"`
	ToolTimeout        time.Duration             `yaml:"tool_timeout"`
	Streaming          bool                      `yaml:"streaming"`
	SessionDBPath      string                    `yaml:"session_db_path"`
	SessionName        string                    `yaml:"session_name"`
	EnableCalculator   bool                      `yaml:"enable_calculator"`
	EnableReadFile     bool                      `yaml:"enable_read_file"`
	EnableCurrentTime  bool                      `yaml:"enable_current_time"`
}

// Default returns a configuration with all defaults applied and no providers.
func Default() *Config {
	return &Config{
		DefaultProvider:    ProviderAnthropic,
		Providers:          make(map[string]ProviderConfig),
		MaxIterations:      DefaultMaxIterations,
		MaxHistoryMessages: DefaultMaxHistoryMessages,
		RequestTimeout:     DefaultRequestTimeout,
		ToolTimeout:        DefaultToolTimeout,
		Streaming:          true,
		SessionDBPath:      defaultSessionDBPath(),
		SessionName:        "default",
		EnableCalculator:   true,
		EnableReadFile:     true,
		EnableCurrentTime:  true,
	}
}

func defaultSessionDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "oneagent.db"
	}
	return home + "/.oneagent/sessions.db"
}

// Load builds configuration in three layers: defaults, an optional YAML file,
// then environment variables. Env vars override top-level settings; provider
// blocks declared in the file win over env-derived ones, with env supplying
// only a missing API key. A .env file in the working directory is loaded
// first if present.
func Load(configPath string) (*Config, error) {
	// Best-effort .env load; absence is not an error.
	_ = godotenv.Load()

	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = DefaultMaxHistoryMessages
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	return cfg, nil
}

// applyEnv layers well-known environment variables over the config. Each
// provider is registered only when its API key is present.
func (c *Config) applyEnv() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.setProvider(ProviderAnthropic, ProviderConfig{
			Provider:    ProviderAnthropic,
			APIKey:      key,
			Model:       envOr("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			MaxTokens:   4096,
			Temperature: 0.7,
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.setProvider(ProviderOpenAI, ProviderConfig{
			Provider:    ProviderOpenAI,
			APIKey:      key,
			Model:       envOr("OPENAI_MODEL", "gpt-4-turbo"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			MaxTokens:   4096,
			Temperature: 0.7,
		})
	}
	if key := os.Getenv("GLM_API_KEY"); key != "" {
		c.setProvider(ProviderGLM, ProviderConfig{
			Provider:    ProviderGLM,
			APIKey:      key,
			Model:       envOr("GLM_MODEL", "glm-4-plus"),
			BaseURL:     envOr("GLM_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"),
			MaxTokens:   4096,
			Temperature: 0.7,
		})
	}
	if key := os.Getenv("KIMI_API_KEY"); key != "" {
		c.setProvider(ProviderKimi, ProviderConfig{
			Provider:    ProviderKimi,
			APIKey:      key,
			Model:       envOr("KIMI_MODEL", "moonshot-v1-8k"),
			BaseURL:     envOr("KIMI_BASE_URL", "https://api.moonshot.cn/v1"),
			MaxTokens:   4096,
			Temperature: 0.7,
		})
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.setProvider(ProviderOllama, ProviderConfig{
			Provider:    ProviderOllama,
			Host:        host,
			Model:       envOr("OLLAMA_MODEL", "llama3.1"),
			MaxTokens:   4096,
			Temperature: 0.7,
		})
	}

	if v := os.Getenv("ONEAGENT_DEFAULT_PROVIDER"); v != "" {
		c.DefaultProvider = v
	}
	if v := os.Getenv("ONEAGENT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIterations = n
		}
	}
	if v := os.Getenv("ONEAGENT_SESSION_DB"); v != "" {
		c.SessionDBPath = v
	}
	if v := os.Getenv("ONEAGENT_SESSION"); v != "" {
		c.SessionName = v
	}
}

// setProvider registers a provider config unless the YAML file already
// configured one for that name (file wins over env for provider blocks that
// exist; env fills the gaps).
func (c *Config) setProvider(name string, pc ProviderConfig) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if existing, ok := c.Providers[name]; ok {
		if existing.APIKey == "" {
			existing.APIKey = pc.APIKey
			c.Providers[name] = existing
		}
		return
	}
	c.Providers[name] = pc
}

// ActiveProvider returns the config for the default provider.
func (c *Config) ActiveProvider() (ProviderConfig, error) {
	pc, ok := c.Providers[c.DefaultProvider]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("no configuration for provider %q", c.DefaultProvider)
	}
	return pc, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
