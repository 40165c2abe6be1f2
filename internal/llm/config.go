package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures the LLM backing offline mode.
type Config struct {
	// Provider is one of anthropic, openai, gemini, openrouter, mock.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:   "gemini",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 60 * time.Second,
	}
}

// envBinding maps an EDUBOT_* variable onto a Config field.
type envBinding struct {
	name string
	set  func(*Config, string)
}

var envBindings = []envBinding{
	{"EDUBOT_LLM_PROVIDER", func(c *Config, v string) { c.Provider = v }},
	{"EDUBOT_ANTHROPIC_API_KEY", func(c *Config, v string) { c.Anthropic.APIKey = v }},
	{"EDUBOT_ANTHROPIC_MODEL", func(c *Config, v string) { c.Anthropic.Model = v }},
	{"EDUBOT_OPENAI_API_KEY", func(c *Config, v string) { c.OpenAI.APIKey = v }},
	{"EDUBOT_OPENAI_MODEL", func(c *Config, v string) { c.OpenAI.Model = v }},
	{"EDUBOT_OPENAI_BASE_URL", func(c *Config, v string) { c.OpenAI.BaseURL = v }},
	{"EDUBOT_GEMINI_API_KEY", func(c *Config, v string) { c.Gemini.APIKey = v }},
	{"EDUBOT_GEMINI_MODEL", func(c *Config, v string) { c.Gemini.Model = v }},
	{"EDUBOT_OPENROUTER_API_KEY", func(c *Config, v string) { c.OpenRouter.APIKey = v }},
	{"EDUBOT_OPENROUTER_MODEL", func(c *Config, v string) { c.OpenRouter.Model = v }},
}

// ConfigFromEnv overlays EDUBOT_* variables on DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	for _, b := range envBindings {
		if v := os.Getenv(b.name); v != "" {
			b.set(&cfg, v)
		}
	}
	return cfg
}

// DiscoverConfig picks the first provider whose conventional API key
// variable is set, in the order Gemini, OpenAI, Anthropic, OpenRouter.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	probes := []struct {
		env      string
		provider string
		key      *string
	}{
		{"GEMINI_API_KEY", "gemini", &cfg.Gemini.APIKey},
		{"OPENAI_API_KEY", "openai", &cfg.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", "anthropic", &cfg.Anthropic.APIKey},
		{"OPENROUTER_API_KEY", "openrouter", &cfg.OpenRouter.APIKey},
	}
	for _, p := range probes {
		if k := os.Getenv(p.env); k != "" {
			cfg.Provider = p.provider
			*p.key = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Resolve prefers explicit EDUBOT_* settings and falls back to discovery.
func Resolve() Config {
	cfg := ConfigFromEnv()
	if cfg.Validate() == nil {
		return cfg
	}
	if found, ok := DiscoverConfig(); ok {
		return found
	}
	return cfg
}

// Validate reports a missing API key for the selected provider.
func (c Config) Validate() error {
	var key, env string
	switch c.Provider {
	case "anthropic":
		key, env = c.Anthropic.APIKey, "EDUBOT_ANTHROPIC_API_KEY"
	case "openai":
		key, env = c.OpenAI.APIKey, "EDUBOT_OPENAI_API_KEY"
	case "gemini":
		key, env = c.Gemini.APIKey, "EDUBOT_GEMINI_API_KEY"
	case "openrouter":
		key, env = c.OpenRouter.APIKey, "EDUBOT_OPENROUTER_API_KEY"
	case "mock":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}
	return nil
}

// resolveModel expands a short alias; anything else is taken as a concrete
// model ID.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
