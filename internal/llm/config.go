package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config selects and configures one provider.
type Config struct {
	// Provider is one of "gemini", "openai", "anthropic", "openrouter" or
	// "mock".
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a whole Generate call, retries included.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // any OpenAI-compatible endpoint
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string // vendor-qualified, passed through unchanged
	BaseURL string
}

// RetryConfig is the backoff policy applied by RetryProvider.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig uses Gemini Flash, three attempts and a 30s budget.
func DefaultConfig() Config {
	return Config{
		Provider:   "gemini",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// backends lists the hosted providers in discovery priority order. Each
// entry exposes the key and model fields of its section of Config.
var backends = []struct {
	name  string
	key   func(*Config) *string
	model func(*Config) *string
}{
	{"gemini", func(c *Config) *string { return &c.Gemini.APIKey }, func(c *Config) *string { return &c.Gemini.Model }},
	{"openai", func(c *Config) *string { return &c.OpenAI.APIKey }, func(c *Config) *string { return &c.OpenAI.Model }},
	{"anthropic", func(c *Config) *string { return &c.Anthropic.APIKey }, func(c *Config) *string { return &c.Anthropic.Model }},
	{"openrouter", func(c *Config) *string { return &c.OpenRouter.APIKey }, func(c *Config) *string { return &c.OpenRouter.Model }},
}

func keyVar(provider string) string {
	return "CONCEPTREE_" + strings.ToUpper(provider) + "_API_KEY"
}

// ConfigFromEnv overlays CONCEPTREE_* variables on DefaultConfig.
// Malformed durations and counts are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	setFromEnv(&cfg.Provider, "CONCEPTREE_LLM_PROVIDER")
	for _, b := range backends {
		setFromEnv(b.key(&cfg), keyVar(b.name))
		setFromEnv(b.model(&cfg), "CONCEPTREE_"+strings.ToUpper(b.name)+"_MODEL")
	}
	setFromEnv(&cfg.OpenAI.BaseURL, "CONCEPTREE_OPENAI_BASE_URL")

	if d, err := time.ParseDuration(os.Getenv("CONCEPTREE_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("CONCEPTREE_LLM_MAX_ATTEMPTS")); err == nil && n > 0 {
		cfg.Retry.MaxAttempts = n
	}
	return cfg
}

func setFromEnv(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// DiscoverConfig picks the first provider whose standard key variable
// (GEMINI_API_KEY, OPENAI_API_KEY, ...) is set.
func DiscoverConfig() (Config, bool) {
	for _, b := range backends {
		if k := os.Getenv(strings.ToUpper(b.name) + "_API_KEY"); k != "" {
			cfg := DefaultConfig()
			cfg.Provider = b.name
			*b.key(&cfg) = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate reports a missing API key, an unknown provider or an unusable
// retry policy.
func (c Config) Validate() error {
	if c.Provider != "mock" {
		found := false
		for _, b := range backends {
			if b.name != c.Provider {
				continue
			}
			found = true
			if *b.key(&c) == "" {
				return fmt.Errorf("%s is required for the %s provider", keyVar(b.name), b.name)
			}
		}
		if !found {
			return fmt.Errorf("unknown LLM provider: %q", c.Provider)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// ModelID returns the configured model name of the selected provider,
// before friendly-name resolution.
func (c Config) ModelID() string {
	for _, b := range backends {
		if b.name == c.Provider {
			return *b.model(&c)
		}
	}
	return c.Provider
}
