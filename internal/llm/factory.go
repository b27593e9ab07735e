package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abhisek/conceptree/internal/logger"
	"github.com/abhisek/conceptree/internal/store"
)

// NewProvider builds the provider named by cfg.Provider and wraps it as
// timeout(retry(logging(base))). Each attempt is logged separately.
// eventRepo may be nil.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	base, err := newBaseProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	if _, ok := base.(*MockProvider); ok {
		return base, nil
	}

	p := WithLogging(base, cfg.Provider, eventRepo, log)
	p = WithRetry(p, cfg.Retry, log)
	return WithTimeout(p, cfg.Timeout), nil
}

func newBaseProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		return NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	}
	return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
}

// NewProviderFromEnv builds a provider from CONCEPTREE_* variables. When
// those do not yield a usable configuration and no provider was chosen
// explicitly, the standard API key variables are probed instead.
func NewProviderFromEnv(ctx context.Context, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	cfg := ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		if os.Getenv("CONCEPTREE_LLM_PROVIDER") != "" {
			return nil, err
		}
		discovered, ok := DiscoverConfig()
		if !ok {
			return nil, err
		}
		cfg = discovered
	}
	logger.OrNop(log).Info("llm provider configured", "provider", cfg.Provider, "model", cfg.ModelID())
	return NewProvider(ctx, cfg, eventRepo, log)
}

// TimeoutProvider bounds each Generate call, retries included.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps p so every call runs under timeout. A zero timeout
// returns p unchanged.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: timeout}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *TimeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
