package llm

import (
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	openRouterAppTitle       = "conceptree"
)

// OpenRouterProvider is an OpenAIProvider pointed at OpenRouter. Model ids
// are vendor-qualified ("google/gemini-2.0-flash-001") and pass through.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}

	client := openai.DefaultConfig(cfg.APIKey)
	client.HTTPClient = &http.Client{Transport: appHeaders{next: http.DefaultTransport}}

	inner, err := newOpenAIProviderRaw("openrouter", client, OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}

// appHeaders identifies the application to OpenRouter.
type appHeaders struct {
	next http.RoundTripper
}

func (h appHeaders) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Title", openRouterAppTitle)
	return h.next.RoundTrip(r)
}
