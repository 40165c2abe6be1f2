package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/store"
)

// NewProvider builds the configured provider. Calls flow
// retry -> logging -> provider, so each attempt is recorded separately.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *logging.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.Provider, err)
	}

	return WithRetry(WithLogging(base, cfg.Provider, events, log), cfg.Retry), nil
}
