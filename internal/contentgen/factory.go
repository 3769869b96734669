package contentgen

import (
	"context"
	"errors"
	"fmt"
)

var errDisabled = errors.New("content generation is disabled")

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI)
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic)
	case ProviderMock:
		return NewMockProvider(), nil
	case ProviderDisabled:
		return disabledProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown content provider %q", cfg.Provider)
	}
}

type disabledProvider struct{}

func (disabledProvider) Generate(context.Context, Request) (*Response, error) {
	return nil, &ErrProviderUnavailable{Err: errDisabled}
}

func (disabledProvider) ModelID() string { return ProviderDisabled }
