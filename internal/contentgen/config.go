package contentgen

import (
	"fmt"
	"time"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
	// ProviderDisabled turns generation off; the generator then always reports
	// that no questions could be produced.
	ProviderDisabled = "disabled"
)

type Config struct {
	Provider  string         `yaml:"provider"`
	Gemini    ProviderConfig `yaml:"gemini"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`

	MaxTokens int `yaml:"max_tokens"`
	// Timeout bounds a single generation request. Zero means no extra bound.
	Timeout time.Duration `yaml:"timeout"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"` // openai only
}

func DefaultConfig() Config {
	return Config{
		Provider:  ProviderDisabled,
		Gemini:    ProviderConfig{Model: "gemini-flash"},
		OpenAI:    ProviderConfig{Model: "gpt-4o-mini"},
		Anthropic: ProviderConfig{Model: "claude-haiku"},
		MaxTokens: 2048,
		Timeout:   30 * time.Second,
	}
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderDisabled, ProviderMock:
		return nil
	case ProviderGemini:
		return requireKey(c.Provider, c.Gemini)
	case ProviderOpenAI:
		return requireKey(c.Provider, c.OpenAI)
	case ProviderAnthropic:
		return requireKey(c.Provider, c.Anthropic)
	default:
		return fmt.Errorf("unknown content provider %q", c.Provider)
	}
}

func requireKey(name string, pc ProviderConfig) error {
	if pc.APIKey == "" {
		return fmt.Errorf("%s API key is required", name)
	}
	return nil
}
