package llm

import (
	"fmt"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Config selects and configures one provider.
type Config struct {
	Provider   string        `mapstructure:"provider" yaml:"provider"`
	Anthropic  VendorConfig  `mapstructure:"anthropic" yaml:"anthropic"`
	OpenAI     VendorConfig  `mapstructure:"openai" yaml:"openai"`
	Gemini     VendorConfig  `mapstructure:"gemini" yaml:"gemini"`
	OpenRouter VendorConfig  `mapstructure:"openrouter" yaml:"openrouter"`
	Retry      RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// VendorConfig is the per-vendor part of Config. BaseURL is only honoured
// by the OpenAI-compatible clients.
type VendorConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"-"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// RetryConfig controls exponential backoff on transient failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait" yaml:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// DefaultConfig uses the mock provider so nothing reaches the network
// until a vendor is chosen explicitly.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderMock,
		Anthropic:  VendorConfig{Model: "claude-haiku"},
		OpenAI:     VendorConfig{Model: "gpt-4o-mini"},
		Gemini:     VendorConfig{Model: "gemini-flash"},
		OpenRouter: VendorConfig{Model: "google/gemini-2.0-flash-exp", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// Vendor returns the settings of the selected provider.
func (c Config) Vendor() (VendorConfig, bool) {
	switch c.Provider {
	case ProviderAnthropic:
		return c.Anthropic, true
	case ProviderOpenAI:
		return c.OpenAI, true
	case ProviderGemini:
		return c.Gemini, true
	case ProviderOpenRouter:
		return c.OpenRouter, true
	}
	return VendorConfig{}, false
}

// Validate checks the provider name and that a key is present for it.
func (c Config) Validate() error {
	if c.Provider == ProviderMock {
		return nil
	}
	v, ok := c.Vendor()
	if !ok {
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
	if v.APIKey == "" {
		return fmt.Errorf("llm provider %s: api key is required", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm retry.max_attempts must be at least 1")
	}
	return nil
}
