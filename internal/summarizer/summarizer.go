package summarizer

import (
	"context"
	"errors"
)

var (
	// ErrModelInit means no usable credential or client.
	ErrModelInit = errors.New("model initialization failed")
	// ErrQuotaExhausted means the provider rejected the call for rate or usage limits.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrGeneration covers every other generation failure.
	ErrGeneration = errors.New("generation failed")
)

// Generator performs a single text generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelConfig holds generation parameters. Providers ignore what they do not support.
// An empty Model selects the provider default.
type ModelConfig struct {
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"       validate:"gte=0,lte=2"`
	TopP            float64 `yaml:"top_p"             validate:"gte=0,lte=1"`
	TopK            int     `yaml:"top_k"             validate:"gte=0"`
	MaxOutputTokens int64   `yaml:"max_output_tokens" validate:"gt=0"`
}

const (
	DefaultGeminiModel     = "gemini-2.0-flash"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultTemperature     = 0.7
	DefaultTopP            = 0.8
	DefaultTopK            = 40
	DefaultMaxOutputTokens = 8192
)

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Temperature:     DefaultTemperature,
		TopP:            DefaultTopP,
		TopK:            DefaultTopK,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// Result is the outcome of one analysis. Text is always displayable.
type Result struct {
	Text string
	Err  error
}
