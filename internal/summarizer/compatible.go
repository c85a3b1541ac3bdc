package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// CompatibleGenerator talks to any OpenAI-compatible chat completions endpoint.
type CompatibleGenerator struct {
	client *goopenai.Client
	cfg    ModelConfig
}

func NewCompatibleGenerator(apiKey, baseURL string, cfg ModelConfig) (*CompatibleGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("compatible: %w: api key is empty", ErrModelInit)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	transportCfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		transportCfg.BaseURL = baseURL
	}

	return &CompatibleGenerator{
		client: goopenai.NewClientWithConfig(transportCfg),
		cfg:    cfg,
	}, nil
}

func (g *CompatibleGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(g.cfg.Temperature),
		TopP:        float32(g.cfg.TopP),
		MaxTokens:   int(g.cfg.MaxOutputTokens),
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", compatibleError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrGeneration)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: output text is missing", ErrGeneration)
	}

	return text, nil
}

func compatibleError(err error) error {
	status := 0

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrModelInit, err)
	default:
		return err
	}
}
