package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	cfg    ModelConfig
}

func NewGeminiGenerator(ctx context.Context, apiKey, baseURL string, cfg ModelConfig) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: %w: api key is empty", ErrModelInit)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w: %w", ErrModelInit, err)
	}

	return &GeminiGenerator{client: client, cfg: cfg}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.cfg.Temperature)),
		TopP:            genai.Ptr(float32(g.cfg.TopP)),
		MaxOutputTokens: int32(g.cfg.MaxOutputTokens),
	}
	if g.cfg.TopK > 0 {
		genCfg.TopK = genai.Ptr(float32(g.cfg.TopK))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", geminiError(err))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: output text is missing", ErrGeneration)
	}

	return text, nil
}

func geminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrModelInit, err)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "Error 429") {
		return fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
	}
	if strings.Contains(msg, "API_KEY_INVALID") {
		return fmt.Errorf("%w: %w", ErrModelInit, err)
	}

	return err
}
