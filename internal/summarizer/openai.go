package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const limitMaxOutputTokens int64 = 32768

// OpenAIGenerator calls OpenAI's Responses API.
type OpenAIGenerator struct {
	client openai.Client
	cfg    ModelConfig
}

func NewOpenAIGenerator(apiKey string, cfg ModelConfig, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: %w: api key is empty", ErrModelInit)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	maxOutputTokens := g.cfg.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}

	for {
		resp, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           g.cfg.Model,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Temperature:     openai.Float(g.cfg.Temperature),
			TopP:            openai.Float(g.cfg.TopP),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", openAIError(err))
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}

			return "", fmt.Errorf(
				"%w: response is incomplete (reason = %s, maxOutputTokens = %d)",
				ErrGeneration,
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		text := strings.TrimSpace(resp.OutputText())
		if text == "" {
			return "", fmt.Errorf("%w: output text is missing (status = %s)", ErrGeneration, resp.Status)
		}

		return text, nil
	}
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.Code == "insufficient_quota":
		return fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
	case apiErr.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrModelInit, err)
	default:
		return err
	}
}
