package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"pdfsum/internal/retry"
)

const (
	MaxAttempts = 3
	RetryDelay  = 5 * time.Second

	QuotaExhaustedMessage = "⚠️ API quota exhausted, try later."
	ModelInitMessage      = "❌ Model initialization failed, check the API key."
	generationFailedText  = "❌ Analysis failed: "

	// sharedGenerationTimeout bounds a generation that outlives the callers waiting on it.
	sharedGenerationTimeout = 5 * time.Minute
)

// Client turns text into an analysis. It never returns an error to the
// caller: failures become a displayable message.
type Client struct {
	generator Generator
	sleep     retry.SleepFunc
	now       func() time.Time
	cache     *resultCache
	group     singleflight.Group
	log       *slog.Logger
}

type Option func(*Client)

func WithSleep(sleep retry.SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithoutCache() Option {
	return func(c *Client) { c.cache = nil }
}

func NewClient(g Generator, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		generator: g,
		sleep:     retry.Sleep,
		now:       time.Now,
		cache:     newResultCache(resultCacheMaxEntries),
		log:       log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Summarize(ctx context.Context, text string) string {
	return c.Analyze(ctx, text).Text
}

func (c *Client) Analyze(ctx context.Context, text string) Result {
	if c == nil || c.generator == nil {
		return Result{Text: ModelInitMessage, Err: ErrModelInit}
	}

	key := TextHash(text)
	if cached, ok := c.cache.get(key, c.now()); ok {
		return Result{Text: cached}
	}

	// The shared call does not inherit any one caller's cancellation; each
	// caller stops waiting on its own context instead.
	ch := c.group.DoChan(key, func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedGenerationTimeout)
		defer cancel()

		out, err := c.generate(genCtx, text)
		if err != nil {
			return "", err
		}

		now := c.now()
		c.cache.set(key, out, now.Add(resultCacheTTL), now)

		return out, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	case res = <-ch:
	}

	if res.Err != nil {
		c.log.ErrorContext(ctx, "Failed to analyze text",
			"error", res.Err,
			"textLen", len(text),
			"shared", res.Shared)

		return Result{Text: failureMessage(res.Err), Err: classify(res.Err)}
	}

	out, _ := res.Val.(string)

	return Result{Text: out}
}

func (c *Client) generate(ctx context.Context, text string) (string, error) {
	prompt := BuildPrompt(text)

	return retry.Do(ctx, retry.Policy{
		MaxAttempts: MaxAttempts,
		Delay:       RetryDelay,
		Sleep:       c.sleep,
		Retryable:   isRetryable,
	}, func(ctx context.Context, attempt int) (string, error) {
		out, err := c.callGenerator(ctx, prompt)
		if err != nil {
			c.log.WarnContext(ctx, "Failed to generate analysis",
				"error", err,
				"attempt", attempt,
				"maxAttempts", MaxAttempts,
				"retryable", isRetryable(err))

			return "", err
		}

		return out, nil
	})
}

func (c *Client) callGenerator(ctx context.Context, prompt string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = ""
			err = fmt.Errorf("%w: generator panicked: %v", ErrGeneration, rec)
		}
	}()

	out, err = c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: output text is missing", ErrGeneration)
	}

	return out, nil
}

func isRetryable(err error) bool {
	return !errors.Is(err, ErrQuotaExhausted) && !errors.Is(err, ErrModelInit)
}

func classify(err error) error {
	if errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrModelInit) || errors.Is(err, ErrGeneration) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrGeneration, err)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExhausted):
		return QuotaExhaustedMessage
	case errors.Is(err, ErrModelInit):
		return ModelInitMessage
	default:
		return generationFailedText + err.Error()
	}
}
