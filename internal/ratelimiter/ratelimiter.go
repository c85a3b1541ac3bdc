package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing messages per chat: one per second in private
// chats and one per three seconds in groups.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	log      *slog.Logger
}

func New(log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[int64]*rate.Limiter),
		log:      log,
	}
}

// Wait blocks until chatID may receive another message.
func (rl *RateLimiter) Wait(ctx context.Context, chatID int64) error {
	limiter := rl.limiter(chatID)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	if delay := time.Since(start); delay > time.Millisecond {
		rl.log.DebugContext(ctx, "Rate limiting message",
			"chatID", chatID,
			"delay", delay)
	}

	return nil
}

func (rl *RateLimiter) limiter(chatID int64) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Every(getRate(chatID)), burst)
		rl.limiters[chatID] = l
	}

	return l
}

func getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
