package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) error {
	chatID := callbackChatID(callback)
	if chatID == 0 {
		return b.answerCallback(ctx, callback, "")
	}

	switch strings.TrimSpace(callback.Data) {
	case callbackMenu:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleMenuCommand(ctx, chatID)
		})
	case callbackHelp:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleStartCommand(ctx, chatID)
		})
	case callbackHistory:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleHistoryCommand(ctx, chatID)
		})
	case callbackBatch:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleBatchCommand(ctx, chatID)
		})
	case callbackBatchDone:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.withSpinner(ctx, chatID, func() error {
				return b.handleDoneCommand(ctx, chatID)
			})
		})
	case callbackBatchCancel:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleCancelCommand(ctx, chatID)
		})
	default:
		return b.answerCallback(ctx, callback, "")
	}
}

func (b *Bot) withEmptyCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if err := b.answerCallback(ctx, callback, ""); err != nil {
		errs = append(errs, err)
	}

	if err := fn(); err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) answerCallback(ctx context.Context, callback *models.CallbackQuery, text string) error {
	if _, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}
