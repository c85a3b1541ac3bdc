package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"pdfsum/internal/markdown"
)

const sendSpinnerInterval = 3 * time.Second

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	_, err := b.api.SendChatAction(ctx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil && ctx.Err() == nil {
		b.log.ErrorContext(ctx, "Failed to send chat action",
			"error", err)
	}
}

func (b *Bot) withSpinner(ctx context.Context, chatID int64, fn func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		b.sendTyping(ctx, chatID)

		t := time.NewTicker(sendSpinnerInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.sendTyping(ctx, chatID)
			}
		}
	}()

	return fn()
}

// sendMessage sends MarkdownV2 text. Callers escape user content.
func (b *Bot) sendMessage(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard [][]models.InlineKeyboardButton,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	if err := b.rateLimiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	params := &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      normalizedText,
		ParseMode: models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: tgbot.True(),
		},
	}
	if len(keyboard) > 0 {
		params.ReplyMarkup = &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
	}

	_, err := b.api.SendMessage(ctx, params)

	return err
}

// sendLongText escapes text and sends it in as many messages as needed.
func (b *Bot) sendLongText(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range markdown.Split(markdown.EscapeV2(text), markdown.MaxMessageLength) {
		if err := b.sendMessage(ctx, chatID, chunk, nil); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bot) sendPhoto(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := b.rateLimiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	_, err := b.api.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: name, Data: bytes.NewReader(data)},
		Caption: caption,
	})

	return err
}

func (b *Bot) sendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := b.rateLimiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	_, err := b.api.SendDocument(ctx, &tgbot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: name, Data: bytes.NewReader(data)},
		Caption:  caption,
	})

	return err
}
