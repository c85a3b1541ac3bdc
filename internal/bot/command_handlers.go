package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	"pdfsum/internal/acquire"
	"pdfsum/internal/domain"
	"pdfsum/internal/markdown"
	"pdfsum/internal/render"
)

const (
	historyPreviewLength = 120
	historyTimeLayout    = "2006-01-02 15:04"
)

const welcomeText = `🤖 *Welcome to PDF Summarizer\!*

I can analyze text for you:

– Send any text and get a short summary, key points and keywords
– Send a URL and I will read the page \(HTML, RSS / Atom or PDF\)
– Send a PDF document
– Analyze several PDFs at once with /batch, then /done
– Every analysis comes with a word cloud and a word frequency chart
– Use your own model API key in this chat with /key \<key\>
– See recent analyses with /history`

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64) error {
	return b.sendMessage(ctx, chatID, welcomeText, b.menuKeyboard)
}

func (b *Bot) handleMenuCommand(ctx context.Context, chatID int64) error {
	return b.sendMessage(ctx, chatID, "❔ *Choose an option:*", b.menuKeyboard)
}

func (b *Bot) handleKeyCommand(ctx context.Context, message *models.Message, args string) error {
	chatID := message.Chat.ID

	var errs []error

	// The key must not stay visible in the chat.
	if _, err := b.api.DeleteMessage(ctx, &tgbot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: message.ID,
	}); err != nil {
		errs = append(errs, fmt.Errorf("delete message: %w", err))
	}

	key := strings.TrimSpace(args)
	b.sessions.setKey(chatID, key)

	reply := "✅ API key is saved for this chat\\."
	if key == "" {
		reply = "✅ API key is reset to the default one\\."
	}

	if err := b.sendMessage(ctx, chatID, reply, nil); err != nil {
		errs = append(errs, fmt.Errorf("send message: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) handleBatchCommand(ctx context.Context, chatID int64) error {
	b.sessions.startBatch(chatID)

	return b.sendMessage(ctx, chatID,
		fmt.Sprintf("📚 Send up to %d PDF documents, then /done\\. Use /cancel to stop\\.", maxBatchFiles),
		getBatchKeyboard())
}

func (b *Bot) handleCancelCommand(ctx context.Context, chatID int64) error {
	if !b.sessions.cancelBatch(chatID) {
		return b.sendMessage(ctx, chatID, "✖️ There is no open batch\\.", getReturnKeyboard())
	}

	return b.sendMessage(ctx, chatID, "✅ Batch is cancelled\\.", getReturnKeyboard())
}

func (b *Bot) handleDoneCommand(ctx context.Context, chatID int64) error {
	files, ok := b.sessions.takeBatch(chatID)
	if !ok {
		return b.sendMessage(ctx, chatID, "✖️ There is no open batch\\. Start one with /batch\\.", getReturnKeyboard())
	}
	if len(files) == 0 {
		return b.sendMessage(ctx, chatID, "✖️ Batch is empty\\.", getReturnKeyboard())
	}

	docs := acquire.FromPDFBatch(files)

	var errs []error
	items := b.pipeline.AnalyzeBatch(ctx, b.summarizerFor(ctx, chatID), chatID, docs,
		func(done, total int, item domain.BatchItem) {
			status := "✅"
			if item.Failed {
				status = "❌"
			}

			text := fmt.Sprintf("⏳ %d/%d %s %s", done, total, status, markdown.EscapeV2(item.Name))
			if err := b.sendMessage(ctx, chatID, text, nil); err != nil {
				errs = append(errs, fmt.Errorf("send progress: %w", err))
			}
		})

	failed := lo.CountBy(items, func(item domain.BatchItem) bool { return item.Failed })

	artifact := render.BatchArtifact(items)
	caption := fmt.Sprintf("Batch is done: %d analysed, %d failed.", len(items)-failed, failed)
	if err := b.sendDocument(ctx, chatID, render.BatchArtifactName, []byte(artifact), caption); err != nil {
		errs = append(errs, fmt.Errorf("send document: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) handleHistoryCommand(ctx context.Context, chatID int64) error {
	if b.history == nil {
		return b.sendMessage(ctx, chatID, "✖️ History is not available\\.", getReturnKeyboard())
	}

	analyses, err := b.history.GetRecentAnalyses(ctx, chatID, historyLimit)
	if err != nil {
		errs := []error{fmt.Errorf("get recent analyses: %w", err)}

		if sendErr := b.sendMessage(ctx, chatID, "❌ Failed\\.", getReturnKeyboard()); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	if len(analyses) == 0 {
		return b.sendMessage(ctx, chatID, "✖️ History is empty\\.", getReturnKeyboard())
	}

	return b.sendMessage(ctx, chatID, formatHistory(analyses), getReturnKeyboard())
}

func formatHistory(analyses []domain.Analysis) string {
	var message strings.Builder
	message.WriteString(fmt.Sprintf("📜 *Last %d analyses:*\n\n", len(analyses)))

	for i, a := range analyses {
		status := "✅"
		if a.Failed {
			status = "❌"
		}

		title := string(a.Source)
		if a.Name != "" {
			title += " " + a.Name
		}

		preview := strings.Join(strings.Fields(a.Result), " ")
		if runes := []rune(preview); len(runes) > historyPreviewLength {
			preview = string(runes[:historyPreviewLength]) + "…"
		}

		message.WriteString(fmt.Sprintf("%d\\. %s *%s* %s\n%s\n\n",
			i+1,
			status,
			markdown.EscapeV2(title),
			markdown.EscapeV2(a.CreatedAt.UTC().Format(historyTimeLayout)),
			markdown.EscapeV2(preview),
		))
	}

	return strings.TrimRight(message.String(), "\n")
}
