package bot

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-telegram/bot/models"
	"mvdan.cc/xurls/v2"

	"pdfsum/internal/acquire"
	"pdfsum/internal/domain"
	"pdfsum/internal/markdown"
	"pdfsum/internal/render"
)

const (
	maxDocumentBytes = 20 << 20
	pdfMIMEType      = "application/pdf"
)

var errDocumentTooLarge = errors.New("document is too large")

//nolint:gochecknoglobals // Compiled once, never mutated.
var webURLRe = xurls.Strict()

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID

	if message.Document != nil {
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleDocument(ctx, message)
		})
	}

	text := strings.TrimSpace(message.Text)
	command, args := splitCommand(text)

	switch command {
	case "/start", "/help":
		return b.handleStartCommand(ctx, chatID)
	case "/menu":
		return b.handleMenuCommand(ctx, chatID)
	case "/key":
		return b.handleKeyCommand(ctx, message, args)
	case "/batch":
		return b.handleBatchCommand(ctx, chatID)
	case "/cancel":
		return b.handleCancelCommand(ctx, chatID)
	case "/history":
		return b.handleHistoryCommand(ctx, chatID)
	case "/done":
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleDoneCommand(ctx, chatID)
		})
	}

	if text == "" {
		return nil
	}

	return b.withSpinner(ctx, chatID, func() error {
		if isSingleURL(text) {
			return b.handleURL(ctx, chatID, text)
		}
		return b.handleText(ctx, chatID, text)
	})
}

// splitCommand returns the command without a @botname suffix and its arguments.
// Text that is not a command yields an empty command.
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	command, args, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")

	return strings.ToLower(command), strings.TrimSpace(args)
}

func isSingleURL(text string) bool {
	return webURLRe.FindString(text) == text
}

func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	doc, err := acquire.FromText(text)
	if err != nil {
		return b.replyFailure(ctx, chatID, "Failed to read text", err)
	}

	return b.analyzeAndSend(ctx, chatID, doc)
}

func (b *Bot) handleURL(ctx context.Context, chatID int64, rawURL string) error {
	doc, err := b.fetcher.FromURL(ctx, rawURL)
	if err != nil {
		return b.replyFailure(ctx, chatID, "Failed to fetch URL", err)
	}

	return b.analyzeAndSend(ctx, chatID, doc)
}

func (b *Bot) handleDocument(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID
	document := message.Document

	name := strings.TrimSpace(document.FileName)
	if name == "" {
		name = "document.pdf"
	}

	if document.MimeType != pdfMIMEType && !strings.EqualFold(path.Ext(name), ".pdf") {
		return b.sendMessage(ctx, chatID, "✖️ Only PDF documents are supported\\.", nil)
	}
	if document.FileSize > maxDocumentBytes {
		return b.replyFailure(ctx, chatID, "Failed to download document", errDocumentTooLarge)
	}

	data, err := b.download(ctx, document.FileID)
	if err != nil {
		return b.replyFailure(ctx, chatID, "Failed to download document", err)
	}

	if b.sessions.collecting(chatID) {
		n, ok := b.sessions.addToBatch(chatID, acquire.File{Name: name, Data: data})
		if !ok {
			return b.sendMessage(ctx, chatID,
				fmt.Sprintf("✖️ Batch is full \\(%d files\\)\\. Send /done\\.", maxBatchFiles),
				getBatchKeyboard())
		}

		return b.sendMessage(ctx, chatID,
			fmt.Sprintf("📎 Added %s \\(%d in batch\\)\\.", markdown.EscapeV2(name), n),
			getBatchKeyboard())
	}

	doc, err := acquire.FromPDFBytes(name, data)
	if err != nil {
		return b.replyFailure(ctx, chatID, "Failed to read PDF", err)
	}

	return b.analyzeAndSend(ctx, chatID, doc)
}

func (b *Bot) analyzeAndSend(ctx context.Context, chatID int64, doc domain.Document) error {
	report := b.pipeline.Analyze(ctx, b.summarizerFor(ctx, chatID), chatID, doc)

	return b.sendReport(ctx, chatID, report)
}

// sendReport sends the result text, the charts and the downloadable files.
// Every part is attempted even if an earlier one fails. Charts do not depend
// on the model, so they are sent for failed analyses too.
func (b *Bot) sendReport(ctx context.Context, chatID int64, report domain.Report) error {
	var errs []error

	if err := b.sendLongText(ctx, chatID, report.Result); err != nil {
		errs = append(errs, fmt.Errorf("send result: %w", err))
	}

	if len(report.WordCloud) > 0 {
		if err := b.sendPhoto(ctx, chatID, "wordcloud.png", report.WordCloud, "Word cloud"); err != nil {
			errs = append(errs, fmt.Errorf("send word cloud: %w", err))
		}
	}

	if len(report.BarChart) > 0 {
		if err := b.sendPhoto(ctx, chatID, "frequency.png", report.BarChart, "Top words"); err != nil {
			errs = append(errs, fmt.Errorf("send bar chart: %w", err))
		}
	}

	artifact := render.SingleArtifact(report.Result, report.Frequencies)
	if err := b.sendDocument(ctx, chatID, render.SingleArtifactName, []byte(artifact), ""); err != nil {
		errs = append(errs, fmt.Errorf("send artifact: %w", err))
	}

	pdfReport, err := render.PDFReport("Analysis report", report)
	if err != nil {
		errs = append(errs, fmt.Errorf("render pdf report: %w", err))
	} else if err = b.sendDocument(ctx, chatID, render.PDFReportName, pdfReport, ""); err != nil {
		errs = append(errs, fmt.Errorf("send pdf report: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) replyFailure(ctx context.Context, chatID int64, what string, err error) error {
	errs := []error{fmt.Errorf("%s: %w", strings.ToLower(what), err)}

	text := fmt.Sprintf("❌ %s: %s", markdown.EscapeV2(what), markdown.EscapeV2(err.Error()))
	if sendErr := b.sendMessage(ctx, chatID, text, nil); sendErr != nil {
		errs = append(errs, fmt.Errorf("send message: %w", sendErr))
	}

	return errors.Join(errs...)
}
