package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"pdfsum/internal/domain"
	"pdfsum/internal/pipeline"
	"pdfsum/internal/ratelimiter"
)

const (
	updateProcessingTimeout = 10 * time.Minute
	downloadTimeout         = time.Minute
	historyLimit            = 10
)

// sender is the part of the Telegram client the handlers use.
type sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *tgbot.SendPhotoParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *tgbot.SendDocumentParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *tgbot.SendChatActionParams) (bool, error)
	DeleteMessage(ctx context.Context, params *tgbot.DeleteMessageParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error)
	GetFile(ctx context.Context, params *tgbot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type pacer interface {
	Wait(ctx context.Context, chatID int64) error
}

type URLFetcher interface {
	FromURL(ctx context.Context, rawURL string) (domain.Document, error)
}

type History interface {
	GetRecentAnalyses(ctx context.Context, chatID int64, limit int) ([]domain.Analysis, error)
}

// SummarizerFunc returns the summarizer for a chat's API key. An empty key
// means the configured default.
type SummarizerFunc func(ctx context.Context, apiKey string) pipeline.Summarizer

type Deps struct {
	Fetcher      URLFetcher
	History      History
	Pipeline     *pipeline.Pipeline
	Summarizers  SummarizerFunc
	AllowedUsers []int64
}

type Bot struct {
	tg           *tgbot.Bot
	api          sender
	rateLimiter  pacer
	fetcher      URLFetcher
	history      History
	pipeline     *pipeline.Pipeline
	summarizers  SummarizerFunc
	sessions     *sessions
	allowedUsers []int64
	httpClient   *http.Client
	menuKeyboard [][]models.InlineKeyboardButton
	log          *slog.Logger
}

func New(token string, deps Deps, log *slog.Logger) (*Bot, error) {
	b := newBot(nil, deps, log)

	tg, err := tgbot.New(strings.TrimSpace(token),
		tgbot.WithDefaultHandler(b.defaultHandler),
		tgbot.WithMiddlewares(b.allowedUsersMiddleware),
		tgbot.WithErrorsHandler(func(err error) {
			log.Error("Failed to get updates",
				"error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	b.tg = tg
	b.api = tg

	return b, nil
}

func newBot(api sender, deps Deps, log *slog.Logger) *Bot {
	return &Bot{
		api:          api,
		rateLimiter:  ratelimiter.New(log),
		fetcher:      deps.Fetcher,
		history:      deps.History,
		pipeline:     deps.Pipeline,
		summarizers:  deps.Summarizers,
		sessions:     newSessions(),
		allowedUsers: deps.AllowedUsers,
		httpClient:   &http.Client{Timeout: downloadTimeout},
		menuKeyboard: getMenuKeyboard(),
		log:          log,
	}
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started")
	b.tg.Start(ctx)
	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) defaultHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.handleUpdate(ctx, update)
}

func (b *Bot) allowedUsersMiddleware(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, tg *tgbot.Bot, update *models.Update) {
		userID, username := updateUser(update)
		if !b.userAllowed(userID) {
			b.log.DebugContext(ctx, "User is not allowed",
				"userID", userID,
				"username", username)

			return
		}

		next(ctx, tg, update)
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func (b *Bot) handleUpdate(ctx context.Context, update *models.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := update.Message
		userID, _ := updateUser(update)

		if err := b.handleMessage(updateCtx, message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", message.Chat.ID,
				"userID", userID,
				"chatType", message.Chat.Type,
				"messageID", message.ID)
		}

	case update.CallbackQuery != nil:
		callback := update.CallbackQuery

		if err := b.handleCallbackQuery(updateCtx, callback); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", callbackChatID(callback),
				"userID", callback.From.ID,
				"data", callback.Data)
		}
	}
}

func updateUser(update *models.Update) (int64, string) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.From.Username
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, update.CallbackQuery.From.Username
	default:
		return 0, ""
	}
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	if cb != nil && cb.Message.Message != nil {
		return cb.Message.Message.Chat.ID
	}

	return 0
}

func (b *Bot) summarizerFor(ctx context.Context, chatID int64) pipeline.Summarizer {
	return b.summarizers(ctx, b.sessions.key(chatID))
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(ctx, &tgbot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", withoutURL(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", withoutURL(err))
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", withoutURL(err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"fileID", fileID)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, errDocumentTooLarge
	}

	return data, nil
}

// withoutURL drops the request URL from transport errors. Telegram method and
// file URLs carry the bot token.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}

	return err
}
