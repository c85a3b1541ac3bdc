package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jung-kurt/gofpdf"

	"pdfsum/internal/domain"
	"pdfsum/internal/pipeline"
	"pdfsum/internal/summarizer"
)

type sentFile struct {
	name    string
	data    []byte
	caption string
}

type fakeSender struct {
	mu        sync.Mutex
	messages  []*tgbot.SendMessageParams
	photos    []sentFile
	documents []sentFile
	deleted   []int
	answered  []string
	files     map[string]string
}

func (f *fakeSender) SendMessage(_ context.Context, params *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, params)
	return &models.Message{}, nil
}

func (f *fakeSender) SendPhoto(_ context.Context, params *tgbot.SendPhotoParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.photos = append(f.photos, readUpload(params.Photo, params.Caption))
	return &models.Message{}, nil
}

func (f *fakeSender) SendDocument(_ context.Context, params *tgbot.SendDocumentParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.documents = append(f.documents, readUpload(params.Document, params.Caption))
	return &models.Message{}, nil
}

func (f *fakeSender) SendChatAction(context.Context, *tgbot.SendChatActionParams) (bool, error) {
	return true, nil
}

func (f *fakeSender) DeleteMessage(_ context.Context, params *tgbot.DeleteMessageParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, params.MessageID)
	return true, nil
}

func (f *fakeSender) AnswerCallbackQuery(_ context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.answered = append(f.answered, params.CallbackQueryID)
	return true, nil
}

func (f *fakeSender) GetFile(_ context.Context, params *tgbot.GetFileParams) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[params.FileID]; !ok {
		return nil, errors.New("file not found")
	}
	return &models.File{FileID: params.FileID, FilePath: params.FileID}, nil
}

func (f *fakeSender) FileDownloadLink(file *models.File) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.files[file.FileID]
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

func readUpload(file models.InputFile, caption string) sentFile {
	upload, ok := file.(*models.InputFileUpload)
	if !ok {
		return sentFile{caption: caption}
	}

	data, _ := io.ReadAll(upload.Data)
	return sentFile{name: upload.Filename, data: data, caption: caption}
}

type noWait struct{}

func (noWait) Wait(context.Context, int64) error { return nil }

type stubFetcher struct {
	urls []string
	doc  domain.Document
	err  error
}

func (s *stubFetcher) FromURL(_ context.Context, rawURL string) (domain.Document, error) {
	s.urls = append(s.urls, rawURL)
	return s.doc, s.err
}

type stubHistory struct {
	analyses []domain.Analysis
}

func (s *stubHistory) GetRecentAnalyses(context.Context, int64, int) ([]domain.Analysis, error) {
	return s.analyses, nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	_, text, _ := strings.Cut(prompt, "Text:\n")
	return "Summary of: " + text, nil
}

type testBot struct {
	*Bot
	api     *fakeSender
	fetcher *stubFetcher
	keys    []string
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()

	api := &fakeSender{files: make(map[string]string)}
	fetcher := &stubFetcher{}
	tb := &testBot{api: api, fetcher: fetcher}

	client := summarizer.NewClient(echoGenerator{}, slog.Default())
	tb.Bot = newBot(api, Deps{
		Fetcher:  fetcher,
		History:  &stubHistory{},
		Pipeline: pipeline.New(nil, slog.Default()),
		Summarizers: func(_ context.Context, apiKey string) pipeline.Summarizer {
			tb.keys = append(tb.keys, apiKey)
			return client
		},
	}, slog.Default())
	tb.rateLimiter = noWait{}

	return tb
}

func textUpdate(chatID int64, messageID int, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   messageID,
		From: &models.User{ID: chatID},
		Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
		Text: text,
	}}
}

func documentUpdate(chatID int64, name, fileID string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   1,
		From: &models.User{ID: chatID},
		Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
		Document: &models.Document{
			FileID:   fileID,
			FileName: name,
			MimeType: "application/pdf",
		},
	}}
}

func samplePDF(t *testing.T, text string) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(40, 10, text)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

func serveFiles(t *testing.T, api *fakeSender, files map[string][]byte) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	api.mu.Lock()
	defer api.mu.Unlock()
	for id := range files {
		api.files[id] = srv.URL + "/" + id
	}
}

func TestTextMessageSendsFullReport(t *testing.T) {
	tb := newTestBot(t)

	tb.handleUpdate(context.Background(), textUpdate(10, 1, "alpha beta alpha. gamma!"))

	texts := tb.api.texts()
	if len(texts) != 1 {
		t.Fatalf("expected one text message, got %q", texts)
	}
	if texts[0] != `Summary of: alpha beta alpha\. gamma\!` {
		t.Fatalf("expected escaped result, got %q", texts[0])
	}
	if len(tb.api.photos) != 2 {
		t.Fatalf("expected word cloud and bar chart, got %d photos", len(tb.api.photos))
	}
	if len(tb.api.documents) != 2 {
		t.Fatalf("expected text and pdf artifacts, got %d documents", len(tb.api.documents))
	}

	artifact := string(tb.api.documents[0].data)
	if !strings.HasPrefix(artifact, "Summary of: alpha beta alpha. gamma!\n\nword,count\n") {
		t.Fatalf("unexpected artifact: %q", artifact)
	}
	if !bytes.HasPrefix(tb.api.documents[1].data, []byte("%PDF-")) {
		t.Fatalf("expected a PDF report")
	}
}

func TestURLMessageUsesFetcher(t *testing.T) {
	tb := newTestBot(t)
	tb.fetcher.doc = domain.Document{Text: "page words", Source: domain.SourceURL, Name: "https://example.com/a"}

	tb.handleUpdate(context.Background(), textUpdate(10, 1, "https://example.com/a"))

	if len(tb.fetcher.urls) != 1 || tb.fetcher.urls[0] != "https://example.com/a" {
		t.Fatalf("unexpected fetched urls: %v", tb.fetcher.urls)
	}
	if texts := tb.api.texts(); len(texts) == 0 || !strings.Contains(texts[0], "page words") {
		t.Fatalf("expected page analysis, got %q", texts)
	}
}

func TestURLFetchFailureIsReported(t *testing.T) {
	tb := newTestBot(t)
	tb.fetcher.err = errors.New("fetch failed: 404 Not Found")

	tb.handleUpdate(context.Background(), textUpdate(10, 1, "https://example.com/missing"))

	texts := tb.api.texts()
	if len(texts) != 1 || !strings.HasPrefix(texts[0], "❌ Failed to fetch URL") {
		t.Fatalf("expected failure message, got %q", texts)
	}
	if len(tb.api.photos) != 0 {
		t.Fatalf("expected no report after fetch failure")
	}
}

func TestKeyCommandDeletesMessageAndOverridesKey(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.handleUpdate(ctx, textUpdate(10, 77, "/key secret-key"))

	if len(tb.api.deleted) != 1 || tb.api.deleted[0] != 77 {
		t.Fatalf("expected the key message to be deleted, got %v", tb.api.deleted)
	}

	tb.handleUpdate(ctx, textUpdate(10, 78, "some text"))
	tb.handleUpdate(ctx, textUpdate(11, 79, "other chat"))

	if len(tb.keys) != 2 || tb.keys[0] != "secret-key" || tb.keys[1] != "" {
		t.Fatalf("unexpected keys: %v", tb.keys)
	}

	tb.handleUpdate(ctx, textUpdate(10, 80, "/key"))
	if got := tb.sessions.key(10); got != "" {
		t.Fatalf("expected key to be reset, got %q", got)
	}
}

func TestBatchFlow(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	serveFiles(t, tb.api, map[string][]byte{
		"file-a": samplePDF(t, "Valid"),
		"file-b": []byte("%PDF-1.4 broken"),
	})

	tb.handleUpdate(ctx, textUpdate(10, 1, "/batch"))
	tb.handleUpdate(ctx, documentUpdate(10, "a.pdf", "file-a"))
	tb.handleUpdate(ctx, documentUpdate(10, "b.pdf", "file-b"))
	tb.handleUpdate(ctx, textUpdate(10, 2, "/done"))

	if len(tb.api.documents) != 1 {
		t.Fatalf("expected one batch artifact, got %d", len(tb.api.documents))
	}

	artifact := tb.api.documents[0]
	if artifact.name != "batch_results.txt" {
		t.Fatalf("unexpected artifact name: %q", artifact.name)
	}
	body := string(artifact.data)
	for _, name := range []string{"a.pdf", "b.pdf"} {
		if strings.Count(body, "=== "+name+" ===") != 1 {
			t.Fatalf("expected %s header once in %q", name, body)
		}
	}
	if !strings.Contains(body, "=== a.pdf ===\nSummary of: ") || !strings.Contains(body, "Valid") {
		t.Fatalf("expected a.pdf to be analysed, got %q", body)
	}
	if !strings.Contains(body, "=== b.pdf ===\nprocessing failed: ") {
		t.Fatalf("expected b.pdf to fail, got %q", body)
	}
	if artifact.caption != "Batch is done: 1 analysed, 1 failed." {
		t.Fatalf("unexpected caption: %q", artifact.caption)
	}
	if tb.sessions.collecting(10) {
		t.Fatalf("expected batch to be closed")
	}
}

func TestDoneWithoutBatch(t *testing.T) {
	tb := newTestBot(t)

	tb.handleUpdate(context.Background(), textUpdate(10, 1, "/done"))

	if texts := tb.api.texts(); len(texts) != 1 || !strings.Contains(texts[0], "no open batch") {
		t.Fatalf("unexpected reply: %q", texts)
	}
}

func TestNonPDFDocumentIsRejected(t *testing.T) {
	tb := newTestBot(t)
	update := documentUpdate(10, "notes.txt", "file-x")
	update.Message.Document.MimeType = "text/plain"

	tb.handleUpdate(context.Background(), update)

	if texts := tb.api.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Only PDF") {
		t.Fatalf("unexpected reply: %q", texts)
	}
}

func TestHistoryCommand(t *testing.T) {
	tb := newTestBot(t)
	tb.history = &stubHistory{analyses: []domain.Analysis{
		{
			Source:    domain.SourcePDF,
			Name:      "paper.pdf",
			Result:    "Summary: fine.",
			CreatedAt: time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC),
		},
		{
			Source:    domain.SourceText,
			Result:    "❌ Analysis failed: boom",
			Failed:    true,
			CreatedAt: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		},
	}}

	tb.handleUpdate(context.Background(), textUpdate(10, 1, "/history"))

	texts := tb.api.texts()
	if len(texts) != 1 {
		t.Fatalf("expected one message, got %q", texts)
	}
	for _, want := range []string{"*Last 2 analyses:*", `pdf paper\.pdf`, `2025\-05\-01 08:30`, `Summary: fine\.`, "❌"} {
		if !strings.Contains(texts[0], want) {
			t.Fatalf("expected %q in %q", want, texts[0])
		}
	}
}

func TestCallbackQueryIsAnswered(t *testing.T) {
	tb := newTestBot(t)

	tb.handleUpdate(context.Background(), &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-1",
		From: models.User{ID: 10},
		Data: callbackBatch,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{Chat: models.Chat{ID: 10}},
		},
	}})

	if len(tb.api.answered) != 1 || tb.api.answered[0] != "cb-1" {
		t.Fatalf("expected callback to be answered, got %v", tb.api.answered)
	}
	if !tb.sessions.collecting(10) {
		t.Fatalf("expected batch to be started")
	}
}

func TestAllowedUsersMiddleware(t *testing.T) {
	tb := newTestBot(t)
	tb.allowedUsers = []int64{1}

	called := 0
	handler := tb.allowedUsersMiddleware(func(context.Context, *tgbot.Bot, *models.Update) {
		called++
	})

	handler(context.Background(), nil, textUpdate(2, 1, "hi"))
	handler(context.Background(), nil, textUpdate(1, 1, "hi"))

	if called != 1 {
		t.Fatalf("expected only the allowed user to pass, got %d calls", called)
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in, command, args string
	}{
		{"/start", "/start", ""},
		{"/key  abc ", "/key", "abc"},
		{"/Batch@pdf_bot", "/batch", ""},
		{"plain text", "", ""},
	}

	for _, c := range cases {
		command, args := splitCommand(strings.TrimSpace(c.in))
		if command != c.command || args != c.args {
			t.Fatalf("splitCommand(%q) = %q, %q", c.in, command, args)
		}
	}
}

func TestIsSingleURL(t *testing.T) {
	if !isSingleURL("https://example.com/path?q=1") {
		t.Fatalf("expected a URL")
	}
	if isSingleURL("read https://example.com please") {
		t.Fatalf("expected text around a URL to be treated as text")
	}
	if isSingleURL("just words") {
		t.Fatalf("expected plain text")
	}
}

func TestDownloadFailureDoesNotExposeToken(t *testing.T) {
	tb := newTestBot(t)

	var logs bytes.Buffer
	tb.log = slog.New(slog.NewJSONHandler(&logs, nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	const token = "123456:SECRET-TOKEN"
	tb.api.files["file-1"] = srv.URL + "/file/bot" + token + "/documents/file_1.pdf"

	tb.handleUpdate(context.Background(), documentUpdate(10, "a.pdf", "file-1"))

	texts := tb.api.texts()
	if len(texts) != 1 || !strings.HasPrefix(texts[0], "❌ Failed to download document") {
		t.Fatalf("expected download failure message, got %q", texts)
	}
	for _, text := range texts {
		if strings.Contains(text, "SECRET") || strings.Contains(text, "/file/bot") {
			t.Fatalf("message exposes the file link: %q", text)
		}
	}
	if strings.Contains(logs.String(), "SECRET") {
		t.Fatalf("log exposes the file link: %s", logs.String())
	}
}

func TestWithoutURL(t *testing.T) {
	inner := errors.New("connection reset")
	err := withoutURL(&url.Error{Op: "Get", URL: "https://api.telegram.org/bot1:T/getFile", Err: inner})

	if !errors.Is(err, inner) {
		t.Fatalf("expected the cause to be kept, got %v", err)
	}
	if err.Error() != "get: connection reset" {
		t.Fatalf("unexpected error text: %q", err.Error())
	}

	plain := errors.New("file not found")
	if got := withoutURL(plain); got != plain {
		t.Fatalf("expected other errors to pass through, got %v", got)
	}
}
