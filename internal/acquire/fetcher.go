package acquire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"pdfsum/internal/domain"
)

const (
	FetchTimeout        = 10 * time.Second
	DefaultMaxBodyBytes = 20 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
)

type Fetcher struct {
	client       *http.Client
	feedParser   *gofeed.Parser
	maxBodyBytes int64
	log          *slog.Logger
}

func NewFetcher(maxBodyBytes int64, log *slog.Logger) *Fetcher {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return &Fetcher{
		client:       &http.Client{Timeout: FetchTimeout},
		feedParser:   gofeed.NewParser(),
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no scheme or host", ErrInvalidURL, raw)
	}

	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	return u, nil
}

// FromURL downloads a page and returns its visible text. PDF and feed
// responses are detected by content and extracted accordingly.
func (f *Fetcher) FromURL(ctx context.Context, rawURL string) (domain.Document, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return domain.Document{}, err
	}
	pageURL := u.String()

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: create request: %w", ErrFetch, err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req) //nolint:gosec // URL is validated above.
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: do request: %w", ErrFetch, err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", pageURL,
				"operation", "FromURL")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.Document{}, fmt.Errorf("%w: unexpected status: %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return domain.Document{}, fmt.Errorf("%w: body exceeds %d bytes", ErrFetch, f.maxBodyBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	detected := mimetype.Detect(body)

	f.log.DebugContext(ctx, "Page is fetched",
		"url", pageURL,
		"contentType", contentType,
		"detectedType", detected.String(),
		"bodyLen", len(body))

	var text string

	switch {
	case detected.Is(pdfMIMEType):
		doc, pdfErr := FromPDF(pageURL, bytes.NewReader(body), int64(len(body)))
		if pdfErr != nil {
			return domain.Document{}, pdfErr
		}
		text = doc.Text
	case isFeed(detected, contentType):
		text, err = f.feedText(body)
		if err != nil {
			return domain.Document{}, err
		}
	default:
		text, err = HTMLText(bytes.NewReader(body), contentType)
		if err != nil {
			return domain.Document{}, err
		}
	}

	if text == "" {
		return domain.Document{}, fmt.Errorf("%s: no visible text: %w", pageURL, ErrEmptyInput)
	}

	return domain.Document{
		Text:     text,
		Source:   domain.SourceURL,
		Name:     pageURL,
		Language: detectLanguage(text),
	}, nil
}

// HTMLText drops script and style elements and joins the remaining text
// nodes with single spaces.
func HTMLText(r io.Reader, contentType string) (string, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: decode charset: %w", ErrFetch, err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("%w: create document from reader: %w", ErrFetch, err)
	}

	doc.Find("script, style").Remove()

	var parts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}

func isFeed(detected *mimetype.MIME, contentType string) bool {
	if detected.Is("application/rss+xml") || detected.Is("application/atom+xml") {
		return true
	}

	ct := strings.ToLower(contentType)

	return strings.Contains(ct, "rss+xml") ||
		strings.Contains(ct, "atom+xml") ||
		strings.Contains(ct, "feed+json")
}

func (f *Fetcher) feedText(body []byte) (string, error) {
	parsed, err := f.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: parse feed: %w", ErrFetch, err)
	}

	parts := []string{parsed.Title, parsed.Description}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		parts = append(parts, item.Title)

		description := item.Description
		if description == "" {
			description = item.Content
		}
		if description != "" {
			if text, htmlErr := HTMLText(strings.NewReader(description), "text/html; charset=utf-8"); htmlErr == nil {
				description = text
			}
			parts = append(parts, description)
		}
	}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}
