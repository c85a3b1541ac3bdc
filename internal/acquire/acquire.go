package acquire

import (
	"errors"
	"fmt"

	"github.com/abadojack/whatlanggo"

	"pdfsum/internal/domain"
)

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrInvalidURL = errors.New("invalid URL")
	ErrFetch      = errors.New("fetch failed")
	ErrPDFParse   = errors.New("PDF parse failed")
)

// FromText returns s unchanged unless it is empty.
func FromText(s string) (domain.Document, error) {
	if s == "" {
		return domain.Document{}, fmt.Errorf("text: %w", ErrEmptyInput)
	}

	return domain.Document{
		Text:     s,
		Source:   domain.SourceText,
		Language: detectLanguage(s),
	}, nil
}

// detectLanguage returns an ISO 639-1 code or an empty string when unsure.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}

	return info.Lang.Iso6391()
}
