package acquire

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"pdfsum/internal/domain"
)

const pdfMIMEType = "application/pdf"

// File is an uploaded document and its name.
type File struct {
	Name string
	Data []byte
}

// BatchDocument is the outcome of extracting one file of a batch.
type BatchDocument struct {
	Name     string
	Document domain.Document
	Err      error
}

// FromPDFBytes sniffs data and extracts it as a PDF.
func FromPDFBytes(name string, data []byte) (domain.Document, error) {
	if !mimetype.Detect(data).Is(pdfMIMEType) {
		return domain.Document{}, fmt.Errorf("%w: %s is not a PDF document", ErrPDFParse, name)
	}

	return FromPDF(name, bytes.NewReader(data), int64(len(data)))
}

// FromPDF joins the text of every page with newlines.
func FromPDF(name string, r io.ReaderAt, size int64) (doc domain.Document, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			doc = domain.Document{}
			err = fmt.Errorf("%w: %s: %v", ErrPDFParse, name, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %s: open reader: %w", ErrPDFParse, name, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			return domain.Document{}, fmt.Errorf("%w: %s: page %d: %w", ErrPDFParse, name, i, pageErr)
		}

		b.WriteString(pageText)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(norm.NFC.String(b.String()))
	if text == "" {
		return domain.Document{}, fmt.Errorf("%s: no extractable text: %w", name, ErrEmptyInput)
	}

	return domain.Document{
		Text:     text,
		Source:   domain.SourcePDF,
		Name:     name,
		Language: detectLanguage(text),
	}, nil
}

// FromPDFBatch extracts every file independently; one failure never stops the rest.
func FromPDFBatch(files []File) []BatchDocument {
	out := make([]BatchDocument, 0, len(files))

	for _, f := range files {
		doc, err := FromPDFBytes(f.Name, f.Data)
		out = append(out, BatchDocument{Name: f.Name, Document: doc, Err: err})
	}

	return out
}
