package acquire_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"pdfsum/internal/acquire"
	"pdfsum/internal/domain"
)

func TestFromText(t *testing.T) {
	if _, err := acquire.FromText(""); !errors.Is(err, acquire.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	blank, err := acquire.FromText(" \n\t")
	if err != nil {
		t.Fatalf("expected blank text to be accepted, got %v", err)
	}
	if blank.Text != " \n\t" {
		t.Fatalf("expected blank text unchanged, got %q", blank.Text)
	}

	doc, err := acquire.FromText("hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != "hello world" {
		t.Fatalf("expected text unchanged, got %q", doc.Text)
	}
	if doc.Source != domain.SourceText {
		t.Fatalf("unexpected source: %q", doc.Source)
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{"https://example.com", "http://example.com/a?b=c", "  https://example.com/x  "}
	for _, raw := range valid {
		if _, err := acquire.ValidateURL(raw); err != nil {
			t.Fatalf("expected %q to be valid, got %v", raw, err)
		}
	}

	invalid := []string{"not a url", "example.com", "mailto:someone@example.com", "https://", "::"}
	for _, raw := range invalid {
		if _, err := acquire.ValidateURL(raw); !errors.Is(err, acquire.ErrInvalidURL) {
			t.Fatalf("expected ErrInvalidURL for %q, got %v", raw, err)
		}
	}
}

func TestFromPDFBytesRejectsNonPDF(t *testing.T) {
	_, err := acquire.FromPDFBytes("notes.pdf", []byte("definitely not a pdf"))
	if !errors.Is(err, acquire.ErrPDFParse) {
		t.Fatalf("expected ErrPDFParse, got %v", err)
	}
}

func TestFromPDFBytesRejectsTruncatedPDF(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog")

	_, err := acquire.FromPDFBytes("broken.pdf", data)
	if !errors.Is(err, acquire.ErrPDFParse) {
		t.Fatalf("expected ErrPDFParse, got %v", err)
	}
}

func TestFromPDFBytesExtractsText(t *testing.T) {
	data := samplePDF(t, "Hello", "Second")

	doc, err := acquire.FromPDFBytes("sample.pdf", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(doc.Text, "Hello") || !strings.Contains(doc.Text, "Second") {
		t.Fatalf("expected text from both pages, got %q", doc.Text)
	}
	if doc.Text != strings.TrimSpace(doc.Text) {
		t.Fatalf("expected trimmed text, got %q", doc.Text)
	}
	if doc.Name != "sample.pdf" || doc.Source != domain.SourcePDF {
		t.Fatalf("unexpected document metadata: %+v", doc)
	}
}

func TestFromPDFBatchKeepsGoingAfterFailures(t *testing.T) {
	files := []acquire.File{
		{Name: "b.pdf", Data: []byte("corrupt")},
		{Name: "a.pdf", Data: samplePDF(t, "Valid")},
		{Name: "c.pdf", Data: nil},
	}

	got := acquire.FromPDFBatch(files)
	if len(got) != len(files) {
		t.Fatalf("expected %d results, got %d", len(files), len(got))
	}

	for i, f := range files {
		if got[i].Name != f.Name {
			t.Fatalf("expected order to be preserved, got %q at %d", got[i].Name, i)
		}
	}

	if !errors.Is(got[0].Err, acquire.ErrPDFParse) {
		t.Fatalf("expected corrupt file to fail, got %v", got[0].Err)
	}
	if got[1].Err != nil || !strings.Contains(got[1].Document.Text, "Valid") {
		t.Fatalf("expected valid file to be extracted, got %+v", got[1])
	}
	if got[2].Err == nil {
		t.Fatalf("expected empty file to fail")
	}
}

func samplePDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 14)
	for _, text := range pages {
		pdf.AddPage()
		pdf.Cell(40, 10, text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("render sample PDF: %v", err)
	}

	return buf.Bytes()
}
