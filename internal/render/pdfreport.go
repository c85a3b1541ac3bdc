package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"pdfsum/internal/domain"
)

const (
	pageContentWidth = 180.0
	chartImageWidth  = 170.0
)

// PDFReport lays out the analysis, the frequency table and the charts that
// were rendered. Text is transliterated to cp1252 for the core fonts.
func PDFReport(title string, report domain.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")

	if report.Document.Name != "" || report.Document.Language != "" {
		pdf.SetFont("Helvetica", "I", 9)
		meta := string(report.Document.Source)
		if report.Document.Name != "" {
			meta += " | " + report.Document.Name
		}
		if report.Document.Language != "" {
			meta += " | " + report.Document.Language
		}
		pdf.CellFormat(0, 6, tr(meta), "", 1, "L", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5, tr(report.Result), "", "L", false)

	if len(report.Frequencies) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Word frequency", "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(pageContentWidth*0.7, 6, "Word", "1", 0, "L", false, 0, "")
		pdf.CellFormat(pageContentWidth*0.3, 6, "Count", "1", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		for _, wc := range report.Frequencies {
			pdf.CellFormat(pageContentWidth*0.7, 6, tr(wc.Token), "1", 0, "L", false, 0, "")
			pdf.CellFormat(pageContentWidth*0.3, 6, strconv.Itoa(wc.Count), "1", 1, "R", false, 0, "")
		}
	}

	addImage(pdf, "barchart", report.BarChart)
	addImage(pdf, "wordcloud", report.WordCloud)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func addImage(pdf *gofpdf.Fpdf, name string, png []byte) {
	if len(png) == 0 {
		return
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	if pdf.Err() {
		pdf.ClearError()
		return
	}
	if info == nil {
		return
	}

	pdf.AddPage()
	pdf.ImageOptions(name, 15, 20, chartImageWidth, 0, false, opts, 0, "")
}
