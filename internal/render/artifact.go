package render

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"pdfsum/internal/domain"
)

const (
	BatchArtifactName  = "batch_results.txt"
	SingleArtifactName = "analysis_result.txt"
	PDFReportName      = "analysis_report.pdf"
)

// BatchArtifact joins one "=== name ===" block per item, in input order.
func BatchArtifact(items []domain.BatchItem) string {
	blocks := lo.Map(items, func(item domain.BatchItem, _ int) string {
		return "=== " + item.Name + " ===\n" + item.Result
	})

	return strings.Join(blocks, "\n\n")
}

// SingleArtifact is the analysis text followed by the frequency table as CSV.
func SingleArtifact(result string, table domain.FrequencyTable) string {
	return result + "\n\n" + table.CSV()
}

func FrequencyTableText(table domain.FrequencyTable) string {
	var b strings.Builder

	tw := tablewriter.NewWriter(&b)
	tw.SetHeader([]string{"Word", "Count"})
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	tw.AppendBulk(lo.Map(table, func(wc domain.WordCount, _ int) []string {
		return []string{wc.Token, strconv.Itoa(wc.Count)}
	}))
	tw.Render()

	return b.String()
}
