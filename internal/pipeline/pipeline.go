package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"pdfsum/internal/acquire"
	"pdfsum/internal/analysis"
	"pdfsum/internal/domain"
	"pdfsum/internal/render"
	"pdfsum/internal/summarizer"
)

const failedItemPrefix = "processing failed: "

type Summarizer interface {
	Analyze(ctx context.Context, text string) summarizer.Result
}

type Store interface {
	AddAnalysis(ctx context.Context, a *domain.Analysis) error
	GetAnalysisByHash(ctx context.Context, textHash string) (*domain.Analysis, error)
}

type Pipeline struct {
	store Store
	log   *slog.Logger
}

// New builds a pipeline. A nil store disables history.
func New(store Store, log *slog.Logger) *Pipeline {
	return &Pipeline{store: store, log: log}
}

// Analyze summarizes doc and renders its charts. Render and history failures
// are logged and never fail the report.
func (p *Pipeline) Analyze(
	ctx context.Context,
	s Summarizer,
	chatID int64,
	doc domain.Document,
) domain.Report {
	report := domain.Report{
		Document:    doc,
		Frequencies: analysis.TopFrequencies(doc.Text, analysis.DefaultTopN),
	}

	report.Result, report.Failed = p.summarize(ctx, s, chatID, doc)

	cloud, err := render.WordCloud(analysis.TopFrequencies(doc.Text, analysis.WordCloudTopN))
	if err != nil {
		p.log.WarnContext(ctx, "Failed to render word cloud",
			"error", err,
			"chatID", chatID)
	}
	report.WordCloud = cloud

	chart, err := render.BarChart(report.Frequencies)
	if err != nil {
		p.log.WarnContext(ctx, "Failed to render bar chart",
			"error", err,
			"chatID", chatID)
	}
	report.BarChart = chart

	return report
}

// AnalyzeBatch processes docs one after another. Items whose extraction failed
// are reported without calling the model. onItem, when set, is called after
// every item.
func (p *Pipeline) AnalyzeBatch(
	ctx context.Context,
	s Summarizer,
	chatID int64,
	docs []acquire.BatchDocument,
	onItem func(done, total int, item domain.BatchItem),
) []domain.BatchItem {
	names := UniqueNames(docs)
	items := make([]domain.BatchItem, 0, len(docs))

	for i, doc := range docs {
		item := domain.BatchItem{Name: names[i]}

		switch {
		case doc.Err != nil:
			item.Result = failedItemPrefix + doc.Err.Error()
			item.Failed = true
		case ctx.Err() != nil:
			item.Result = failedItemPrefix + ctx.Err().Error()
			item.Failed = true
		default:
			item.Result, item.Failed = p.summarize(ctx, s, chatID, doc.Document)
		}

		if doc.Err != nil {
			p.log.WarnContext(ctx, "Failed to extract batch document",
				"error", doc.Err,
				"chatID", chatID,
				"name", doc.Name)
		}

		items = append(items, item)

		if onItem != nil {
			onItem(i+1, len(docs), item)
		}
	}

	return items
}

func (p *Pipeline) summarize(
	ctx context.Context,
	s Summarizer,
	chatID int64,
	doc domain.Document,
) (string, bool) {
	hash := summarizer.TextHash(doc.Text)

	if stored := p.storedResult(ctx, hash); stored != "" {
		p.record(ctx, chatID, doc, hash, stored, false)
		return stored, false
	}

	res := s.Analyze(ctx, doc.Text)
	failed := res.Err != nil

	p.record(ctx, chatID, doc, hash, res.Text, failed)

	return res.Text, failed
}

func (p *Pipeline) storedResult(ctx context.Context, hash string) string {
	if p.store == nil {
		return ""
	}

	prev, err := p.store.GetAnalysisByHash(ctx, hash)
	if err != nil {
		p.log.WarnContext(ctx, "Failed to look up stored analysis",
			"error", err,
			"textHash", hash)

		return ""
	}
	if prev == nil {
		return ""
	}

	return prev.Result
}

func (p *Pipeline) record(
	ctx context.Context,
	chatID int64,
	doc domain.Document,
	hash string,
	result string,
	failed bool,
) {
	if p.store == nil {
		return
	}

	err := p.store.AddAnalysis(ctx, &domain.Analysis{
		ChatID:   chatID,
		Source:   doc.Source,
		Name:     doc.Name,
		Language: doc.Language,
		TextHash: hash,
		Result:   result,
		Failed:   failed,
	})
	if err != nil {
		p.log.ErrorContext(ctx, "Failed to save analysis",
			"error", err,
			"chatID", chatID,
			"source", doc.Source)
	}
}

// UniqueNames returns one display name per document, suffixing repeats with
// " (2)", " (3)" and so on so that every name is distinct.
func UniqueNames(docs []acquire.BatchDocument) []string {
	seen := make(map[string]int, len(docs))
	taken := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		taken[doc.Name] = struct{}{}
	}

	names := make([]string, len(docs))
	for i, doc := range docs {
		seen[doc.Name]++
		if seen[doc.Name] == 1 {
			names[i] = doc.Name
			continue
		}

		n := seen[doc.Name]
		name := fmt.Sprintf("%s (%d)", doc.Name, n)
		for {
			if _, ok := taken[name]; !ok {
				break
			}
			n++
			name = fmt.Sprintf("%s (%d)", doc.Name, n)
		}

		seen[doc.Name] = n
		taken[name] = struct{}{}
		names[i] = name
	}

	return names
}
