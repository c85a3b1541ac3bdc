package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/rs/zerolog"
	"gopkg.in/alecthomas/kingpin.v2"

	"pdfsum/internal/acquire"
	"pdfsum/internal/config"
	"pdfsum/internal/domain"
	"pdfsum/internal/pipeline"
	"pdfsum/internal/render"
	"pdfsum/internal/summarizer"
)

const (
	wordCloudFileName = "wordcloud.png"
	barChartFileName  = "frequency.png"
	outputFileMode    = 0o644
)

//nolint:gochecknoglobals // Flag definitions.
var (
	app  = kingpin.New("analyze", "Summarize text, a web page or PDF documents and render word statistics.")
	args = struct {
		text     *string
		url      *string
		pdfs     *[]string
		out      *string
		maxBytes *int64
		debug    *bool
	}{
		text:     app.Flag("text", "text to analyze, - reads stdin").Short('t').String(),
		url:      app.Flag("url", "web page, feed or PDF URL to analyze").Short('u').String(),
		pdfs:     app.Flag("pdf", "PDF file to analyze, repeat for a batch").Short('p').ExistingFiles(),
		out:      app.Flag("out", "directory for result files").Short('o').Default(".").String(),
		maxBytes: app.Flag("max-body-bytes", "limit for fetched bodies").Default("20971520").Int64(),
		debug:    app.Flag("debug", "verbose logging").Bool(),
	}
)

func main() {
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Both loggers share one field layout so the console writer renders either.
	zerolog.MessageFieldName = slog.MessageKey
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	level := slog.LevelInfo
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *args.debug {
		level = slog.LevelDebug
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cliLog := zerolog.New(console).With().Timestamp().Logger()
	log := slog.New(slog.NewJSONHandler(console, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cliLog); err != nil {
		cliLog.Error().Err(err).Msg("Failed to analyze")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cliLog zerolog.Logger) error {
	inputs := 0
	for _, set := range []bool{*args.text != "", *args.url != "", len(*args.pdfs) > 0} {
		if set {
			inputs++
		}
	}
	if inputs != 1 {
		app.FatalUsage("exactly one of --text, --url or --pdf is required\n")
	}

	if err := os.MkdirAll(*args.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	client, err := newClient(ctx, log, cliLog)
	if err != nil {
		return err
	}
	p := pipeline.New(nil, log)

	if len(*args.pdfs) > 1 {
		return runBatch(ctx, p, client, cliLog)
	}

	doc, err := acquireDocument(ctx, log)
	if err != nil {
		return err
	}

	cliLog.Debug().
		Str("source", string(doc.Source)).
		Str("language", doc.Language).
		Int("textLen", len(doc.Text)).
		Msg("Document is acquired")

	report := p.Analyze(ctx, client, 0, doc)
	printReport(report)

	return writeReport(report, cliLog)
}

func newClient(ctx context.Context, log *slog.Logger, cliLog zerolog.Logger) (*summarizer.Client, error) {
	llm, err := config.LoadLLM()
	if err != nil {
		return nil, err
	}

	modelCfg, err := llm.ModelConfig()
	if err != nil {
		return nil, err
	}

	gen, err := summarizer.NewGenerator(ctx, llm.ProviderName(), llm.APIKey, llm.BaseURL, modelCfg)
	if err != nil {
		// The client still answers with the model initialization message.
		cliLog.Warn().Err(err).
			Str("provider", string(llm.ProviderName())).
			Msg("Failed to initialize model")

		return summarizer.NewClient(nil, log), nil
	}

	return summarizer.NewClient(gen, log), nil
}

func acquireDocument(ctx context.Context, log *slog.Logger) (domain.Document, error) {
	switch {
	case *args.url != "":
		return acquire.NewFetcher(*args.maxBytes, log).FromURL(ctx, *args.url)

	case len(*args.pdfs) == 1:
		path := (*args.pdfs)[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Document{}, fmt.Errorf("read pdf: %w", err)
		}
		return acquire.FromPDFBytes(filepath.Base(path), data)

	default:
		text := *args.text
		if text == "-" {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return domain.Document{}, fmt.Errorf("read stdin: %w", err)
			}
			text = string(b)
		}
		return acquire.FromText(text)
	}
}

func runBatch(ctx context.Context, p *pipeline.Pipeline, client *summarizer.Client, cliLog zerolog.Logger) error {
	files := make([]acquire.File, 0, len(*args.pdfs))
	for _, path := range *args.pdfs {
		data, err := os.ReadFile(path)
		if err != nil {
			// Unreadable files still get an entry in the batch result.
			cliLog.Warn().Err(err).Str("path", path).Msg("Failed to read pdf")
		}
		files = append(files, acquire.File{Name: filepath.Base(path), Data: data})
	}

	items := p.AnalyzeBatch(ctx, client, 0, acquire.FromPDFBatch(files),
		func(done, total int, item domain.BatchItem) {
			status := color.Green.Sprint("ok")
			if item.Failed {
				status = color.Red.Sprint("failed")
			}
			fmt.Printf("[%d/%d] %s %s\n", done, total, item.Name, status)
		})

	path := filepath.Join(*args.out, render.BatchArtifactName)
	if err := os.WriteFile(path, []byte(render.BatchArtifact(items)), outputFileMode); err != nil {
		return fmt.Errorf("write batch artifact: %w", err)
	}

	cliLog.Info().Str("path", path).Int("files", len(items)).Msg("Batch is written")

	return nil
}

func printReport(report domain.Report) {
	header := color.New(color.FgCyan, color.OpBold)

	fmt.Println(header.Render("Result"))
	if report.Failed {
		color.Red.Println(report.Result)
	} else {
		fmt.Println(report.Result)
	}

	if len(report.Frequencies) > 0 {
		fmt.Println()
		fmt.Println(header.Render("Top words"))
		fmt.Print(render.FrequencyTableText(report.Frequencies))
	}
}

func writeReport(report domain.Report, cliLog zerolog.Logger) error {
	files := map[string][]byte{
		render.SingleArtifactName: []byte(render.SingleArtifact(report.Result, report.Frequencies)),
		wordCloudFileName:         report.WordCloud,
		barChartFileName:          report.BarChart,
	}

	pdfReport, err := render.PDFReport("Analysis report", report)
	if err != nil {
		cliLog.Warn().Err(err).Msg("Failed to render pdf report")
	} else {
		files[render.PDFReportName] = pdfReport
	}

	var errs []error
	for name, data := range files {
		if len(data) == 0 {
			continue
		}

		path := filepath.Join(*args.out, name)
		if err = os.WriteFile(path, data, outputFileMode); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", name, err))
			continue
		}

		cliLog.Debug().Str("path", path).Msg("File is written")
	}

	if err = errors.Join(errs...); err != nil {
		return err
	}

	cliLog.Info().
		Str("out", *args.out).
		Bool("failed", report.Failed).
		Msg("Report is written")

	return nil
}
