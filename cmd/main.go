package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdfsum/internal/acquire"
	"pdfsum/internal/bot"
	"pdfsum/internal/config"
	"pdfsum/internal/database"
	"pdfsum/internal/pipeline"
	"pdfsum/internal/scheduler"
	"pdfsum/internal/summarizer"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	factory, err := initSummarizers(ctx, cfg.LLM, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load model config",
			"error", err,
			"configFile", cfg.LLM.ConfigFile)

		return
	}

	botInst, err := bot.New(cfg.Token, bot.Deps{
		Fetcher:  acquire.NewFetcher(cfg.FetchMaxBodyBytes, log),
		History:  db,
		Pipeline: pipeline.New(db, log),
		Summarizers: func(ctx context.Context, apiKey string) pipeline.Summarizer {
			return factory.Client(ctx, apiKey)
		},
		AllowedUsers: cfg.AllowedUsers,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	sched := scheduler.New(ctx, db, cfg.HistoryRetention, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.DailyPruneSpec,
			"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.DailyPruneSpec,
		"retention", cfg.HistoryRetention.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		botInst.Start(ctx)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	<-done
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

func initSummarizers(ctx context.Context, cfg config.LLM, log *slog.Logger) (*summarizer.Factory, error) {
	modelCfg, err := cfg.ModelConfig()
	if err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		log.WarnContext(ctx, "LLM_API_KEY is missing so only per-chat keys will work",
			"envVar", "LLM_API_KEY")
	}

	log.InfoContext(ctx, "Summarizer is configured",
		"provider", cfg.ProviderName(),
		"model", modelCfg.Model)

	return summarizer.NewFactory(cfg.ProviderName(), cfg.BaseURL, cfg.APIKey, modelCfg, log), nil
}
