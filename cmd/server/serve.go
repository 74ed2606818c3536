package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inspectbot/internal/dialogue"
	"inspectbot/internal/jobs"
	"inspectbot/internal/lookup"
	"inspectbot/internal/metrics"
	"inspectbot/internal/ocr"
	"inspectbot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatbot skill server and the crawl scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	var extractor ocr.Extractor
	if cfg.IsOCREnabled() {
		extractor = ocr.NewOpenAIExtractor(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.FetchTimeout)
		logger.Info("image extraction enabled", zap.String("model", cfg.OpenAIModel), zap.Int("quota", cfg.OCRQuotaLimit))
	}
	images := ocr.NewService(extractor, a.store, ocr.Config{
		Limit:   cfg.OCRQuotaLimit,
		Window:  ocr.Window(cfg.OCRQuotaWindow),
		Timeout: cfg.OCRTimeout,
	}, logger)

	var serverOpts []server.Option
	var sessions dialogue.SessionStore
	if cfg.RedisURL != "" {
		storage := dialogue.NewRedisStorage(cfg.RedisURL)
		defer func() { _ = storage.Close() }()
		sessions = dialogue.NewKVStore(storage, cfg.SessionIdleTimeout)
		serverOpts = append(serverOpts, server.WithLimiterStorage(storage))
		logger.Info("sessions stored in redis")
	} else {
		mem := dialogue.NewMemoryStore(cfg.SessionIdleTimeout)
		go mem.RunSweeper(ctx, time.Minute)
		sessions = mem
	}

	engine := dialogue.NewEngine(dialogue.Options{
		Sessions:      sessions,
		Lookup:        lookup.NewService(a.store, lookup.ParseMode(cfg.SimilarMode)),
		Images:        images,
		Menu:          a.yaml.Menu,
		RecordOutcome: metrics.RecordLookup,
		Logger:        logger.Named("dialogue"),
	})

	schedOpts := jobs.SchedulerOptions{
		Interval:   cfg.CrawlInterval,
		RunOnStart: cfg.CrawlOnStart,
		Logger:     logger.Named("scheduler"),
	}
	if h, m, ok := cfg.DailyRunTime(); ok {
		schedOpts.DailyAt = &jobs.ClockTime{Hour: h, Minute: m}
	} else if cfg.CrawlAt != "" {
		logger.Warn("ignoring malformed CRAWL_AT", zap.String("crawl_at", cfg.CrawlAt))
	}
	scheduler := jobs.NewCrawlScheduler(a.pipeline, schedOpts)
	scheduler.Start(ctx)

	srv := server.New(cfg, logger, serverOpts...)
	srv.RegisterRoutes(ctx, server.Deps{
		Engine:  engine,
		Store:   a.store,
		Info:    a.store,
		Crawler: a.pipeline,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server stopped", zap.Error(err))
		stop()
	}

	if err := srv.Shutdown(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	if !scheduler.Stop(30 * time.Second) {
		logger.Warn("crawl still running at shutdown")
	}
	logger.Info("server exited")
	return nil
}
