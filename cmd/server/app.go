package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"inspectbot/internal/config"
	"inspectbot/internal/crawler"
	"inspectbot/internal/db"
	"inspectbot/internal/email"
	"inspectbot/internal/metrics"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	yaml     *config.YAMLConfig
	store    db.Store
	pipeline *crawler.Pipeline
}

// openApp loads configuration, opens the store and assembles the pipeline.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	sources, err := crawler.SourcesFromConfig(yamlCfg)
	if err != nil {
		return nil, err
	}
	infoPages, err := crawler.InfoPagesFromConfig(yamlCfg)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.DatabaseDriver, err)
	}
	logger.Info("store ready", zap.String("driver", cfg.DatabaseDriver))
	metrics.Init(store, logger)

	var archive crawler.Archive
	if cfg.IsArchiveEnabled() {
		a, err := crawler.NewMinioArchive(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
		if err != nil {
			// Snapshots are optional.
			logger.Warn("snapshot archive disabled", zap.Error(err))
		} else {
			archive = a
			logger.Info("snapshot archive enabled", zap.String("endpoint", cfg.MinIOEndpoint), zap.String("bucket", cfg.MinIOBucket))
		}
	}

	var notifier crawler.Notifier
	if n := email.NewNotifier(cfg, logger); n.Enabled() {
		notifier = n
	}

	pipeline := crawler.NewPipeline(crawler.Options{
		Store:     store,
		Sources:   sources,
		InfoPages: infoPages,
		Fetcher:   crawler.NewStaticFetcher(cfg.FetchTimeout),
		Renderer:  crawler.NewRodRenderer(cfg.BrowserBin, cfg.BrowserHeadless, cfg.BrowserTimeout, logger),
		Archive:   archive,
		Notifier:  notifier,
		Logger:    logger.Named("crawler"),
	})

	return &app{cfg: cfg, yaml: yamlCfg, store: store, pipeline: pipeline}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}
