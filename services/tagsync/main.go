package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/02loveslollipop/perftest-dashboard/services/api/db"
	"github.com/02loveslollipop/perftest-dashboard/services/api/logging"
	"github.com/02loveslollipop/perftest-dashboard/services/tagsync/internal/catalog"
	"github.com/02loveslollipop/perftest-dashboard/services/tagsync/internal/config"
	"github.com/02loveslollipop/perftest-dashboard/services/tagsync/internal/utils"
)

func main() {
	cfg, cfgErr := config.Load()

	logger, err := logging.NewWithFallback(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync() //nolint:errcheck
	if err != nil {
		logger.Warn("invalid log settings, using defaults", zap.Error(err))
	}

	if cfgErr != nil {
		logger.Fatal("config error", zap.Error(cfgErr))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("tagsync failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+10*time.Second)
	defer cancel()

	client, err := catalog.NewClient(&http.Client{Timeout: cfg.RequestTimeout}, cfg.CatalogURL)
	if err != nil {
		return err
	}

	payload, err := client.FetchTags(ctx)
	if errors.Is(err, catalog.ErrEmptyCatalog) {
		logger.Warn("tag catalogue is empty, nothing to sync", zap.String("source", payload.Source))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("fetched tag catalogue", zap.Int("entries", len(payload.Tags)), zap.String("source", payload.Source))

	rows := utils.BuildCatalogTags(payload.Tags)
	for mInput, n := range utils.CountByTab(rows) {
		logger.Info("catalogue tab", zap.Int("m_input", mInput), zap.Int("tags", n))
	}

	if len(rows) == 0 {
		logger.Info("no tags to sync", zap.String("source", payload.Source))
		return nil
	}

	if cfg.DryRun {
		for _, row := range rows {
			logger.Info("dry-run: would upsert tag",
				zap.String("tag_no", row.TagNo),
				zap.Int("jm_input", row.JmInput),
				zap.Int("m_input", row.MInput),
			)
		}
		return nil
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Migrate(ctx); err != nil {
		return err
	}

	if err := store.UpsertInputTags(ctx, rows); err != nil {
		return err
	}

	logger.Info("upserted input tags", zap.Int("count", len(rows)), zap.String("source", payload.Source))
	return nil
}
