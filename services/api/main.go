package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/02loveslollipop/perftest-dashboard/services/api/config"
	"github.com/02loveslollipop/perftest-dashboard/services/api/db"
	httpserver "github.com/02loveslollipop/perftest-dashboard/services/api/http"
	"github.com/02loveslollipop/perftest-dashboard/services/api/logging"
	"github.com/02loveslollipop/perftest-dashboard/services/api/manualinput"
	"github.com/02loveslollipop/perftest-dashboard/services/api/notify"
	"github.com/02loveslollipop/perftest-dashboard/services/api/timeslot"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection error", zap.Error(err))
	}
	defer store.Close()

	applied, err := store.Migrate(ctx)
	if err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("names", applied))
	}

	var notifier manualinput.Notifier
	if cfg.MQTT.Enabled() {
		publisher := notify.NewMQTTPublisher(cfg.MQTT, logger)
		defer publisher.Close()
		notifier = publisher
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	grouper := timeslot.NewGrouper(cfg.Location)
	inputs := manualinput.New(store, notifier, grouper, logger)

	srv := httpserver.New(cfg, store, inputs, logger)
	logger.Info("REST API listening",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("timezone", cfg.Location.String()),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
