package main

import (
	"context"
	"log"
	"time"

	"essaygrader/internal/activities"
	"essaygrader/internal/config"
	"essaygrader/internal/logging"
	"essaygrader/internal/providers"
	"essaygrader/internal/report"
	"essaygrader/internal/storage"
	"essaygrader/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if cfg.TemporalAddress == "" {
		logger.Fatal("worker: ESSAYGRADER_TEMPORAL_ADDRESS is not set")
	}
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("worker: dial temporal", zap.Error(err))
	}
	defer c.Close()

	var store storage.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err = storage.Open(ctx, cfg.DatabaseURL)
		if err == nil {
			err = store.Migrate(ctx)
		}
		cancel()
		if err != nil {
			logger.Fatal("worker: open history store", zap.Error(err))
		}
		defer store.Close()
	}

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	a := activities.New(cfg, providers.NewManager(cfg), store, report.NewCommandConverter(cfg.PDFArgv()), logger)
	activities.Register(w, a)

	logger.Info("worker: listening",
		zap.String("address", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.String("provider", cfg.Provider),
		zap.Bool("history", store != nil),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker: run", zap.Error(err))
	}
}
