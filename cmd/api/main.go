package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"essaygrader/internal/api"
	"essaygrader/internal/config"
	"essaygrader/internal/grading"
	"essaygrader/internal/logging"
	"essaygrader/internal/providers"
	"essaygrader/internal/report"
	"essaygrader/internal/storage"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
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

	var store storage.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err = storage.Open(ctx, cfg.DatabaseURL)
		if err == nil {
			err = store.Migrate(ctx)
		}
		cancel()
		if err != nil {
			logger.Fatal("api: open history store", zap.Error(err))
		}
		defer store.Close()
	}

	deps := api.Deps{
		Grader:    grading.NewService(providers.NewManager(cfg), store, logger),
		Store:     store,
		Converter: report.NewCommandConverter(cfg.PDFArgv()),
		Log:       logger,
	}
	if cfg.TemporalAddress != "" {
		c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			logger.Fatal("api: dial temporal", zap.String("address", cfg.TemporalAddress), zap.Error(err))
		}
		defer c.Close()
		deps.Temporal = c
	}

	h := api.NewServer(cfg, deps)
	logger.Info("api: listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Bool("history", store != nil),
		zap.Bool("jobs", deps.Temporal != nil),
	)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		logger.Fatal("api: serve", zap.Error(err))
	}
}
