package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"optihome/config"
	"optihome/scraper/nehnutelnosti"
	"optihome/server"
	"optihome/services"
	"optihome/storage"
	"optihome/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.Debug)

	logger.Info("=== OptiHome backend starting ===")
	logger.Info("Config — addr: %s | pages/run: %d | concurrency: %d | rate: %dms | bins: %d",
		cfg.ServerAddr, cfg.PagesPerRun, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.StatsBinCount)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	status := services.NewStatusTracker()
	scraper := nehnutelnosti.New(cfg, logger, status)
	cleaner := services.NewCleaner(logger)
	pipeline := services.NewScrapePipeline(logger, scraper, cleaner, store, csvWriter, status)

	statsSvc := services.NewStatsService(logger, cfg.StatsBinCount)
	translator := services.NewBinTranslator(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services.NewScheduler(logger, cfg, pipeline).Start(ctx)

	srv := server.New(cfg, logger, store, statsSvc, translator, status, pipeline)
	if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}

	logger.Info("=== OptiHome backend stopped ===")
}
