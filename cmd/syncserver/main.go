package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"vocabtrainer/internal/config"
	"vocabtrainer/internal/server"
	"vocabtrainer/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Initialize database
	db, err := storage.New(cfg.SyncDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := server.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.SyncDBPath)

	handlerSvc := server.NewSyncHandler(server.NewBlobRepo(db), logger)
	router := server.NewRouter(handlerSvc)

	addr := ":" + cfg.SyncPort
	slog.Info("Starting sync server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Sync server failed to start: %v", err)
	}
}
