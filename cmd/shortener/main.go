package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/app"
	"github.com/mmeshcher/scissor/internal/config"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	sugar.Infow(
		"Configuration loaded",
		"server_address", cfg.ServerAddress,
		"base_url", cfg.BaseURL,
		"file_storage_path", cfg.FileStoragePath,
		"database", cfg.DatabaseDSN != "",
		"redis", cfg.RedisURL != "",
		"upload_path", cfg.UploadPath,
	)
	if cfg.GeneratedSecret {
		sugar.Warnw("No SECRET_KEY set, sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("Failed to start", "error", err)
	}

	if err := a.Run(ctx); err != nil {
		sugar.Errorw("Server stopped with error", "error", err)
		return
	}
	sugar.Infow("Server stopped")
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
