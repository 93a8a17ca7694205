package main

import (
	"context"
	"log"

	"github.com/sportclub/club_scheduler/internal/app"
	"github.com/sportclub/club_scheduler/internal/config"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)

	defer logger.Sync()

	logger.Sugar().Infow("Starting club scheduler",
		"environment", cfg.Environment,
		"http_addr", cfg.HTTPAddr)

	if err := app.Run(context.Background(), cfg, logger); err != nil {
		logger.Sugar().Fatalw("Server stopped with error", "error", err)
	}
}
