package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/config"
	"github.com/noah-isme/escola-ledger-api/internal/database"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("command", "migrate").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backfilled, err := database.Migrate(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	logger.Info().Int64("service_types_backfilled", backfilled).Msg("schema up to date")
}
