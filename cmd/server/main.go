// Package main is the entry point for the mint game backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mint-game-backend/internal/anticheat"
	"mint-game-backend/internal/config"
	"mint-game-backend/internal/mint"
	"mint-game-backend/internal/pkg/db"
	"mint-game-backend/internal/pkg/lock"
	"mint-game-backend/internal/repository"
	"mint-game-backend/internal/server"
	"mint-game-backend/internal/service"
	"mint-game-backend/internal/tier"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)

	// Initialize the anti-cheat validator with configured tolerances
	validator := anticheat.New(
		&anticheat.Config{
			MaxSessionDuration:    cfg.AntiCheat.MaxSessionDuration,
			NetworkDelayTolerance: cfg.AntiCheat.NetworkDelayTolerance,
			ClockSkewTolerance:    cfg.AntiCheat.ClockSkewTolerance,
		},
		anticheat.LinearEnvelope{
			MinPerSecond: cfg.AntiCheat.MinScorePerSecond,
			MaxPerSecond: cfg.AntiCheat.MaxScorePerSecond,
		},
		nil,
	)

	classifier := tier.NewClassifier(tier.Thresholds{
		Tier0: cfg.Tier.Tier0,
		Tier1: cfg.Tier.Tier1,
		Tier2: cfg.Tier.Tier2,
	})

	scoreService := service.NewScoreService(sessionRepo, validator, classifier, lock.NewAddressLock(), nil)

	// Mint collaborators
	signer, err := mint.NewJWTSigner(cfg.Mint.ProofSecret, cfg.Mint.ProofTTL, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize proof signer")
	}
	allowanceService := mint.NewAllowanceService(
		mint.NewStaticWhitelist(cfg.Mint.Whitelist),
		scoreService,
		signer,
	)

	router := server.NewRouter(server.Deps{
		Scores:          scoreService,
		Allowances:      allowanceService,
		MetadataBaseURL: cfg.Mint.MetadataBaseURL,
		DB:              dbPool,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}

// runMigrations applies the database schema.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	// Migration 1: game_sessions table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			address           TEXT PRIMARY KEY,
			game_start_time   TIMESTAMPTZ NOT NULL,
			client_start_time TEXT NOT NULL DEFAULT '',
			game_end_time     TIMESTAMPTZ,
			client_end_time   TEXT,
			score             DOUBLE PRECISION,
			last_update       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			validation_result TEXT,
			rejection_reason  TEXT,
			ip_address        TEXT NOT NULL DEFAULT '',
			user_agent        TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: game_sessions table created")

	// Migration 2: partial index for the stats aggregates
	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_game_sessions_validation
		ON game_sessions (validation_result)
		WHERE validation_result IS NOT NULL
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: validation result index created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
