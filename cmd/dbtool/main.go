package main

import (
	"aid-delivery-sim/internal/adapters/repositories"
	"aid-delivery-sim/internal/config"
	"aid-delivery-sim/internal/platform/db"
	"aid-delivery-sim/internal/platform/obs"
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// dbtool prepares a Postgres record store: it creates the schema and
// optionally loads runs exported by the simulate command.
func main() {
	envLoaded := config.LoadEnv()

	logger, err := obs.NewLogger(config.Get("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !envLoaded {
		logger.Info("no .env file found, using environment variables")
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		logger.Error(nil, "DATABASE_URL is required")
		os.Exit(1)
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		logger.Error(err, "open database")
		os.Exit(1)
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "")
	if err := initAndSeed(conn, seedPath, logger); err != nil {
		logger.Error(err, "dbtool failed")
		conn.Close()
		os.Exit(1)
	}
}

func initAndSeed(conn *sql.DB, seedPath string, logger logr.Logger) error {
	logger.Info("initializing database schema")
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	logger.Info("schema ready")

	if seedPath == "" {
		return nil
	}

	logger.Info("seeding database", "path", seedPath)
	repo := repositories.NewPostgresRecordRepository(conn)
	n, err := repositories.SeedFromJSON(context.Background(), repo, seedPath)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	logger.Info("seeding complete", "runs", n)
	return nil
}
