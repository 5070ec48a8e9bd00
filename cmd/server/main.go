package main

import (
	"aid-delivery-sim/internal/adapters/repositories"
	"aid-delivery-sim/internal/api"
	"aid-delivery-sim/internal/config"
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/platform/db"
	"aid-delivery-sim/internal/platform/metrics"
	"aid-delivery-sim/internal/platform/obs"
	"aid-delivery-sim/internal/runs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

// main is the application composition root.
// It wires the record store behind its port and starts the HTTP server.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	envLoaded := config.LoadEnv()

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	logger, err := obs.NewLogger(settings.LogLevel)
	if err != nil {
		return err
	}
	if !envLoaded {
		logger.Info("no .env file found, using environment variables")
	}

	defaults, err := config.SimParams()
	if err != nil {
		return err
	}

	store, repo, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	// Initialize schema and load exported records on startup for local runs.
	if err := initAndSeed(store, repo, config.Get("SEED_PATH", ""), logger); err != nil {
		return err
	}

	metrics.Register()

	summaries := ttlcache.New[string, domain.RunSummary](
		ttlcache.WithTTL[string, domain.RunSummary](10*time.Minute),
		ttlcache.WithCapacity[string, domain.RunSummary](1000),
	)
	go summaries.Start()
	defer summaries.Stop()

	scenarioDir := ""
	if settings.ScenarioPath != "" {
		scenarioDir = filepath.Clean(settings.ScenarioPath)
	}

	router := api.NewRouter(api.Deps{
		Repo:        repo,
		Runs:        runs.NewService(repo, settings.Parallelism),
		Defaults:    defaults,
		ScenarioDir: scenarioDir,
		Cache:       summaries,
		Store:       store,
		Logger:      logger,
	})

	// Write timeout leaves room for long runs and replications.
	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "db", settings.DBDriver, "scenarios", scenarioDir)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(s config.Settings) (*sql.DB, *repositories.SQLRecordRepository, error) {
	if s.DBDriver == "postgres" {
		conn, err := db.Open(s.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return conn, repositories.NewPostgresRecordRepository(conn), nil
	}

	conn, err := openDB(s.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return conn, repositories.NewSqliteRecordRepository(conn), nil
}

func openDB(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("openDB: create %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}
	// sqlite allows one writer; run saves are serialized through one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, multierr.Append(
			fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err),
			db.Close(),
		)
	}

	return db, nil
}

func initAndSeed(db *sql.DB, repo *repositories.SQLRecordRepository, seedPath string, logger logr.Logger) error {
	if err := repositories.InitSchema(db); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	if seedPath == "" {
		return nil
	}

	n, err := repositories.SeedFromJSON(context.Background(), repo, seedPath)
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	logger.Info("seeded runs", "path", seedPath, "runs", n)
	return nil
}
