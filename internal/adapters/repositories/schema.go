package repositories

import (
	"aid-delivery-sim/internal/domain"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour of a store.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind turns ? placeholders into $n for Postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Initialize the record schema. Statements are valid for both dialects.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRunsQuery := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed BIGINT NOT NULL,
		scenario TEXT NOT NULL,
		strategy TEXT NOT NULL,
		ticks INTEGER NOT NULL,
		drivers INTEGER NOT NULL,
		bays INTEGER NOT NULL,
		loads INTEGER NOT NULL,
		delivered INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		pending INTEGER NOT NULL,
		rounds INTEGER NOT NULL,
		breakdowns INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	createRoundsQuery := `
	CREATE TABLE IF NOT EXISTS round_records (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		driver_id TEXT NOT NULL,
		duration DOUBLE PRECISION NOT NULL,
		distance DOUBLE PRECISION NOT NULL,
		finished_at DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	`

	createLoadsQuery := `
	CREATE TABLE IF NOT EXISTS loads (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		load_id TEXT NOT NULL,
		ward TEXT NOT NULL,
		depot TEXT NOT NULL,
		status TEXT NOT NULL,
		priority INTEGER NOT NULL,
		vulnerability INTEGER NOT NULL,
		target_x DOUBLE PRECISION NOT NULL,
		target_y DOUBLE PRECISION NOT NULL,
		delivery_x DOUBLE PRECISION NOT NULL,
		delivery_y DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, load_id)
	);
	`

	createLoadEventsQuery := `
	CREATE TABLE IF NOT EXISTS load_events (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		load_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		tick DOUBLE PRECISION NOT NULL,
		kind TEXT NOT NULL,
		from_holder TEXT NOT NULL,
		to_holder TEXT NOT NULL,
		PRIMARY KEY (run_id, load_id, seq)
	);
	`

	createWardVisitsQuery := `
	CREATE TABLE IF NOT EXISTS ward_visits (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		ward TEXT NOT NULL,
		visits INTEGER NOT NULL,
		PRIMARY KEY (run_id, ward)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_runs_created_at
	ON runs(created_at);
	`

	statements := []string{
		createRunsQuery,
		createRoundsQuery,
		createLoadsQuery,
		createLoadEventsQuery,
		createWardVisitsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Read run records exported as JSON, as written by the simulate command.
func ReadRecordsJSON(jsonPath string) ([]domain.RunRecords, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read records: read %q: %w", jsonPath, err)
	}

	var data []domain.RunRecords
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("read records: parse json: %w", err)
	}

	for i, rec := range data {
		if strings.TrimSpace(rec.Summary.RunID) == "" {
			return nil, fmt.Errorf("read records: run at index %d: run id cannot be empty", i+1)
		}
	}
	return data, nil
}

// Store every run from a JSON export, skipping runs that are already there.
func SeedFromJSON(ctx context.Context, repo *SQLRecordRepository, jsonPath string) (int, error) {
	data, err := ReadRecordsJSON(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed runs: %w", err)
	}

	saved := 0
	for _, rec := range data {
		if _, err := repo.GetRun(ctx, rec.Summary.RunID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrRunNotFound) {
			return saved, fmt.Errorf("seed runs: %w", err)
		}
		if err := repo.SaveRun(ctx, rec); err != nil {
			return saved, fmt.Errorf("seed runs: %w", err)
		}
		saved++
	}
	return saved, nil
}
