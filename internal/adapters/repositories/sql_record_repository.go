package repositories

import (
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQL-backed implementation of the RecordRepository port, for SQLite and
// Postgres.
type SQLRecordRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSqliteRecordRepository(db *sql.DB) *SQLRecordRepository {
	return &SQLRecordRepository{DB: db, Dialect: SQLite}
}

func NewPostgresRecordRepository(db *sql.DB) *SQLRecordRepository {
	return &SQLRecordRepository{DB: db, Dialect: Postgres}
}

func (s *SQLRecordRepository) q(query string) string { return s.Dialect.rebind(query) }

// Store a finished run and everything it produced in one transaction.
func (s *SQLRecordRepository) SaveRun(ctx context.Context, rec domain.RunRecords) (err error) {
	defer obs.Time(ctx, "records.SaveRun")(&err)

	if s.DB == nil {
		return errors.New("record repository: DB is nil")
	}
	sum := rec.Summary
	if sum.RunID == "" {
		return errors.New("save run: run id must not be empty")
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run %s: begin tx: %w", sum.RunID, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.q(`
	INSERT INTO runs (
		run_id, seed, scenario, strategy, ticks, drivers, bays,
		loads, delivered, failed, pending, rounds, breakdowns, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`),
		sum.RunID, sum.Seed, sum.Scenario, sum.Strategy, sum.Ticks, sum.Drivers, sum.Bays,
		sum.Loads, sum.Delivered, sum.Failed, sum.Pending, sum.Rounds, sum.Breakdowns,
		sum.CreatedAt.UTC().Format(createdLayout),
	)
	if err != nil {
		return fmt.Errorf("save run %s: insert run: %w", sum.RunID, err)
	}

	roundStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO round_records (run_id, seq, driver_id, duration, distance, finished_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save run %s: prepare rounds: %w", sum.RunID, err)
	}
	defer roundStmt.Close()

	for i, r := range rec.Rounds {
		if _, err := roundStmt.ExecContext(ctx, sum.RunID, i, r.DriverID, r.Duration, r.Distance, r.FinishedAt); err != nil {
			return fmt.Errorf("save run %s: insert round #%d: %w", sum.RunID, i+1, err)
		}
	}

	loadStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO loads (
		run_id, seq, load_id, ward, depot, status, priority, vulnerability,
		target_x, target_y, delivery_x, delivery_y
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save run %s: prepare loads: %w", sum.RunID, err)
	}
	defer loadStmt.Close()

	eventStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO load_events (run_id, load_id, seq, tick, kind, from_holder, to_holder)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save run %s: prepare load events: %w", sum.RunID, err)
	}
	defer eventStmt.Close()

	for i, l := range rec.Loads {
		_, err := loadStmt.ExecContext(ctx,
			sum.RunID, i, l.ID, l.Ward, l.Depot, string(l.Status), l.Priority, l.Vulnerability,
			l.Target.X, l.Target.Y, l.DeliveryPoint.X, l.DeliveryPoint.Y,
		)
		if err != nil {
			return fmt.Errorf("save run %s: insert load %s: %w", sum.RunID, l.ID, err)
		}
		for j, ev := range l.History {
			if _, err := eventStmt.ExecContext(ctx, sum.RunID, l.ID, j, ev.Tick, string(ev.Kind), ev.From, ev.To); err != nil {
				return fmt.Errorf("save run %s: insert event #%d of load %s: %w", sum.RunID, j+1, l.ID, err)
			}
		}
	}

	visitStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO ward_visits (run_id, ward, visits)
	VALUES (?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save run %s: prepare visits: %w", sum.RunID, err)
	}
	defer visitStmt.Close()

	for _, v := range rec.Visits {
		if _, err := visitStmt.ExecContext(ctx, sum.RunID, v.Ward, v.Visits); err != nil {
			return fmt.Errorf("save run %s: insert visits for %s: %w", sum.RunID, v.Ward, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run %s: commit tx: %w", sum.RunID, err)
	}
	return nil
}

// fixed width so the text column sorts in time order
const createdLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = `
	run_id, seed, scenario, strategy, ticks, drivers, bays,
	loads, delivered, failed, pending, rounds, breakdowns, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.RunSummary, error) {
	var sum domain.RunSummary
	var created string
	err := row.Scan(
		&sum.RunID, &sum.Seed, &sum.Scenario, &sum.Strategy, &sum.Ticks, &sum.Drivers, &sum.Bays,
		&sum.Loads, &sum.Delivered, &sum.Failed, &sum.Pending, &sum.Rounds, &sum.Breakdowns, &created,
	)
	if err != nil {
		return sum, err
	}
	sum.CreatedAt, err = time.Parse(createdLayout, created)
	if err != nil {
		return sum, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return sum, nil
}

func (s *SQLRecordRepository) GetRun(ctx context.Context, runID string) (_ domain.RunSummary, err error) {
	defer obs.Time(ctx, "records.GetRun")(&err)

	if s.DB == nil {
		return domain.RunSummary{}, errors.New("record repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, s.q(`SELECT`+runColumns+` FROM runs WHERE run_id = ?;`), runID)
	sum, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sum, fmt.Errorf("get run %s: %w", runID, domain.ErrRunNotFound)
	}
	if err != nil {
		return sum, fmt.Errorf("get run %s: %w", runID, err)
	}
	return sum, nil
}

// Return the most recent runs, newest first. limit <= 0 returns all runs.
func (s *SQLRecordRepository) ListRuns(ctx context.Context, limit int) (_ []domain.RunSummary, err error) {
	defer obs.Time(ctx, "records.ListRuns")(&err)

	if s.DB == nil {
		return nil, errors.New("record repository: DB is nil")
	}
	if limit <= 0 {
		limit = -1
		if s.Dialect == Postgres {
			limit = 1 << 30
		}
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`SELECT`+runColumns+`
	FROM runs
	ORDER BY created_at DESC, run_id
	LIMIT ?;
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.RunSummary, 0, 16)
	for rows.Next() {
		sum, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: scan row: %w", err)
		}
		runs = append(runs, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}
	return runs, nil
}

// ensureRun turns an empty result for an unknown run into ErrRunNotFound.
func (s *SQLRecordRepository) ensureRun(ctx context.Context, runID string) error {
	var one int
	err := s.DB.QueryRowContext(ctx, s.q(`SELECT 1 FROM runs WHERE run_id = ?;`), runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRunNotFound
	}
	return err
}

func (s *SQLRecordRepository) ListRounds(ctx context.Context, runID string) (_ []domain.RoundRecord, err error) {
	defer obs.Time(ctx, "records.ListRounds")(&err)

	if s.DB == nil {
		return nil, errors.New("record repository: DB is nil")
	}
	if err := s.ensureRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("list rounds %s: %w", runID, err)
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT driver_id, duration, distance, finished_at
	FROM round_records
	WHERE run_id = ?
	ORDER BY seq;
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("list rounds %s: query round_records table: %w", runID, err)
	}
	defer rows.Close()

	rounds := make([]domain.RoundRecord, 0, 64)
	for rows.Next() {
		var r domain.RoundRecord
		if err := rows.Scan(&r.DriverID, &r.Duration, &r.Distance, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("list rounds %s: scan row: %w", runID, err)
		}
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rounds %s: row iteration: %w", runID, err)
	}
	return rounds, nil
}

func (s *SQLRecordRepository) ListLoads(ctx context.Context, runID string) (_ []*domain.AidLoad, err error) {
	defer obs.Time(ctx, "records.ListLoads")(&err)

	if s.DB == nil {
		return nil, errors.New("record repository: DB is nil")
	}
	if err := s.ensureRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("list loads %s: %w", runID, err)
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT load_id, ward, depot, status, priority, vulnerability,
		target_x, target_y, delivery_x, delivery_y
	FROM loads
	WHERE run_id = ?
	ORDER BY seq;
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("list loads %s: query loads table: %w", runID, err)
	}
	defer rows.Close()

	loads := make([]*domain.AidLoad, 0, 64)
	byID := make(map[string]*domain.AidLoad)
	for rows.Next() {
		l := &domain.AidLoad{}
		var status string
		err := rows.Scan(&l.ID, &l.Ward, &l.Depot, &status, &l.Priority, &l.Vulnerability,
			&l.Target.X, &l.Target.Y, &l.DeliveryPoint.X, &l.DeliveryPoint.Y)
		if err != nil {
			return nil, fmt.Errorf("list loads %s: scan row: %w", runID, err)
		}
		l.Status = domain.LoadStatus(status)
		loads = append(loads, l)
		byID[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list loads %s: row iteration: %w", runID, err)
	}
	rows.Close()

	events, err := s.DB.QueryContext(ctx, s.q(`
	SELECT load_id, tick, kind, from_holder, to_holder
	FROM load_events
	WHERE run_id = ?
	ORDER BY load_id, seq;
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("list loads %s: query load_events table: %w", runID, err)
	}
	defer events.Close()

	for events.Next() {
		var id, kind string
		var ev domain.LoadEvent
		if err := events.Scan(&id, &ev.Tick, &kind, &ev.From, &ev.To); err != nil {
			return nil, fmt.Errorf("list loads %s: scan event: %w", runID, err)
		}
		ev.Kind = domain.LoadEventKind(kind)
		if l, ok := byID[id]; ok {
			l.History = append(l.History, ev)
		}
	}
	if err := events.Err(); err != nil {
		return nil, fmt.Errorf("list loads %s: event iteration: %w", runID, err)
	}

	return loads, nil
}

func (s *SQLRecordRepository) ListVisits(ctx context.Context, runID string) (_ []domain.WardVisit, err error) {
	defer obs.Time(ctx, "records.ListVisits")(&err)

	if s.DB == nil {
		return nil, errors.New("record repository: DB is nil")
	}
	if err := s.ensureRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("list visits %s: %w", runID, err)
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT ward, visits
	FROM ward_visits
	WHERE run_id = ?
	ORDER BY ward;
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("list visits %s: query ward_visits table: %w", runID, err)
	}
	defer rows.Close()

	visits := make([]domain.WardVisit, 0, 16)
	for rows.Next() {
		var v domain.WardVisit
		if err := rows.Scan(&v.Ward, &v.Visits); err != nil {
			return nil, fmt.Errorf("list visits %s: scan row: %w", runID, err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list visits %s: row iteration: %w", runID, err)
	}
	return visits, nil
}
