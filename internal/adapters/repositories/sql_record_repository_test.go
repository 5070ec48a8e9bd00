package repositories

import (
	"aid-delivery-sim/internal/domain"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))
	return db
}

func sampleRecords(runID string, created time.Time) domain.RunRecords {
	delivered := &domain.AidLoad{
		ID: "l-1", Ward: "Amani", Depot: "Depot 1", Status: domain.LoadDelivered,
		Priority: 2, Vulnerability: 4,
		Target:        domain.Coordinates{X: 1500, Y: 1003},
		DeliveryPoint: domain.Coordinates{X: 1500, Y: 1000},
		History: []domain.LoadEvent{
			{Tick: 0, Kind: domain.EventCreated, To: "Depot 1"},
			{Tick: 4, Kind: domain.EventTransferred, From: "Depot 1", To: "Driver 1A2B"},
			{Tick: 9, Kind: domain.EventDelivered, From: "Driver 1A2B", To: "Amani"},
		},
	}
	pending := &domain.AidLoad{
		ID: "l-2", Ward: "Baraka", Depot: "Depot 1", Status: domain.LoadPending,
		History: []domain.LoadEvent{{Tick: 0, Kind: domain.EventCreated, To: "Depot 1"}},
	}

	return domain.RunRecords{
		Summary: domain.RunSummary{
			RunID: runID, Seed: 12345, Scenario: "grid-6x6", Strategy: "vulnerability",
			Ticks: 1440, Drivers: 1, Bays: 10, Loads: 2, Delivered: 1, Pending: 1, Rounds: 1,
			CreatedAt: created,
		},
		Rounds: []domain.RoundRecord{{DriverID: "Driver 1A2B", Duration: 20, Distance: 4000, FinishedAt: 24}},
		Loads:  []*domain.AidLoad{delivered, pending},
		Visits: []domain.WardVisit{{Ward: "Amani", Visits: 1}, {Ward: "Baraka", Visits: 0}},
	}
}

func TestSaveAndReadBackRun(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteRecordRepository(openTestDB(t))

	created := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	rec := sampleRecords("run-1", created)
	require.NoError(t, repo.SaveRun(ctx, rec))

	sum, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(rec.Summary, sum); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	rounds, err := repo.ListRounds(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Rounds, rounds)

	loads, err := repo.ListLoads(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(rec.Loads, loads, cmpopts.IgnoreUnexported(domain.AidLoad{})); diff != "" {
		t.Errorf("loads mismatch (-want +got):\n%s", diff)
	}

	visits, err := repo.ListVisits(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Visits, visits)
}

func TestSaveRunTwiceFails(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteRecordRepository(openTestDB(t))

	rec := sampleRecords("run-1", time.Now())
	require.NoError(t, repo.SaveRun(ctx, rec))
	assert.Error(t, repo.SaveRun(ctx, rec))

	// the failed save must not leave partial rows behind
	rounds, err := repo.ListRounds(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
}

func TestSaveRunNeedsID(t *testing.T) {
	repo := NewSqliteRecordRepository(openTestDB(t))
	assert.Error(t, repo.SaveRun(context.Background(), sampleRecords("", time.Now())))
}

func TestUnknownRun(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteRecordRepository(openTestDB(t))

	_, err := repo.GetRun(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
	_, err = repo.ListRounds(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
	_, err = repo.ListLoads(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
	_, err = repo.ListVisits(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteRecordRepository(openTestDB(t))

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour + 500*time.Millisecond}
		require.NoError(t, repo.SaveRun(ctx, sampleRecords(id, base.Add(offsets[i]))))
	}

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	assert.Equal(t, []string{"newest", "middle", "old"}, ids)

	runs, err = repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "newest", runs[0].RunID)
}

func TestSeedFromJSON(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteRecordRepository(openTestDB(t))

	data, err := json.Marshal([]domain.RunRecords{
		sampleRecords("a", time.Now()),
		sampleRecords("b", time.Now()),
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "runs.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	n, err := SeedFromJSON(ctx, repo, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = SeedFromJSON(ctx, repo, path)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "runs already stored are skipped")

	loads, err := repo.ListLoads(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, loads, 2)
	assert.Len(t, loads[0].History, 3)
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = ?;"
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2;", Postgres.rebind(q))
}
