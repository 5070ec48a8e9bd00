package ports

import (
	"aid-delivery-sim/internal/domain"
	"context"
)

// RecordRepository keeps the records of finished runs. Lookups of a run
// that was never saved return domain.ErrRunNotFound.
type RecordRepository interface {
	// Store a finished run. The summary must carry a run id.
	SaveRun(ctx context.Context, rec domain.RunRecords) error

	GetRun(ctx context.Context, runID string) (domain.RunSummary, error)
	// Most recent first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	ListRounds(ctx context.Context, runID string) ([]domain.RoundRecord, error)
	// Loads come back with their full history.
	ListLoads(ctx context.Context, runID string) ([]*domain.AidLoad, error)
	ListVisits(ctx context.Context, runID string) ([]domain.WardVisit, error)
}
