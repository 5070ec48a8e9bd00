package dto

import "time"

// RunRequest overrides the server's default parameters for one request.
// Omitted fields keep the defaults.
type RunRequest struct {
	Scenario           string       `json:"scenario"`
	Grid               *GridRequest `json:"grid"`
	Seed               *int64       `json:"seed"`
	Ticks              int          `json:"ticks"`
	Drivers            *int         `json:"drivers"`
	Bays               int          `json:"bays"`
	LoadsPerRound      int          `json:"loads_per_round"`
	ProbFailedDelivery *float64     `json:"prob_failed_delivery"`
	ProbBreakdown      *float64     `json:"prob_breakdown"`
	Strategy           string       `json:"strategy"`
	Replications       int          `json:"replications"`
}

type GridRequest struct {
	Rows          int     `json:"rows"`
	Cols          int     `json:"cols"`
	Spacing       float64 `json:"spacing"`
	Depots        int     `json:"depots"`
	Wards         int     `json:"wards"`
	MaxHouseholds int     `json:"max_households"`
}

type RunSummaryResponse struct {
	RunID      string    `json:"run_id"`
	Seed       int64     `json:"seed"`
	Scenario   string    `json:"scenario"`
	Strategy   string    `json:"strategy"`
	Ticks      int       `json:"ticks"`
	Drivers    int       `json:"drivers"`
	Bays       int       `json:"bays"`
	Loads      int       `json:"loads"`
	Delivered  int       `json:"delivered"`
	Failed     int       `json:"failed"`
	Pending    int       `json:"pending"`
	Rounds     int       `json:"rounds"`
	Breakdowns int       `json:"breakdowns"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListRunsResponse struct {
	Runs []RunSummaryResponse `json:"runs"`
}
