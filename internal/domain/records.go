package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// One completed round of a driver: depot, deliveries, back to the depot.
type RoundRecord struct {
	DriverID   string
	Duration   float64
	Distance   float64
	FinishedAt float64
}

// Tab separated: driver, duration, distance, finish tick.
func (r RoundRecord) String() string {
	return fmt.Sprintf("%s\t%g\t%g\t%g", r.DriverID, r.Duration, r.Distance, r.FinishedAt)
}

// How many rounds were dispatched to a ward.
type WardVisit struct {
	Ward   string
	Visits int
}

// Represents the outcome of a single simulation run.
// It is written once when the run finishes and never updated.
type RunSummary struct {
	RunID      string
	Seed       int64
	Scenario   string
	Strategy   string
	Ticks      int
	Drivers    int
	Bays       int
	Loads      int
	Delivered  int
	Failed     int
	Pending    int
	Rounds     int
	Breakdowns int
	CreatedAt  time.Time
}

// Everything a finished run produced.
type RunRecords struct {
	Summary RunSummary
	Rounds  []RoundRecord
	Loads   []*AidLoad
	Visits  []WardVisit
}
