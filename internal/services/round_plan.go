package services

import (
	"aid-delivery-sim/internal/domain"
	"errors"
)

// A single stop in a planned round.
type RoundStop struct {
	LoadID string
	Ward   string
	Target domain.Coordinates
	// straight-line distance from the previous stop
	LegDistance float64
}

// Represents the visiting order for one driver's round, with the
// straight-line distance it would cover. It is planning data only; the
// driver's actual route follows the road network.
type RoundPlan struct {
	DriverID      string
	Stops         []RoundStop
	TotalDistance float64
}

// Plan a round for the loads a driver is carrying.
//
// Stops follow SequenceRound. The estimate optionally includes the leg
// back to the start so it can be compared with the distance driven.
func PlanRound(
	driverID string,
	start domain.Coordinates,
	loads []*domain.AidLoad,
	returnToStart bool,
) (*RoundPlan, error) {
	if driverID == "" {
		return nil, errors.New("plan round: driver id must be non-empty")
	}

	plan := &RoundPlan{
		DriverID: driverID,
		Stops:    []RoundStop{},
	}
	if len(loads) == 0 {
		return plan, nil
	}

	current := start
	for _, l := range SequenceRound(loads) {
		leg := current.Distance(l.Target)
		plan.Stops = append(plan.Stops, RoundStop{
			LoadID:      l.ID,
			Ward:        l.Ward,
			Target:      l.Target,
			LegDistance: leg,
		})
		plan.TotalDistance += leg
		current = l.Target
	}

	// Optionally includes return leg to the depot for total round metrics.
	if returnToStart {
		plan.TotalDistance += current.Distance(start)
	}

	return plan, nil
}
