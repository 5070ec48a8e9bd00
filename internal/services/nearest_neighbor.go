package services

import (
	"aid-delivery-sim/internal/domain"
	"math"
	"slices"
)

// Order a driver's loads into a visiting sequence using a greedy
// nearest-neighbor chain.
//
// The first load in the inbox is the anchor. Each following stop is the
// remaining load whose target is closest in a straight line to the previous
// stop. It does not attempt global route optimization; the first load
// encountered wins a tie so the result only depends on the input order.
func SequenceRound(loads []*domain.AidLoad) []*domain.AidLoad {
	if len(loads) == 0 {
		return []*domain.AidLoad{}
	}

	remaining := slices.Clone(loads)
	sequence := make([]*domain.AidLoad, 0, len(loads))

	current := remaining[0]
	remaining = remaining[1:]
	sequence = append(sequence, current)

	for len(remaining) > 0 {
		best := -1
		minDist := math.MaxFloat64

		// Select next stop by minimum straight-line distance (greedy step.)
		for i, l := range remaining {
			if d := l.Target.Distance(current.Target); d < minDist {
				minDist = d
				best = i
			}
		}

		current = remaining[best]
		remaining = slices.Delete(remaining, best, best+1)
		sequence = append(sequence, current)
	}

	return sequence
}
