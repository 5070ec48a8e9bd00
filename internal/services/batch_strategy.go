package services

import (
	"aid-delivery-sim/internal/domain"
	"cmp"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
)

var ErrUnknownStrategy = errors.New("unknown batch strategy")

// BatchStrategy decides the order in which a depot hands out its loads.
type BatchStrategy string

const (
	StrategyFIFO          BatchStrategy = "fifo"
	StrategyDistance      BatchStrategy = "distance"
	StrategyPriority      BatchStrategy = "priority"
	StrategyVulnerability BatchStrategy = "vulnerability"
	StrategyRandom        BatchStrategy = "random"
)

func ParseBatchStrategy(s string) (BatchStrategy, error) {
	switch bs := BatchStrategy(strings.ToLower(strings.TrimSpace(s))); bs {
	case StrategyFIFO, StrategyDistance, StrategyPriority, StrategyVulnerability, StrategyRandom:
		return bs, nil
	case "":
		return StrategyFIFO, nil
	default:
		return "", fmt.Errorf("parse batch strategy %q: %w", s, ErrUnknownStrategy)
	}
}

// Sort a depot inbox in place according to strategy.
//
// distance puts the wards nearest the depot first, priority and
// vulnerability put the highest rating first, random shuffles with rng and
// fifo keeps generation order. Sorting is stable and falls back to ward name
// so equal ratings still come out in a predictable order.
func OrderInbox(loads []*domain.AidLoad, strategy BatchStrategy, depot domain.Coordinates, rng *rand.Rand) error {
	var less func(a, b *domain.AidLoad) int

	switch strategy {
	case StrategyFIFO:
		return nil
	case StrategyRandom:
		if rng == nil {
			return errors.New("order inbox: random strategy needs a random source")
		}
		rng.Shuffle(len(loads), func(i, j int) { loads[i], loads[j] = loads[j], loads[i] })
		return nil
	case StrategyDistance:
		less = func(a, b *domain.AidLoad) int {
			return cmp.Compare(a.Target.Distance(depot), b.Target.Distance(depot))
		}
	case StrategyPriority:
		less = func(a, b *domain.AidLoad) int { return cmp.Compare(b.Priority, a.Priority) }
	case StrategyVulnerability:
		less = func(a, b *domain.AidLoad) int { return cmp.Compare(b.Vulnerability, a.Vulnerability) }
	default:
		return fmt.Errorf("order inbox: %w: %q", ErrUnknownStrategy, strategy)
	}

	slices.SortStableFunc(loads, func(a, b *domain.AidLoad) int {
		if c := less(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.Ward, b.Ward)
	})

	return nil
}
