package services

import (
	"aid-delivery-sim/internal/domain"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func load(id string, x, y float64) *domain.AidLoad {
	return domain.NewAidLoad(id, "ward-"+id, domain.Coordinates{X: x, Y: y})
}

func ids(loads []*domain.AidLoad) []string {
	out := make([]string, 0, len(loads))
	for _, l := range loads {
		out = append(out, l.ID)
	}
	return out
}

func TestSequenceRoundNearestNeighbor(t *testing.T) {
	// A is the anchor; B is 1 from A, C is much further
	a := load("A", 10, 0)
	b := load("B", 9, 0)
	c := load("C", 0, 5)

	got := ids(SequenceRound([]*domain.AidLoad{a, c, b}))
	want := []string{"A", "B", "C"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceRoundTieKeepsInboxOrder(t *testing.T) {
	anchor := load("X", 0, 0)
	left := load("L", -1, 0)
	right := load("R", 1, 0)

	got := ids(SequenceRound([]*domain.AidLoad{anchor, right, left}))
	if diff := cmp.Diff([]string{"X", "R", "L"}, got); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceRoundPermutationAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	inbox := make([]*domain.AidLoad, 0, 25)
	for i := 0; i < 25; i++ {
		inbox = append(inbox, load(string(rune('a'+i)), rng.Float64()*1000, rng.Float64()*1000))
	}
	original := ids(inbox)

	first := SequenceRound(inbox)
	second := SequenceRound(inbox)

	if diff := cmp.Diff(original, ids(inbox)); diff != "" {
		t.Fatalf("input was modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ids(first), ids(second)); diff != "" {
		t.Fatalf("not idempotent (-first +second):\n%s", diff)
	}

	seen := make(map[string]int)
	for _, l := range first {
		seen[l.ID]++
	}
	if len(seen) != len(inbox) || len(first) != len(inbox) {
		t.Fatalf("sequence has %d loads (%d distinct), want %d", len(first), len(seen), len(inbox))
	}
	if first[0] != inbox[0] {
		t.Fatalf("anchor = %s, want %s", first[0].ID, inbox[0].ID)
	}

	if got := SequenceRound(nil); got == nil || len(got) != 0 {
		t.Fatalf("empty inbox = %v, want empty slice", got)
	}
}

func TestPlanRound(t *testing.T) {
	start := domain.Coordinates{}
	loads := []*domain.AidLoad{load("A", 3, 4), load("B", 3, 0)}

	plan, err := PlanRound("driver-1", start, loads, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(plan.Stops))
	}
	if plan.Stops[0].LoadID != "A" || plan.Stops[1].LoadID != "B" {
		t.Fatalf("stops = %s, %s; want A, B", plan.Stops[0].LoadID, plan.Stops[1].LoadID)
	}
	// 5 out, 4 across, 3 back
	if plan.TotalDistance != 12 {
		t.Fatalf("distance = %g, want 12", plan.TotalDistance)
	}

	if _, err := PlanRound("", start, loads, false); err == nil {
		t.Fatalf("expected error for empty driver id")
	}
}

func TestOrderInbox(t *testing.T) {
	depot := domain.Coordinates{}
	near := load("near", 1, 0)
	mid := load("mid", 5, 0)
	far := load("far", 9, 0)
	near.Priority, mid.Priority, far.Priority = 1, 3, 2
	near.Vulnerability, mid.Vulnerability, far.Vulnerability = 2, 1, 3

	tests := []struct {
		strategy BatchStrategy
		want     []string
	}{
		{StrategyFIFO, []string{"far", "near", "mid"}},
		{StrategyDistance, []string{"near", "mid", "far"}},
		{StrategyPriority, []string{"mid", "far", "near"}},
		{StrategyVulnerability, []string{"far", "near", "mid"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			inbox := []*domain.AidLoad{far, near, mid}
			if err := OrderInbox(inbox, tt.strategy, depot, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(inbox)); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("random is seeded", func(t *testing.T) {
		a := []*domain.AidLoad{far, near, mid}
		b := []*domain.AidLoad{far, near, mid}
		_ = OrderInbox(a, StrategyRandom, depot, rand.New(rand.NewSource(3)))
		_ = OrderInbox(b, StrategyRandom, depot, rand.New(rand.NewSource(3)))
		if diff := cmp.Diff(ids(a), ids(b)); diff != "" {
			t.Fatalf("same seed, different order:\n%s", diff)
		}
		if err := OrderInbox(a, StrategyRandom, depot, nil); err == nil {
			t.Fatalf("expected error without a random source")
		}
	})

	if _, err := ParseBatchStrategy("nearest"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
	if s, err := ParseBatchStrategy(" Priority "); err != nil || s != StrategyPriority {
		t.Fatalf("ParseBatchStrategy = %q, %v", s, err)
	}
}
