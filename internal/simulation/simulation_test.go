package simulation

import (
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/roadnet"
	"aid-delivery-sim/internal/services"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1(0,0) - 2(1000,0) - 3(2000,0)
func lineNetwork(t *testing.T) *roadnet.Network {
	t.Helper()
	net := roadnet.NewNetwork(5)
	for i, x := range []float64{0, 1000, 2000} {
		_, err := net.AddNode(int64(i+1), orb.Point{x, 0})
		require.NoError(t, err)
	}
	for _, e := range [][2]int64{{1, 2}, {2, 3}} {
		_, err := net.AddEdge(e[0], e[1], nil, true)
		require.NoError(t, err)
	}
	return net
}

// n x n nodes spaced 1000 apart.
func gridNetwork(t *testing.T, n int) *roadnet.Network {
	t.Helper()
	net := roadnet.NewNetwork(5)
	id := func(r, c int) int64 { return int64(r*n + c + 1) }
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			_, err := net.AddNode(id(r, c), orb.Point{float64(c) * 1000, float64(r) * 1000})
			require.NoError(t, err)
		}
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if c+1 < n {
				_, err := net.AddEdge(id(r, c), id(r, c+1), nil, true)
				require.NoError(t, err)
			}
			if r+1 < n {
				_, err := net.AddEdge(id(r, c), id(r+1, c), nil, true)
				require.NoError(t, err)
			}
		}
	}
	return net
}

func testParams() Params {
	p := DefaultParams()
	p.Drivers = 0
	p.Bays = 1
	p.Strategy = services.StrategyFIFO
	return p
}

func newLineWorld(t *testing.T, p Params) (*World, *Depot) {
	t.Helper()
	w, err := NewWorld(p, lineNetwork(t), logr.Discard())
	require.NoError(t, err)

	dp, err := w.AddDepot("Depot", orb.Point{0, 0}, 0)
	require.NoError(t, err)

	_, err = w.AddWard(Ward{Name: "A", Center: orb.Point{1000, 0}})
	require.NoError(t, err)
	_, err = w.AddWard(Ward{Name: "B", Center: orb.Point{2000, 0}})
	require.NoError(t, err)

	require.NoError(t, w.Start())
	return w, dp
}

func TestNewWorldRejectsBadParams(t *testing.T) {
	p := DefaultParams()
	p.Bays = 0
	p.ProbBreakdown = 2

	_, err := NewWorld(p, lineNetwork(t), logr.Discard())
	assert.True(t, errors.Is(err, ErrInvalidParams))
	assert.Contains(t, err.Error(), "bays")
	assert.Contains(t, err.Error(), "prob_breakdown")
}

func TestStartNeedsDepots(t *testing.T) {
	w, err := NewWorld(testParams(), lineNetwork(t), logr.Discard())
	require.NoError(t, err)

	assert.True(t, errors.Is(w.Start(), ErrNoDepots))

	_, err = w.AddWard(Ward{Name: "A", Center: orb.Point{1000, 0}})
	assert.True(t, errors.Is(err, ErrNoDepots))
}

func TestAddWardSplitsHouseholdsIntoLoads(t *testing.T) {
	w, err := NewWorld(testParams(), lineNetwork(t), logr.Discard())
	require.NoError(t, err)
	dp, err := w.AddDepot("", orb.Point{2, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, "Depot 1", dp.ID)
	assert.Equal(t, orb.Point{0, 0}, dp.Location, "snapped to the nearest node")
	assert.Equal(t, 3, dp.Capacity)

	loads, err := w.AddWard(Ward{Name: "North", Center: orb.Point{1500, 3}, Households: 45, Vulnerability: 4})
	require.NoError(t, err)

	// 45/20 + 1
	require.Len(t, loads, 3)
	for _, l := range loads {
		assert.Equal(t, "North", l.Ward)
		assert.Equal(t, 4, l.Vulnerability)
		assert.Equal(t, domain.Coordinates{X: 1500, Y: 0}, l.DeliveryPoint)
		assert.Same(t, dp.Inbox(), l.Holder())
	}
	assert.Equal(t, 3, dp.Inbox().Len())
}

func TestSingleBayQueuesSecondDriver(t *testing.T) {
	p := testParams()
	w, dp := newLineWorld(t, p)

	d1, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d2, err := w.AddDriver(dp.Location)
	require.NoError(t, err)

	assert.Equal(t, InBay, dp.EnterDepot(d1))
	assert.Equal(t, Waiting, dp.EnterDepot(d2))
	assert.Equal(t, BayInBay, d1.Bay)
	assert.Equal(t, BayWaiting, d2.Bay)
	assert.Equal(t, []*Driver{d1}, dp.InBays())
	assert.Equal(t, []*Driver{d2}, dp.WaitingLine())
	require.NoError(t, w.CheckInvariants())

	err = dp.LeaveDepot(d2)
	assert.True(t, errors.Is(err, ErrNotInBay))
	assert.Equal(t, []*Driver{d2}, dp.WaitingLine(), "a failed leave changes nothing")

	// loading takes four ticks; the waiting driver is promoted the moment the bay frees
	w.Schedule.RunUntil(p.LoadingTime)

	assert.Equal(t, BayDeparted, d1.Bay)
	assert.Equal(t, 1, d1.Inbox().Len())
	assert.Equal(t, BayInBay, d2.Bay)
	assert.Equal(t, []*Driver{d2}, dp.InBays())
	assert.Empty(t, dp.WaitingLine())
	require.NoError(t, w.CheckInvariants())

	assert.True(t, errors.Is(dp.LeaveDepot(d1), ErrNotInBay))
}

func TestEmptyDepotRetiresDriver(t *testing.T) {
	w, err := NewWorld(testParams(), lineNetwork(t), logr.Discard())
	require.NoError(t, err)
	dp, err := w.AddDepot("Depot", orb.Point{0, 0}, 0)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	d, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d.enter(dp)

	assert.Equal(t, Retired, d.State)
	assert.Empty(t, dp.InBays())
	assert.Zero(t, w.Schedule.Pending())
}

func TestFailedDeliveriesGoBackToDepot(t *testing.T) {
	p := testParams()
	p.ProbFailedDelivery = 1
	p.LoadsPerRound = 2
	w, dp := newLineWorld(t, p)

	d, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d.enter(dp)

	// load at 4, out to A and B with a failed attempt at each, home at 24
	w.Schedule.RunUntil(24)

	require.Len(t, d.History(), 1)
	rec := d.History()[0]
	assert.Equal(t, 20.0, rec.Duration)
	assert.Equal(t, 4000.0, rec.Distance)
	assert.Equal(t, 24.0, rec.FinishedAt)

	require.Equal(t, 2, dp.Inbox().Len())
	for _, l := range w.Loads {
		assert.Equal(t, domain.LoadPending, l.Status)
		assert.Same(t, dp.Inbox(), l.Holder())

		attempts := 0
		for _, ev := range l.History {
			if ev.Kind == domain.EventAttempted {
				attempts++
			}
		}
		assert.Equal(t, 1, attempts, "load %s: %v", l.Ward, l.History)
	}
	assert.Equal(t, BayInBay, d.Bay, "back in for another try")
	assert.Equal(t, []domain.WardVisit{{Ward: "A", Visits: 1}, {Ward: "B", Visits: 1}}, w.Visits())
}

func TestDeliveriesCompleteAndDriverRetires(t *testing.T) {
	p := testParams()
	p.LoadsPerRound = 2
	w, dp := newLineWorld(t, p)

	d, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d.enter(dp)

	require.NoError(t, w.Run(context.Background()))

	for _, l := range w.Loads {
		assert.Equal(t, domain.LoadDelivered, l.Status)
		assert.Nil(t, l.Holder())
		assert.Equal(t, domain.EventDelivered, l.History[len(l.History)-1].Kind)
	}
	assert.Equal(t, Retired, d.State)
	assert.Len(t, d.History(), 1)
	assert.Zero(t, dp.Inbox().Len())

	s := w.Records().Summary
	assert.Equal(t, 2, s.Delivered)
	assert.Equal(t, 0, s.Pending)
	assert.Equal(t, 1, s.Rounds)
}

func gridWorld(t *testing.T, p Params) *World {
	t.Helper()
	w, err := NewWorld(p, gridNetwork(t, 4), logr.Discard())
	require.NoError(t, err)

	for _, at := range []orb.Point{{0, 0}, {3000, 3000}} {
		_, err := w.AddDepot("", at, 0)
		require.NoError(t, err)
	}
	wards := []Ward{
		{Name: "Amani", Center: orb.Point{1500, 1000}, Households: 50, Vulnerability: 3},
		{Name: "Baraka", Center: orb.Point{2000, 2500}, Households: 30, Vulnerability: 5},
		{Name: "Chemchem", Center: orb.Point{500, 3000}, Households: 10, Vulnerability: 1},
		{Name: "Dodoma", Center: orb.Point{3000, 500}, Households: 70, Vulnerability: 2},
		{Name: "Elimu", Center: orb.Point{1000, 1800}, Households: 20, Vulnerability: 4},
	}
	for _, ward := range wards {
		_, err := w.AddWard(ward)
		require.NoError(t, err)
	}
	return w
}

func gridParams() Params {
	p := DefaultParams()
	p.Ticks = 400
	p.Drivers = 4
	p.Bays = 1
	p.LoadsPerRound = 2
	p.ProbBreakdown = 0.01
	p.ProbFailedDelivery = 0.2
	return p
}

func TestInvariantsHoldThroughoutRun(t *testing.T) {
	p := gridParams()
	w := gridWorld(t, p)
	require.NoError(t, w.Start())
	require.NoError(t, w.CheckInvariants())

	for {
		next, ok := w.Schedule.Peek()
		if !ok || next > float64(p.Ticks) {
			break
		}
		w.Schedule.Step()
		require.NoError(t, w.CheckInvariants(), "tick %g", w.Now())
	}

	rec := w.Records()
	s := rec.Summary
	assert.Equal(t, len(w.Loads), s.Loads)
	assert.Equal(t, s.Loads, s.Delivered+s.Failed+s.Pending)
	assert.Equal(t, len(rec.Rounds), s.Rounds)
	assert.Equal(t, p.Drivers, s.Drivers)
	assert.Positive(t, s.Delivered)

	dispatched := 0
	for _, v := range rec.Visits {
		dispatched += v.Visits
	}
	assert.GreaterOrEqual(t, dispatched, s.Delivered)

	for _, l := range w.Loads {
		if l.Status == domain.LoadDelivered {
			assert.Equal(t, domain.EventDelivered, l.History[len(l.History)-1].Kind)
		}
	}
}

func TestSameSeedSameRun(t *testing.T) {
	run := func() domain.RunRecords {
		w := gridWorld(t, gridParams())
		require.NoError(t, w.Run(context.Background()))
		return w.Records()
	}

	a, b := run(), run()
	if diff := cmp.Diff(a.Summary, b.Summary); diff != "" {
		t.Errorf("summary mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(a.Rounds, b.Rounds); diff != "" {
		t.Errorf("rounds mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(a.Visits, b.Visits); diff != "" {
		t.Errorf("visits mismatch (-first +second):\n%s", diff)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w := gridWorld(t, gridParams())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(w.Start(), ErrAlreadyStarted))
}

func TestFinishReleasesTheRoad(t *testing.T) {
	p := gridParams()
	p.Ticks = 30
	w := gridWorld(t, p)
	require.NoError(t, w.Run(context.Background()))

	rec := w.Finish()
	for _, e := range w.Net.Edges() {
		assert.Zero(t, e.Occupancy(), "edge %v", e)
	}
	for _, d := range w.Drivers {
		assert.False(t, d.HasRoute())
	}
	assert.Equal(t, len(w.Loads), rec.Summary.Loads)
}

func TestBreakdownRecoveryMustTakeTime(t *testing.T) {
	p := testParams()
	p.ProbBreakdown = 1
	p.BreakdownRecoveryTime = 0

	_, err := NewWorld(p, lineNetwork(t), logr.Discard())
	assert.True(t, errors.Is(err, ErrInvalidParams))
	assert.Contains(t, err.Error(), "breakdown recovery time")
}

func TestConstantBreakdownsStillFinish(t *testing.T) {
	p := testParams()
	p.Ticks = 30
	p.ProbBreakdown = 1
	p.BreakdownRecoveryTime = 3
	w, dp := newLineWorld(t, p)

	d, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d.enter(dp)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	// leaves the bay at 5, then breaks down every third tick
	assert.Equal(t, 9, w.Records().Summary.Breakdowns)
	assert.Empty(t, d.History())
}

func TestBreakdownSendsDriverHomeThenResumes(t *testing.T) {
	p := testParams()
	p.LoadsPerRound = 2
	w, dp := newLineWorld(t, p)

	d, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d.enter(dp)

	// loaded at 4, sets off at 5, reaches ward A at 6
	w.Schedule.RunUntil(6)
	first := d.Sequence()[0]
	require.Same(t, first, d.current)
	require.Equal(t, 0, d.cursor)
	require.InDelta(t, 0, d.DistanceTo(orb.Point{1000, 0}), p.Resolution)

	w.Params.ProbBreakdown = 1
	require.True(t, w.Schedule.Step())
	require.Equal(t, 7.0, w.Now())

	assert.Equal(t, BrokenDown, d.State)
	assert.Nil(t, d.current)
	assert.Equal(t, 0, d.cursor)
	assert.Equal(t, domain.LoadPending, first.Status)
	assert.Equal(t, 1, w.breakdowns)

	require.True(t, d.HasRoute(), "route home")
	assert.Equal(t, 1000.0, d.RouteLength())
	assert.Equal(t, 2000.0, d.roundDistance, "out to A and back home")

	next, ok := w.Schedule.Peek()
	require.True(t, ok)
	assert.Equal(t, 7+p.BreakdownRecoveryTime, next)

	w.Params.ProbBreakdown = 0
	for i := 0; i < 5 && d.current == nil; i++ {
		require.True(t, w.Schedule.Step())
	}
	require.Same(t, first, d.current, "back on the same load")
	assert.Equal(t, 0, d.cursor)
	assert.Equal(t, Delivering, d.State)
	assert.InDelta(t, 0, d.DistanceTo(d.Home()), p.Resolution, "went home first")
	assert.Empty(t, d.History(), "getting home after a breakdown does not end the round")
	assert.Equal(t, 3000.0, d.roundDistance)
}

func TestUnreachableLoadIsAbandoned(t *testing.T) {
	net := lineNetwork(t)
	for i, x := range []float64{5000, 6000} {
		_, err := net.AddNode(int64(i+4), orb.Point{x, 0})
		require.NoError(t, err)
	}
	_, err := net.AddEdge(4, 5, nil, true)
	require.NoError(t, err)

	p := testParams()
	p.LoadsPerRound = 2
	w, err := NewWorld(p, net, logr.Discard())
	require.NoError(t, err)
	dp, err := w.AddDepot("Depot", orb.Point{0, 0}, 0)
	require.NoError(t, err)
	island, err := w.AddWard(Ward{Name: "Island", Center: orb.Point{5500, 0}})
	require.NoError(t, err)
	require.Len(t, island, 1)
	_, err = w.AddWard(Ward{Name: "A", Center: orb.Point{1000, 0}})
	require.NoError(t, err)
	require.NoError(t, w.Start())

	d, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d.enter(dp)

	// loaded at 4; the island is tried at 5, 6 and 7
	w.Schedule.RunUntil(6)
	l := island[0]
	require.Same(t, l, d.current)
	assert.Equal(t, 2, d.attempts)
	assert.Equal(t, domain.LoadPending, l.Status)

	require.True(t, w.Schedule.Step())
	assert.Equal(t, domain.LoadFailed, l.Status)
	assert.Equal(t, domain.EventUnreachable, l.History[len(l.History)-1].Kind)
	assert.Nil(t, l.Holder())
	assert.Equal(t, 1, d.cursor)
	assert.Zero(t, d.attempts)
	assert.Nil(t, d.current)
	assert.Equal(t, 1, d.Inbox().Len())

	require.True(t, w.Schedule.Step())
	assert.Equal(t, 8.0, w.Now())
	require.NotNil(t, d.current)
	assert.Equal(t, "A", d.current.Ward)
	assert.True(t, d.HasRoute())
	assert.Zero(t, d.attempts)
}

func TestDriverIDsAreUnique(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		p := testParams()
		p.Seed = seed
		w, err := NewWorld(p, lineNetwork(t), logr.Discard())
		require.NoError(t, err)

		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			d, err := w.AddDriver(orb.Point{0, 0})
			require.NoError(t, err)
			require.False(t, seen[d.ID], "seed %d: %s issued twice", seed, d.ID)
			seen[d.ID] = true
		}
	}
}

func TestFinishDropsWaitingLineRechecks(t *testing.T) {
	w, dp := newLineWorld(t, testParams())

	d1, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	d2, err := w.AddDriver(dp.Location)
	require.NoError(t, err)
	require.Equal(t, InBay, dp.EnterDepot(d1))
	require.Equal(t, Waiting, dp.EnterDepot(d2))
	require.Positive(t, w.Schedule.Pending())

	w.Finish()
	assert.Zero(t, w.Schedule.Pending())
	assert.False(t, w.Schedule.Step())
	assert.Equal(t, BayWaiting, d2.Bay)
}
