// Package simulation runs the aid delivery model: depots with loading bays,
// drivers that carry loads over the road network, and the records a run
// leaves behind.
package simulation

import (
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/movement"
	"aid-delivery-sim/internal/ports"
	"aid-delivery-sim/internal/roadnet"
	"aid-delivery-sim/internal/schedule"
	"aid-delivery-sim/internal/services"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/multierr"
)

var (
	ErrNoDepots       = errors.New("no depots")
	ErrAlreadyStarted = errors.New("world already started")
)

// World is the state of one run. Nothing in it is shared with other runs
// and it must only be touched from one goroutine.
type World struct {
	Params     Params
	Schedule   *schedule.Schedule
	Net        *roadnet.Network
	Finder     ports.PathFinder
	Congestion movement.Congestion

	Depots  []*Depot
	Drivers []*Driver
	Loads   []*domain.AidLoad

	visits     map[string]int
	breakdowns int
	rng        *rand.Rand
	log        logr.Logger
	started    bool
}

// NewWorld prepares an empty run over net. Params are validated here.
func NewWorld(params Params, net *roadnet.Network, logger logr.Logger) (*World, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}
	if net == nil {
		return nil, errors.New("new world: road network must be non-nil")
	}

	congestion := movement.DefaultCongestion(params.Speed)
	congestion.FollowingDistance = params.FollowingDistance
	congestion.MinSpeed = params.MinSpeed

	return &World{
		Params:     params,
		Schedule:   schedule.New(),
		Net:        net,
		Finder:     roadnet.NewAStarFinder(net),
		Congestion: congestion,
		visits:     make(map[string]int),
		rng:        rand.New(rand.NewSource(params.Seed)),
		log:        logger,
	}, nil
}

func (w *World) Now() float64 { return w.Schedule.Now() }

func (w *World) Rand() *rand.Rand { return w.rng }

func (w *World) Logger() logr.Logger { return w.log }

// newID draws a uuid from the run's random source so ids repeat with the seed.
func (w *World) newID() string {
	id, err := uuid.NewRandomFromReader(w.rng)
	if err != nil {
		return fmt.Sprintf("%08x", w.rng.Uint32())
	}
	return id.String()
}

// AddDepot places a depot on the network node nearest at. bays <= 0 uses
// the default from Params.
func (w *World) AddDepot(name string, at orb.Point, bays int) (*Depot, error) {
	node := w.Net.SnapToNode(at)
	if node == nil {
		return nil, fmt.Errorf("add depot %s: %w", name, movement.ErrNoNearbyEdge)
	}
	if bays <= 0 {
		bays = w.Params.Bays
	}
	if name == "" {
		name = fmt.Sprintf("Depot %d", len(w.Depots)+1)
	}

	d := &Depot{
		ID:       name,
		Location: node.Point,
		Node:     node,
		Capacity: bays,
		Strategy: w.Params.Strategy,
		inbox:    domain.NewManifest(name, 0),
		world:    w,
	}
	w.Depots = append(w.Depots, d)
	w.log.V(1).Info("depot placed", "depot", name, "node", node.ID, "bays", bays)
	return d, nil
}

// Ward is a community that needs aid.
type Ward struct {
	Name          string
	Center        orb.Point
	Households    int
	Priority      int
	Vulnerability int
}

// AddWard generates households/ManifestSize+1 loads for the ward and gives
// them to the depot closest to it.
func (w *World) AddWard(ward Ward) ([]*domain.AidLoad, error) {
	depot := w.closestDepot(ward.Center)
	if depot == nil {
		return nil, fmt.Errorf("add ward %s: %w", ward.Name, ErrNoDepots)
	}
	point, ok := w.Net.SnapToNetwork(ward.Center)
	if !ok {
		return nil, fmt.Errorf("add ward %s: %w", ward.Name, movement.ErrNoNearbyEdge)
	}

	n := ward.Households/w.Params.ManifestSize + 1
	loads := make([]*domain.AidLoad, 0, n)
	for i := 0; i < n; i++ {
		l := domain.NewAidLoad(w.newID(), ward.Name, domain.FromPoint(ward.Center))
		l.DeliveryPoint = domain.FromPoint(point)
		l.Priority = ward.Priority
		l.Vulnerability = ward.Vulnerability
		if err := l.Assign(depot.inbox, w.Now()); err != nil {
			return nil, fmt.Errorf("add ward %s: %w", ward.Name, err)
		}
		loads = append(loads, l)
	}
	w.Loads = append(w.Loads, loads...)
	return loads, nil
}

func (w *World) closestDepot(p orb.Point) *Depot {
	var best *Depot
	minDist := math.MaxFloat64
	for _, d := range w.Depots {
		if dist := planar.Distance(d.Location, p); dist < minDist {
			minDist = dist
			best = d
		}
	}
	return best
}

// depotAt returns the first depot within resolution of p.
func (w *World) depotAt(p orb.Point) *Depot {
	for _, d := range w.Depots {
		if planar.Distance(d.Location, p) <= w.Params.Resolution {
			return d
		}
	}
	return nil
}

// driverID draws ids until one is not taken by an existing driver.
func (w *World) driverID() string {
	for {
		id := "Driver " + strings.ToUpper(strings.ReplaceAll(w.newID(), "-", "")[:8])
		taken := slices.ContainsFunc(w.Drivers, func(d *Driver) bool { return d.ID == id })
		if !taken {
			return id
		}
	}
}

// AddDriver creates a driver based at home. It is not scheduled.
func (w *World) AddDriver(home orb.Point) (*Driver, error) {
	id := w.driverID()

	t, err := movement.NewTraveller(id, home, w.Params.Speed, w.Net, w.Finder, w.Congestion)
	if err != nil {
		return nil, fmt.Errorf("add driver: %w", err)
	}

	d := &Driver{
		Traveller:  t,
		world:      w,
		home:       home,
		inbox:      domain.NewManifest(id, w.Params.LoadsPerRound),
		roundStart: -1,
		log:        w.log.WithValues("driver", id),
	}
	w.Drivers = append(w.Drivers, d)
	return d, nil
}

// Start orders every depot inbox, then spawns Params.Drivers drivers at
// randomly chosen depots and sends each straight into its depot.
func (w *World) Start() error {
	if w.started {
		return ErrAlreadyStarted
	}
	if len(w.Depots) == 0 {
		return fmt.Errorf("start: %w", ErrNoDepots)
	}
	w.started = true

	for _, dp := range w.Depots {
		if err := services.OrderInbox(dp.inbox.Loads, dp.Strategy, domain.FromPoint(dp.Location), w.rng); err != nil {
			return fmt.Errorf("start: depot %s: %w", dp.ID, err)
		}
	}

	for i := 0; i < w.Params.Drivers; i++ {
		dp := w.Depots[w.rng.Intn(len(w.Depots))]
		d, err := w.AddDriver(dp.Location)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		d.enter(dp)
	}

	w.log.Info("simulation started", "depots", len(w.Depots), "drivers", len(w.Drivers), "loads", len(w.Loads))
	return nil
}

// Run steps the schedule until Params.Ticks, nothing is left to do or ctx
// is cancelled.
func (w *World) Run(ctx context.Context) error {
	if !w.started {
		if err := w.Start(); err != nil {
			return err
		}
	}

	end := float64(w.Params.Ticks)
	for i := 0; ; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run: stopped at tick %g: %w", w.Now(), err)
			}
		}
		next, ok := w.Schedule.Peek()
		if !ok || next > end {
			break
		}
		w.Schedule.Step()
	}

	w.log.Info("simulation finished", "tick", w.Now(), "steps", w.Schedule.Steps())
	return nil
}

// Finish takes every driver off the road, drops everything still scheduled
// (driver steps, bay loading, waiting line rechecks) and returns the records
// of the run.
func (w *World) Finish() domain.RunRecords {
	for _, d := range w.Drivers {
		d.pending.Stop()
		d.ClearRoute()
	}
	dropped := w.Schedule.Clear()
	w.log.V(1).Info("simulation closed", "dropped_events", dropped)
	return w.Records()
}

// Visits returns the per-ward dispatch counts sorted by ward name.
func (w *World) Visits() []domain.WardVisit {
	out := make([]domain.WardVisit, 0, len(w.visits))
	for ward, n := range w.visits {
		out = append(out, domain.WardVisit{Ward: ward, Visits: n})
	}
	slices.SortFunc(out, func(a, b domain.WardVisit) int { return strings.Compare(a.Ward, b.Ward) })
	return out
}

// Rounds returns every completed round, driver by driver.
func (w *World) Rounds() []domain.RoundRecord {
	var out []domain.RoundRecord
	for _, d := range w.Drivers {
		out = append(out, d.history...)
	}
	return out
}

// Records collects what the run produced. The summary has no run id.
func (w *World) Records() domain.RunRecords {
	s := domain.RunSummary{
		Seed:       w.Params.Seed,
		Strategy:   string(w.Params.Strategy),
		Ticks:      int(w.Now()),
		Drivers:    len(w.Drivers),
		Bays:       w.Params.Bays,
		Loads:      len(w.Loads),
		Breakdowns: w.breakdowns,
	}
	for _, l := range w.Loads {
		switch l.Status {
		case domain.LoadDelivered:
			s.Delivered++
		case domain.LoadFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}

	rounds := w.Rounds()
	s.Rounds = len(rounds)

	return domain.RunRecords{
		Summary: s,
		Rounds:  rounds,
		Loads:   w.Loads,
		Visits:  w.Visits(),
	}
}

// CheckInvariants reports every broken occupancy or bay invariant.
func (w *World) CheckInvariants() error {
	var err error

	onEdge := make(map[*roadnet.Edge]int)
	for _, d := range w.Drivers {
		if d.HasRoute() && d.Edge != nil && d.Edge.Tracked {
			onEdge[d.Edge]++
		}
	}
	for _, e := range w.Net.Edges() {
		if got, want := e.Occupancy(), onEdge[e]; got != want {
			err = multierr.Append(err, fmt.Errorf("%v: occupancy %d, %d drivers routed on it", e, got, want))
		}
	}

	for _, dp := range w.Depots {
		if len(dp.inBays) > dp.Capacity {
			err = multierr.Append(err, fmt.Errorf("depot %s: %d in bays, capacity %d", dp.ID, len(dp.inBays), dp.Capacity))
		}
		for _, d := range dp.waiting {
			if slices.Contains(dp.inBays, d) {
				err = multierr.Append(err, fmt.Errorf("depot %s: %s both waiting and in a bay", dp.ID, d.ID))
			}
		}
	}

	for _, l := range w.Loads {
		if l.Status == domain.LoadPending && l.Holder() == nil {
			err = multierr.Append(err, fmt.Errorf("load %s: pending without a holder", l.ID))
		}
	}

	return err
}
