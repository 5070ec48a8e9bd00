package simulation

import (
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/movement"
	"aid-delivery-sim/internal/platform/metrics"
	"aid-delivery-sim/internal/schedule"
	"aid-delivery-sim/internal/services"
	"errors"

	"github.com/go-logr/logr"
	"github.com/paulmach/orb"
)

type DriverState int

const (
	Idle DriverState = iota
	Delivering
	Returning
	AtDepot
	BrokenDown
	Retired
)

func (s DriverState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Delivering:
		return "delivering"
	case Returning:
		return "returning"
	case AtDepot:
		return "at_depot"
	case BrokenDown:
		return "broken_down"
	case Retired:
		return "retired"
	}
	return "unknown"
}

// BayState tracks a driver's progress through a depot.
type BayState int

const (
	BayApproaching BayState = iota
	BayWaiting
	BayInBay
	BayDeparted
)

// Driver carries loads from a depot to wards and back, one round at a time.
type Driver struct {
	*movement.Traveller

	State DriverState
	Bay   BayState

	world *World
	home  orb.Point
	inbox *domain.Manifest
	depot *Depot

	// visiting order for the current round and the next stop in it
	sequence []*domain.AidLoad
	cursor   int
	current  *domain.AidLoad
	attempts int

	roundStart    float64
	roundDistance float64
	history       []domain.RoundRecord

	waitingSince float64
	pending      schedule.Handle
	log          logr.Logger
}

func (d *Driver) Home() orb.Point { return d.home }

func (d *Driver) Inbox() *domain.Manifest { return d.inbox }

// Sequence is the visiting order of the current round.
func (d *Driver) Sequence() []*domain.AidLoad { return d.sequence }

func (d *Driver) History() []domain.RoundRecord { return d.history }

// scheduleAt replaces the driver's pending step with one at t.
func (d *Driver) scheduleAt(t float64) {
	d.pending.Stop()
	h, err := d.world.Schedule.ScheduleAt(t, d)
	if err != nil {
		d.log.Error(err, "schedule driver")
		return
	}
	d.pending = h
}

// Step runs one decision of the driver's state machine.
func (d *Driver) Step(now float64) {
	w := d.world
	p := w.Params
	if d.State == Retired {
		return
	}

	if w.rng.Float64() < p.ProbBreakdown {
		d.breakDown(now)
		return
	}

	if d.current != nil && d.DistanceTo(d.current.DeliveryPoint.Point()) <= p.Resolution {
		d.deliver(now)
		return
	}

	if d.HasRoute() {
		if _, err := d.Advance(1); err != nil {
			d.log.Error(err, "advance along route")
			metrics.RecordRoutingFailure("disconnected")
		}
		d.scheduleAt(now + 1)
		return
	}

	if d.cursor < len(d.sequence) {
		d.State = Delivering
		d.headForLoad(now, d.sequence[d.cursor])
		d.scheduleAt(now + 1)
		return
	}

	if d.DistanceTo(d.home) > p.Resolution {
		d.State = Returning
		if err := d.HeadFor(d.home); err != nil {
			d.routeFailed(err)
		} else {
			d.roundDistance += d.RouteLength()
		}
		d.scheduleAt(now + 1)
		return
	}

	d.finishRound(now)
}

func (d *Driver) breakDown(now float64) {
	w := d.world
	w.breakdowns++
	metrics.RecordBreakdown()
	d.log.V(1).Info("driver broke down", "tick", now)

	d.ClearRoute()
	d.current = nil
	d.State = BrokenDown
	if err := d.HeadFor(d.home); err != nil {
		d.routeFailed(err)
	} else {
		d.roundDistance += d.RouteLength()
	}
	d.scheduleAt(now + w.Params.BreakdownRecoveryTime)
}

func (d *Driver) deliver(now float64) {
	w := d.world
	l := d.current

	if w.rng.Float64() < w.Params.ProbFailedDelivery {
		l.AttemptFailed(now)
		metrics.RecordDelivery(false)
		d.log.V(1).Info("delivery failed", "load", l.ID, "ward", l.Ward, "tick", now)
	} else {
		l.Deliver(now)
		metrics.RecordDelivery(true)
		d.log.V(1).Info("delivered", "load", l.ID, "ward", l.Ward, "tick", now)
	}

	d.cursor++
	d.current = nil
	d.ClearRoute()
	d.scheduleAt(now + w.Params.DeliveryTime)
}

func (d *Driver) headForLoad(now float64, l *domain.AidLoad) {
	d.current = l
	if d.DistanceTo(l.DeliveryPoint.Point()) <= d.world.Params.Resolution {
		return
	}

	if err := d.HeadFor(l.DeliveryPoint.Point()); err != nil {
		d.routeFailed(err)
		d.attempts++
		if d.attempts >= d.world.Params.MaxRouteAttempts {
			d.log.Info("giving up on unreachable load", "load", l.ID, "ward", l.Ward, "attempts", d.attempts)
			l.Abandon(now)
			d.cursor++
			d.current = nil
			d.attempts = 0
		}
		return
	}

	d.attempts = 0
	d.roundDistance += d.RouteLength()
}

func (d *Driver) routeFailed(err error) {
	var reason string
	switch {
	case errors.Is(err, movement.ErrNoPath):
		reason = "no_path"
	case errors.Is(err, movement.ErrGoalEdgeDisconnected):
		reason = "goal_disconnected"
	default:
		reason = "bad_input"
	}
	metrics.RecordRoutingFailure(reason)
	d.log.Error(err, "route request failed", "status", movement.RouteStatus(err))
}

// startRound re-sequences the loads just taken on and starts the clock.
func (d *Driver) startRound(now float64) {
	d.roundStart = now
	d.roundDistance = 0
	d.updateRound()

	if plan, err := services.PlanRound(d.ID, domain.FromPoint(d.home), d.sequence, true); err == nil {
		d.log.V(1).Info("round started", "tick", now, "stops", len(plan.Stops), "crow_flies", plan.TotalDistance)
	}
}

func (d *Driver) updateRound() {
	d.sequence = services.SequenceRound(d.inbox.All())
	d.cursor = 0
	d.current = nil
	d.attempts = 0
	d.State = Idle
}

// finishRound records the round, hands back what was not delivered and
// goes into the depot at home.
func (d *Driver) finishRound(now float64) {
	w := d.world

	if d.roundStart >= 0 {
		rec := domain.RoundRecord{
			DriverID:   d.ID,
			Duration:   now - d.roundStart,
			Distance:   d.roundDistance,
			FinishedAt: now,
		}
		d.history = append(d.history, rec)
		metrics.RecordRound()
		d.log.V(1).Info("round finished", "duration", rec.Duration, "distance", rec.Distance)
		d.roundStart = -1
	}

	dp := w.depotAt(d.Location)
	if dp == nil {
		d.log.Error(ErrNoDepots, "no depot at home base, retiring", "home", d.home)
		d.retire()
		return
	}

	if err := dp.takeBack(d.inbox.All(), d.inbox, now); err != nil {
		d.log.Error(err, "return undelivered loads")
	}
	d.sequence = nil
	d.cursor = 0
	d.current = nil

	d.enter(dp)
}

func (d *Driver) enter(dp *Depot) {
	d.State = AtDepot
	d.Bay = BayApproaching

	if dp.EnterDepot(d) == NothingToDo {
		d.retire()
	}
}

func (d *Driver) retire() {
	d.State = Retired
	d.pending.Stop()
	d.ClearRoute()
	d.log.V(1).Info("driver retired", "tick", d.world.Now())
}
