package simulation

import (
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/platform/metrics"
	"aid-delivery-sim/internal/roadnet"
	"aid-delivery-sim/internal/schedule"
	"aid-delivery-sim/internal/services"
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"
)

var ErrNotInBay = errors.New("driver is not in a bay")

// Admission is the answer a depot gives a driver at its door.
type Admission int

const (
	// no loads left: the driver should not wait
	NothingToDo Admission = iota
	Waiting
	InBay
)

func (a Admission) String() string {
	switch a {
	case NothingToDo:
		return "nothing_to_do"
	case Waiting:
		return "waiting"
	case InBay:
		return "in_bay"
	}
	return fmt.Sprintf("admission(%d)", int(a))
}

// Depot hands out loads through a fixed number of loading bays. Drivers
// that find every bay taken queue in arrival order.
type Depot struct {
	ID       string
	Location orb.Point
	Node     *roadnet.Node
	Capacity int
	Strategy services.BatchStrategy

	inbox   *domain.Manifest
	inBays  []*Driver
	waiting []*Driver
	world   *World
}

func (dp *Depot) Inbox() *domain.Manifest { return dp.inbox }

func (dp *Depot) InBays() []*Driver { return slices.Clone(dp.inBays) }

func (dp *Depot) WaitingLine() []*Driver { return slices.Clone(dp.waiting) }

// EnterDepot admits d to a bay, queues it, or turns it away when there is
// nothing left to hand out.
func (dp *Depot) EnterDepot(d *Driver) Admission {
	w := dp.world
	if dp.inbox.Len() == 0 {
		return NothingToDo
	}

	if len(dp.inBays) < dp.Capacity {
		dp.enterBay(d)
		return InBay
	}

	dp.waiting = append(dp.waiting, d)
	d.Bay = BayWaiting
	d.depot = dp
	d.waitingSince = w.Now()
	w.log.V(1).Info("driver waiting for a bay", "depot", dp.ID, "driver", d.ID, "line", len(dp.waiting))

	var recheck schedule.StepFunc
	recheck = func(now float64) {
		// promoted by LeaveDepot in the meantime
		if d.Bay != BayWaiting {
			return
		}
		if len(dp.inBays) < dp.Capacity && len(dp.waiting) > 0 && dp.waiting[0] == d {
			dp.waiting = dp.waiting[1:]
			dp.enterBay(d)
			return
		}
		w.Schedule.ScheduleOnce(recheck)
	}
	w.Schedule.ScheduleOnce(recheck)

	return Waiting
}

func (dp *Depot) enterBay(d *Driver) {
	w := dp.world
	if d.Bay == BayWaiting {
		metrics.RecordBayWait(w.Now() - d.waitingSince)
	}

	dp.inBays = append(dp.inBays, d)
	d.Bay = BayInBay
	d.depot = dp
	w.log.V(1).Info("driver entered a bay", "depot", dp.ID, "driver", d.ID, "occupied", len(dp.inBays))

	_, err := w.Schedule.ScheduleAt(w.Now()+w.Params.LoadingTime, schedule.StepFunc(func(now float64) {
		dp.load(d, now)
	}))
	if err != nil {
		w.log.Error(err, "schedule loading", "depot", dp.ID, "driver", d.ID)
	}
}

// load hands the next batch to a driver in a bay and sends it on its way.
func (dp *Depot) load(d *Driver, now float64) {
	w := dp.world
	batch := dp.inbox.Head(w.Params.LoadsPerRound)

	if len(batch) > 0 {
		for _, l := range batch {
			w.visits[l.Ward]++
		}
		if err := dp.inbox.TransferTo(batch, d.inbox, now); err != nil {
			w.log.Error(err, "hand over loads", "depot", dp.ID, "driver", d.ID)
		}
		w.log.V(1).Info("driver took a consignment", "depot", dp.ID, "driver", d.ID, "ward", batch[0].Ward, "loads", len(batch))
	}

	if err := dp.LeaveDepot(d); err != nil {
		return
	}
	if d.inbox.Len() > 0 {
		d.startRound(now)
	}
}

// LeaveDepot frees d's bay, schedules d and lets the head of the waiting
// line into the freed bay.
func (dp *Depot) LeaveDepot(d *Driver) error {
	w := dp.world

	i := slices.Index(dp.inBays, d)
	if i < 0 {
		err := fmt.Errorf("leave depot %s: %s: %w", dp.ID, d.ID, ErrNotInBay)
		w.log.Error(err, "driver was never in a bay")
		return err
	}

	dp.inBays = slices.Delete(dp.inBays, i, i+1)
	d.Bay = BayDeparted
	d.depot = nil
	d.scheduleAt(w.Now() + 1)

	if len(dp.waiting) > 0 {
		next := dp.waiting[0]
		dp.waiting = dp.waiting[1:]
		dp.enterBay(next)
	}
	return nil
}

// takeBack returns undelivered loads to the back of the inbox.
func (dp *Depot) takeBack(loads []*domain.AidLoad, from *domain.Manifest, now float64) error {
	if len(loads) == 0 {
		return nil
	}
	if err := from.TransferTo(loads, dp.inbox, now); err != nil {
		return fmt.Errorf("depot %s: take back loads: %w", dp.ID, err)
	}
	return nil
}
