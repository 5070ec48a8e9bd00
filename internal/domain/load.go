package domain

import (
	"errors"
	"fmt"
)

var ErrNotHeld = errors.New("load is not held by the sender")

type LoadStatus string

const (
	LoadPending   LoadStatus = "pending"
	LoadDelivered LoadStatus = "delivered"
	LoadFailed    LoadStatus = "failed"
)

type LoadEventKind string

const (
	EventCreated     LoadEventKind = "created"
	EventTransferred LoadEventKind = "transferred"
	EventDelivered   LoadEventKind = "delivered"
	EventAttempted   LoadEventKind = "delivery_failed"
	EventUnreachable LoadEventKind = "unreachable"
)

// One entry in a load's history. From and To name the holders involved.
type LoadEvent struct {
	Tick float64
	Kind LoadEventKind
	From string
	To   string
}

func (e LoadEvent) String() string {
	return fmt.Sprintf("%s@%g(%s>%s)", e.Kind, e.Tick, e.From, e.To)
}

// Represents a single consignment of aid bound for one ward.
// A load is held by exactly one LoadHolder at a time until it is delivered
// or given up on; its history is append-only.
type AidLoad struct {
	ID            string
	Ward          string
	Depot         string
	Target        Coordinates
	DeliveryPoint Coordinates
	Priority      int
	Vulnerability int
	Status        LoadStatus
	History       []LoadEvent

	holder LoadHolder
}

func NewAidLoad(id, ward string, target Coordinates) *AidLoad {
	return &AidLoad{
		ID:            id,
		Ward:          ward,
		Target:        target,
		DeliveryPoint: target,
		Status:        LoadPending,
	}
}

func (l *AidLoad) Holder() LoadHolder { return l.holder }

func (l *AidLoad) record(tick float64, kind LoadEventKind, from, to string) {
	l.History = append(l.History, LoadEvent{Tick: tick, Kind: kind, From: from, To: to})
}

// Place the load with its first holder.
func (l *AidLoad) Assign(to LoadHolder, tick float64) error {
	if err := to.AddLoad(l); err != nil {
		return fmt.Errorf("assign load %s: %w", l.ID, err)
	}
	l.holder = to
	l.Depot = to.HolderID()
	l.record(tick, EventCreated, "", to.HolderID())
	return nil
}

// Move the load from its current holder to another.
func (l *AidLoad) Transfer(to LoadHolder, tick float64) error {
	from := l.holder
	if from == nil || !from.RemoveLoad(l) {
		return fmt.Errorf("transfer load %s: %w", l.ID, ErrNotHeld)
	}
	if err := to.AddLoad(l); err != nil {
		// put it back where it was
		_ = from.AddLoad(l)
		return fmt.Errorf("transfer load %s to %s: %w", l.ID, to.HolderID(), err)
	}
	l.holder = to
	l.record(tick, EventTransferred, from.HolderID(), to.HolderID())
	return nil
}

// Hand the load over at its destination. It leaves its holder for good.
func (l *AidLoad) Deliver(tick float64) {
	by := ""
	if l.holder != nil {
		by = l.holder.HolderID()
		l.holder.RemoveLoad(l)
	}
	l.holder = nil
	l.Status = LoadDelivered
	l.record(tick, EventDelivered, by, l.Ward)
}

// Note a failed delivery attempt. The load stays with its holder.
func (l *AidLoad) AttemptFailed(tick float64) {
	by := ""
	if l.holder != nil {
		by = l.holder.HolderID()
	}
	l.record(tick, EventAttempted, by, l.Ward)
}

// Give up on the load because its destination cannot be reached.
func (l *AidLoad) Abandon(tick float64) {
	by := ""
	if l.holder != nil {
		by = l.holder.HolderID()
		l.holder.RemoveLoad(l)
	}
	l.holder = nil
	l.Status = LoadFailed
	l.record(tick, EventUnreachable, by, l.Ward)
}
