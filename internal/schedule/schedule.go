// Package schedule is a single-threaded discrete event queue. Events at the
// same time run in the order they were scheduled.
package schedule

import (
	"container/heap"
	"errors"
	"fmt"
)

var ErrPastTime = errors.New("cannot schedule in the past")

// Steppable is anything the schedule can wake up.
type Steppable interface {
	Step(now float64)
}

// StepFunc lets plain functions be scheduled as one-shot events.
type StepFunc func(now float64)

func (f StepFunc) Step(now float64) { f(now) }

type event struct {
	time    float64
	seq     uint64
	target  Steppable
	stopped bool
	index   int
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *eventQueue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// Handle cancels a pending event.
type Handle struct {
	ev *event
}

// Stop cancels the event if it has not run yet. Stopping twice is harmless.
func (h Handle) Stop() {
	if h.ev != nil {
		h.ev.stopped = true
	}
}

// Schedule holds pending events and the current simulated time.
type Schedule struct {
	queue eventQueue
	seq   uint64
	now   float64
	steps int
}

func New() *Schedule {
	s := &Schedule{}
	heap.Init(&s.queue)
	return s
}

// Now is the time of the events currently running, or of the last step.
func (s *Schedule) Now() float64 { return s.now }

// Steps is the number of distinct times processed so far.
func (s *Schedule) Steps() int { return s.steps }

// Pending counts events that are queued and not stopped.
func (s *Schedule) Pending() int {
	n := 0
	for _, ev := range s.queue {
		if !ev.stopped {
			n++
		}
	}
	return n
}

// ScheduleOnce queues target for the next tick.
func (s *Schedule) ScheduleOnce(target Steppable) Handle {
	h, _ := s.ScheduleAt(s.now+1, target)
	return h
}

// ScheduleAt queues target at time t, which must not be earlier than Now.
func (s *Schedule) ScheduleAt(t float64, target Steppable) (Handle, error) {
	if t < s.now {
		return Handle{}, fmt.Errorf("schedule at %.2f (now %.2f): %w", t, s.now, ErrPastTime)
	}
	s.seq++
	ev := &event{time: t, seq: s.seq, target: target}
	heap.Push(&s.queue, ev)
	return Handle{ev: ev}, nil
}

// Step advances to the earliest pending time and runs every event due then,
// including events scheduled for that same time while stepping. It reports
// false when nothing is left to run.
func (s *Schedule) Step() bool {
	if !s.skipStopped() {
		return false
	}

	s.now = s.queue[0].time
	s.steps++
	for s.skipStopped() && s.queue[0].time == s.now {
		ev := heap.Pop(&s.queue).(*event)
		ev.stopped = true
		ev.target.Step(s.now)
	}
	return true
}

// Clear drops every queued event and returns how many had not been
// stopped. The clock is left where it is.
func (s *Schedule) Clear() int {
	n := s.Pending()
	for _, ev := range s.queue {
		ev.stopped = true
	}
	s.queue = s.queue[:0]
	return n
}

// Peek returns the time of the next live event.
func (s *Schedule) Peek() (float64, bool) {
	if !s.skipStopped() {
		return 0, false
	}
	return s.queue[0].time, true
}

// RunUntil steps while the next pending event is due at or before end.
func (s *Schedule) RunUntil(end float64) {
	for s.skipStopped() && s.queue[0].time <= end {
		s.Step()
	}
}

// skipStopped drops cancelled events from the head and reports whether a
// live event remains.
func (s *Schedule) skipStopped() bool {
	for len(s.queue) > 0 && s.queue[0].stopped {
		heap.Pop(&s.queue)
	}
	return len(s.queue) > 0
}
