package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Action is the work an Event performs when it fires.
type Action func(ctx context.Context) error

// Event is a single scheduled action.
//
// Once passed to Scheduler.Add the event belongs to the scheduler: its
// ExecuteAt advances on every firing of a repeating event. Callers should
// inspect it through Executed or Scheduler.Pending.
type Event struct {
	ID             uuid.UUID
	Label          string
	CreatedAt      time.Time
	ExecuteAt      time.Time
	RepeatInterval time.Duration // zero for one-shot events
	Action         Action

	executed  atomic.Bool
	cancelled bool   // guarded by Scheduler.mu
	seq       uint64 // insertion order, breaks ExecuteAt ties
	index     int    // heap position, -1 when not queued
}

// NewEvent builds an Event with a fresh ID.
// A zero repeat makes it fire once.
func NewEvent(label string, at time.Time, repeat time.Duration, action Action) *Event {
	return &Event{
		ID:             uuid.New(),
		Label:          label,
		CreatedAt:      time.Now(),
		ExecuteAt:      at,
		RepeatInterval: repeat,
		Action:         action,
		index:          -1,
	}
}

// Executed reports whether a one-shot event has fired.
// Repeating events never report true.
func (e *Event) Executed() bool {
	return e.executed.Load()
}

// Repeats reports whether the event is re-armed after firing.
func (e *Event) Repeats() bool {
	return e.RepeatInterval > 0
}

// EventInfo is a read-only snapshot of a queued event.
type EventInfo struct {
	ID             uuid.UUID
	Label          string
	ExecuteAt      time.Time
	RepeatInterval time.Duration
}

// eventQueue implements heap.Interface ordered by ExecuteAt, then insertion order.
type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].ExecuteAt.Equal(q[j].ExecuteAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].ExecuteAt.Before(q[j].ExecuteAt)
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*Event) //nolint:forcetypeassert // heap only ever holds *Event
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}

func (q eventQueue) peek() *Event {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
