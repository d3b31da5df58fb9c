package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Scheduler fires Events at their ExecuteAt time.
//
// All methods are safe for concurrent use. Add and Remove may be called
// from any goroutine, including from inside a running Action.
type Scheduler struct {
	mu      sync.Mutex
	queue   eventQueue
	byID    map[uuid.UUID]*Event
	seq     uint64
	current *Event // popped and executing, nil otherwise
	started bool
	stopped bool

	// wake holds at most one pending signal; senders never block.
	wake     chan struct{}
	done     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once

	logger Logger
	now    func() time.Time
}

// New creates an idle Scheduler. Call Start or Run to begin firing events.
func New() *Scheduler {
	return &Scheduler{
		byID:     make(map[uuid.UUID]*Event),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Add queues an event and wakes the loop so it can re-evaluate the head.
// A zero ID or CreatedAt is filled in. Events added after Stop are queued
// but never fire.
func (s *Scheduler) Add(ev *Event) (uuid.UUID, error) {
	if ev == nil || ev.Action == nil {
		return uuid.Nil, ErrNilAction
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}

	// Once pushed, the loop owns ev and may fire and re-arm it at any time.
	s.mu.Lock()
	s.push(ev)
	id, label, at, repeat := ev.ID, ev.Label, ev.ExecuteAt, ev.RepeatInterval
	s.mu.Unlock()

	s.signal()

	s.logger.Debug("event scheduled",
		"event_id", id,
		"label", label,
		"execute_at", at,
		"repeat", repeat,
	)
	return id, nil
}

// Schedule is shorthand for Add(NewEvent(label, at, repeat, action)).
func (s *Scheduler) Schedule(label string, at time.Time, repeat time.Duration, action Action) (uuid.UUID, error) {
	return s.Add(NewEvent(label, at, repeat, action))
}

// Remove cancels the event with the given ID. It reports whether the event
// was known. Removing an event that is currently executing lets the running
// action finish but stops a repeating event from being re-armed.
func (s *Scheduler) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	ev, ok := s.byID[id]
	var label string
	if ok {
		label = ev.Label
		delete(s.byID, id)
		if ev == s.current {
			ev.cancelled = true
		} else if ev.index >= 0 {
			heap.Remove(&s.queue, ev.index)
		}
	}
	s.mu.Unlock()

	if ok {
		s.signal()
		s.logger.Debug("event removed", "event_id", id, "label", label)
	}
	return ok
}

// Len returns the number of queued events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Pending returns a snapshot of queued events, earliest first.
func (s *Scheduler) Pending() []EventInfo {
	s.mu.Lock()
	infos := make([]EventInfo, 0, len(s.queue))
	for _, ev := range s.queue {
		infos = append(infos, EventInfo{
			ID:             ev.ID,
			Label:          ev.Label,
			ExecuteAt:      ev.ExecuteAt,
			RepeatInterval: ev.RepeatInterval,
		})
	}
	s.mu.Unlock()

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].ExecuteAt.Before(infos[j].ExecuteAt)
	})
	return infos
}

// Start runs the scheduling loop in a new goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.claim(); err != nil {
		return err
	}
	go s.loop(ctx) //nolint:errcheck // loop errors are logged
	return nil
}

// Run runs the scheduling loop on the calling goroutine until Stop is
// called (returns nil) or ctx is cancelled (returns ctx.Err()).
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.claim(); err != nil {
		return err
	}
	return s.loop(ctx)
}

// Stop terminates the loop and waits for it to return. An action that is
// executing when Stop is called is allowed to finish. Safe to call more
// than once and before Start.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		s.mu.Unlock()

		close(s.done)
		if started {
			<-s.loopDone
		}
		s.logger.Info("scheduler stopped")
	})
}

func (s *Scheduler) claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyRunning
	}
	s.started = true
	return nil
}

// loop is the single consumer of the event queue.
func (s *Scheduler) loop(ctx context.Context) error {
	defer close(s.loopDone)
	s.logger.Info("scheduler started")

	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.mu.Lock()
		head := s.queue.peek()
		var at time.Time
		if head != nil {
			at = head.ExecuteAt
		}
		s.mu.Unlock()

		if head == nil {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		wait := at.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-s.wake:
			timer.Stop()
			continue
		case <-s.done:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		// The head may have been removed or displaced while we slept.
		ev := s.popIfHead(head)
		if ev == nil {
			continue
		}
		s.fire(ctx, ev)
	}
}

// popIfHead pops the queue head only if it is still want.
func (s *Scheduler) popIfHead(want *Event) *Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.peek() != want {
		return nil
	}
	ev := heap.Pop(&s.queue).(*Event) //nolint:forcetypeassert // heap only ever holds *Event
	s.current = ev
	return ev
}

// fire executes ev and then re-arms or retires it.
func (s *Scheduler) fire(ctx context.Context, ev *Event) {
	s.execute(ctx, ev)

	s.mu.Lock()
	s.current = nil
	if ev.Repeats() && !ev.cancelled {
		ev.ExecuteAt = ev.ExecuteAt.Add(ev.RepeatInterval)
		s.push(ev)
		s.mu.Unlock()
		s.signal()
		return
	}
	if !ev.cancelled {
		delete(s.byID, ev.ID)
	}
	if !ev.Repeats() {
		ev.executed.Store(true)
	}
	s.mu.Unlock()
}

// execute runs the action, converting panics into log entries.
func (s *Scheduler) execute(ctx context.Context, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled action panic recovered",
				"event_id", ev.ID,
				"label", ev.Label,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	s.logger.Debug("firing event", "event_id", ev.ID, "label", ev.Label, "due", ev.ExecuteAt)

	if err := ev.Action(ctx); err != nil {
		s.logger.Error("scheduled action failed",
			"event_id", ev.ID,
			"label", ev.Label,
			"error", err,
		)
	}
}

// push inserts ev. Caller must hold s.mu.
func (s *Scheduler) push(ev *Event) {
	s.seq++
	ev.seq = s.seq
	heap.Push(&s.queue, ev)
	s.byID[ev.ID] = ev
}

// signal wakes the loop without blocking; a pending signal is enough.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
