// Package scheduler runs actions at wall-clock deadlines.
//
// A Scheduler keeps a min-heap of Events ordered by execution time and a
// single loop goroutine that sleeps until the head is due or until a wake
// signal arrives (an insert or removal that may have changed the head).
// After a timed wait the loop re-checks under the lock that the event it
// waited for is still the head before popping it, so an earlier event
// inserted during the sleep is never skipped.
//
// Actions run outside the lock. A returned error or a panic is logged and
// the loop carries on. Events with a RepeatInterval are re-armed at
// ExecuteAt+RepeatInterval after every firing until removed.
//
//	s := scheduler.New()
//	s.SetLogger(logger.Component("scheduler"))
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
//	defer s.Stop()
//
//	id, _ := s.Add(scheduler.NewEvent("light on", start, 24*time.Hour, turnOn))
package scheduler
