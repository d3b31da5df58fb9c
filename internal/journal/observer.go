package journal

import (
	"context"
	"time"

	"github.com/Mlodko/iot2025-plants/internal/actuator"
)

const recordTimeout = 2 * time.Second

// Logger is the subset of logging the observer needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// TransitionObserver returns an actuator.Observer that writes every
// transition to repo. Write failures are logged, never propagated.
func TransitionObserver(repo Repository, logger Logger) actuator.Observer {
	return actuator.ObserverFunc(func(t actuator.Transition) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		err := repo.RecordTransition(ctx, &TransitionRecord{
			Actuator:  t.Actuator,
			State:     t.State(),
			CreatedAt: t.At,
		})
		if err != nil && logger != nil {
			logger.Warn("failed to journal actuator transition",
				"actuator", t.Actuator,
				"state", t.State(),
				"error", err,
			)
		}
	})
}
