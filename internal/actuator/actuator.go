package actuator

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Well-known actuator names. They double as the "actuator" field of a
// control request and as the MQTT topic segment for state updates.
const (
	Light = "light"
	Pump  = "pump"
)

// Capability is what the control layer needs from a device: switch it on,
// switch it off. Both return an error wrapping ErrStateConflict when the
// device is already in the requested state.
type Capability interface {
	TurnOn() error
	TurnOff() error
}

// Driver is the raw relay behind an Actuator. Drivers fail loudly when
// asked for the state they are already in; Actuator never lets that happen.
type Driver interface {
	TurnOn() error
	TurnOff() error
}

// Logger defines the logging interface used by actuators.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Transition describes a completed state change.
type Transition struct {
	Actuator string
	On       bool
	At       time.Time
}

// State returns "on" or "off".
func (t Transition) State() string {
	if t.On {
		return "on"
	}
	return "off"
}

// Observer is notified after every successful transition.
type Observer interface {
	ActuatorChanged(t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(t Transition)

// ActuatorChanged calls f(t).
func (f ObserverFunc) ActuatorChanged(t Transition) { f(t) }

// Actuator guards a Driver with a tracked on/off state.
//
// Thread Safety:
//   - TurnOn, TurnOff and IsOn are safe for concurrent use.
//   - Transitions are serialised: observers of one transition all return
//     before the next transition starts, so observers see transitions in
//     the order they happened. Observers run outside the state lock and
//     may call IsOn, but must not switch the actuator they observe.
type Actuator struct {
	name   string
	driver Driver

	// switchMu is held for a whole transition, including notification.
	switchMu sync.Mutex

	mu sync.Mutex
	on bool

	obsMu     sync.RWMutex
	observers []Observer

	logger Logger
}

// New creates an Actuator that starts in the off state.
func New(name string, driver Driver) *Actuator {
	return &Actuator{
		name:   name,
		driver: driver,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the actuator.
func (a *Actuator) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	a.logger = logger
}

// AddObserver registers an observer for state transitions.
func (a *Actuator) AddObserver(o Observer) {
	a.obsMu.Lock()
	a.observers = append(a.observers, o)
	a.obsMu.Unlock()
}

// Name returns the actuator name.
func (a *Actuator) Name() string { return a.name }

// IsOn reports the tracked state.
func (a *Actuator) IsOn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.on
}

// TurnOn switches the actuator on. It returns ErrAlreadyOn without touching
// the driver when the actuator is already on.
func (a *Actuator) TurnOn() error {
	return a.set(true)
}

// TurnOff switches the actuator off. It returns ErrAlreadyOff without
// touching the driver when the actuator is already off.
func (a *Actuator) TurnOff() error {
	return a.set(false)
}

func (a *Actuator) set(on bool) error {
	a.switchMu.Lock()
	defer a.switchMu.Unlock()

	a.mu.Lock()
	if a.on == on {
		a.mu.Unlock()
		if on {
			return ErrAlreadyOn
		}
		return ErrAlreadyOff
	}

	var err error
	if on {
		err = a.driver.TurnOn()
	} else {
		err = a.driver.TurnOff()
	}
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrDriverFailed, a.name, err)
	}
	a.on = on
	a.mu.Unlock()

	t := Transition{Actuator: a.name, On: on, At: time.Now().UTC()}
	a.logger.Info("actuator switched", "actuator", a.name, "state", t.State())
	a.notify(t)
	return nil
}

func (a *Actuator) notify(t Transition) {
	a.obsMu.RLock()
	observers := make([]Observer, len(a.observers))
	copy(observers, a.observers)
	a.obsMu.RUnlock()

	for _, o := range observers {
		o.ActuatorChanged(t)
	}
}

// AllOff switches every given actuator off. Actuators already off are
// skipped; driver failures are joined into the returned error.
func AllOff(actuators ...*Actuator) error {
	var errs []error
	for _, a := range actuators {
		if a == nil {
			continue
		}
		if err := a.TurnOff(); err != nil && !errors.Is(err, ErrStateConflict) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
