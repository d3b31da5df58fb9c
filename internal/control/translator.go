package control

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Mlodko/iot2025-plants/internal/actuator"
	"github.com/Mlodko/iot2025-plants/internal/journal"
	"github.com/Mlodko/iot2025-plants/internal/scheduler"
)

// EventScheduler accepts events for later execution.
// *scheduler.Scheduler satisfies it.
type EventScheduler interface {
	Add(ev *scheduler.Event) (uuid.UUID, error)
}

// Journal records the outcome of every handled payload.
// *journal.SQLiteRepository satisfies it.
type Journal interface {
	RecordControl(ctx context.Context, rec *journal.ControlRecord) error
}

// Logger defines the logging interface used by the Translator.
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

// Translator maps control requests onto actuator calls and scheduler events.
//
// It is safe for concurrent use as long as the scheduler and capabilities are.
type Translator struct {
	sched EventScheduler
	light actuator.Capability
	pump  actuator.Capability
	rate  float64 // pump flow, ml per second

	logger  Logger
	journal Journal
	now     func() time.Time
}

// NewTranslator creates a Translator. rateMLPerSecond is the pump's
// calibrated flow rate and must be positive.
func NewTranslator(sched EventScheduler, light, pump actuator.Capability, rateMLPerSecond float64) (*Translator, error) {
	if sched == nil || light == nil || pump == nil {
		return nil, errors.New("control: scheduler, light and pump are required")
	}
	if rateMLPerSecond <= 0 || math.IsNaN(rateMLPerSecond) || math.IsInf(rateMLPerSecond, 0) {
		return nil, fmt.Errorf("control: pump rate must be a positive number, got %v", rateMLPerSecond)
	}
	return &Translator{
		sched:  sched,
		light:  light,
		pump:   pump,
		rate:   rateMLPerSecond,
		logger: noopLogger{},
		now:    time.Now,
	}, nil
}

// SetLogger sets the logger for the translator.
func (t *Translator) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	t.logger = logger
}

// SetJournal enables recording of handled payloads. Nil disables it.
func (t *Translator) SetJournal(j Journal) {
	t.journal = j
}

// PulseDuration returns how long a pump flowing at rate ml/s must run to
// move volumeML, rounded to the nearest nanosecond. Results beyond the
// range of time.Duration saturate at its maximum.
func PulseDuration(volumeML int, rate float64) time.Duration {
	ns := math.Round(float64(volumeML) / rate * float64(time.Second))
	if ns >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(ns)
}

// Handle decodes a control payload and applies it.
//
// Payloads that fail to decode are logged and dropped; Handle returns nil
// for them. An error is returned only when a valid request could not be
// applied.
func (t *Translator) Handle(ctx context.Context, topic string, payload []byte) error {
	rec := &journal.ControlRecord{
		Topic:      topic,
		Payload:    string(payload),
		ReceivedAt: t.now().UTC(),
	}

	req, err := Decode(payload)
	if err != nil {
		t.logger.Warn("dropping invalid control request", "topic", topic, "error", err)
		rec.Status = journal.StatusRejected
		rec.Error = err.Error()
		t.record(ctx, rec)
		return nil
	}

	rec.Actuator = req.Actuator()
	rec.Command = string(req.Cmd())

	if err := t.Apply(ctx, req); err != nil {
		rec.Status = journal.StatusFailed
		rec.Error = err.Error()
		t.record(ctx, rec)
		return fmt.Errorf("applying %s %s: %w", req.Actuator(), req.Cmd(), err)
	}

	rec.Status = journal.StatusAccepted
	t.record(ctx, rec)
	return nil
}

// Apply executes or schedules a decoded request.
func (t *Translator) Apply(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return req.Accept(&applier{t: t, now: t.now()})
}

func (t *Translator) record(ctx context.Context, rec *journal.ControlRecord) {
	if t.journal == nil {
		return
	}
	if err := t.journal.RecordControl(ctx, rec); err != nil {
		t.logger.Warn("failed to journal control request",
			"topic", rec.Topic,
			"status", rec.Status,
			"error", err,
		)
	}
}

// applier carries one request through the visitor. now is sampled once so
// that "now" and every offset derived from it agree.
type applier struct {
	t   *Translator
	now time.Time
}

func (a *applier) VisitLight(r LightRequest) error {
	light := a.t.light

	if r.Schedule == nil {
		return a.t.invoke(actuator.Light, light, r.Command)
	}

	repeat := r.Schedule.Repeat
	if r.Command == CommandOff {
		start := r.Schedule.Start.Resolve(a.now)
		return a.schedule(actuator.Light, light, CommandOff, start, repeat)
	}

	start, end, bounded := r.Schedule.Window(a.now)
	if bounded && !end.After(start) {
		return fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidSchedule, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	if err := a.schedule(actuator.Light, light, CommandOn, start, repeat); err != nil {
		return err
	}
	if !bounded {
		return nil
	}
	return a.schedule(actuator.Light, light, CommandOff, end, repeat)
}

func (a *applier) VisitPump(r PumpRequest) error {
	pump := a.t.pump

	switch r.Command {
	case CommandOff:
		if r.Schedule == nil {
			return a.t.invoke(actuator.Pump, pump, CommandOff)
		}
		start := r.Schedule.Start.Resolve(a.now)
		return a.schedule(actuator.Pump, pump, CommandOff, start, r.Schedule.Repeat)

	case CommandOn:
		pulse := PulseDuration(r.VolumeML, a.t.rate)

		if r.Schedule == nil {
			// A pump that is already running still gets its off.
			if err := a.t.invoke(actuator.Pump, pump, CommandOn); err != nil {
				return err
			}
			return a.schedule(actuator.Pump, pump, CommandOff, a.now.Add(pulse), 0)
		}

		start := r.Schedule.Start.Resolve(a.now)
		repeat := r.Schedule.Repeat
		if err := a.schedule(actuator.Pump, pump, CommandOn, start, repeat); err != nil {
			return err
		}
		return a.schedule(actuator.Pump, pump, CommandOff, start.Add(pulse), repeat)

	default:
		return fmt.Errorf("unknown command %q", r.Command)
	}
}

func (a *applier) schedule(name string, capability actuator.Capability, cmd Command, at time.Time, repeat time.Duration) error {
	label := name + " " + string(cmd)
	action := func(context.Context) error {
		return a.t.invoke(name, capability, cmd)
	}

	id, err := a.t.sched.Add(scheduler.NewEvent(label, at, repeat, action))
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", label, err)
	}

	a.t.logger.Debug("actuator command scheduled",
		"event_id", id,
		"actuator", name,
		"command", cmd,
		"at", at,
		"repeat", repeat,
	)
	return nil
}

// invoke switches capability. A state conflict is logged and reported as success.
func (t *Translator) invoke(name string, capability actuator.Capability, cmd Command) error {
	var err error
	if cmd == CommandOn {
		err = capability.TurnOn()
	} else {
		err = capability.TurnOff()
	}

	switch {
	case err == nil:
		t.logger.Debug("actuator command applied", "actuator", name, "command", cmd)
		return nil
	case errors.Is(err, actuator.ErrStateConflict):
		t.logger.Info("actuator already in requested state", "actuator", name, "command", cmd)
		return nil
	default:
		return err
	}
}
