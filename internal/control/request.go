package control

import (
	"fmt"

	"github.com/Mlodko/iot2025-plants/internal/actuator"
)

// Command is the requested actuator state.
type Command string

const (
	CommandOn  Command = "on"
	CommandOff Command = "off"
)

// ParseCommand validates a wire command.
func ParseCommand(s string) (Command, error) {
	switch Command(s) {
	case CommandOn, CommandOff:
		return Command(s), nil
	default:
		return "", fmt.Errorf("unknown command %q (want on or off)", s)
	}
}

// actuatorAliases maps accepted spellings to canonical actuator names.
var actuatorAliases = map[string]string{
	actuator.Light: actuator.Light,
	"light_bulb":   actuator.Light,
	actuator.Pump:  actuator.Pump,
	"water_pump":   actuator.Pump,
}

// CanonicalActuator returns the canonical name for an actuator spelling.
func CanonicalActuator(name string) (string, bool) {
	c, ok := actuatorAliases[name]
	return c, ok
}

// Request is a decoded control request. The set of implementations is
// closed; use Accept with a RequestVisitor to handle every variant.
type Request interface {
	// Actuator returns the canonical actuator name the request targets.
	Actuator() string
	// Cmd returns the requested state.
	Cmd() Command
	// Accept calls the visitor method for the concrete variant.
	Accept(v RequestVisitor) error

	sealed()
}

// RequestVisitor handles each request variant.
type RequestVisitor interface {
	VisitLight(req LightRequest) error
	VisitPump(req PumpRequest) error
}

// LightRequest switches the grow light, optionally on a duration schedule.
type LightRequest struct {
	Command  Command
	Schedule *DurationSchedule
}

func (LightRequest) Actuator() string { return actuator.Light }

func (r LightRequest) Cmd() Command { return r.Command }

func (r LightRequest) Accept(v RequestVisitor) error { return v.VisitLight(r) }

func (LightRequest) sealed() {}

// PumpRequest runs the water pump for as long as it takes to move VolumeML.
type PumpRequest struct {
	Command  Command
	VolumeML int
	Schedule *ImpulseSchedule
}

func (PumpRequest) Actuator() string { return actuator.Pump }

func (r PumpRequest) Cmd() Command { return r.Command }

func (r PumpRequest) Accept(v RequestVisitor) error { return v.VisitPump(r) }

func (PumpRequest) sealed() {}
