package actuator

import (
	"fmt"
	"sync"
)

// SimulatedDriver is an in-memory relay used when no hardware backend is
// configured. Like a real relay module it rejects redundant commands.
type SimulatedDriver struct {
	name string

	mu     sync.Mutex
	active bool
	ons    int
	offs   int
}

// NewSimulatedDriver creates an inactive simulated relay.
func NewSimulatedDriver(name string) *SimulatedDriver {
	return &SimulatedDriver{name: name}
}

// TurnOn activates the relay.
func (d *SimulatedDriver) TurnOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return fmt.Errorf("%s relay is already active", d.name)
	}
	d.active = true
	d.ons++
	return nil
}

// TurnOff deactivates the relay.
func (d *SimulatedDriver) TurnOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return fmt.Errorf("%s relay is already inactive", d.name)
	}
	d.active = false
	d.offs++
	return nil
}

// Active reports whether the relay is energised.
func (d *SimulatedDriver) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Counts returns how many times the relay was switched on and off.
func (d *SimulatedDriver) Counts() (ons, offs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ons, d.offs
}
