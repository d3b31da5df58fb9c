// Package actuator models the on/off devices of a plant pot: the grow
// light and the water pump.
//
// An Actuator tracks its own state so that a redundant command becomes a
// benign ErrStateConflict instead of reaching a relay that would reject it.
// Observers (journal, time series, MQTT state topic) hear about every real
// transition.
package actuator
