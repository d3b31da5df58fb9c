// Package control turns control-topic payloads into actuator activity.
//
// A payload is decoded into one of two request variants:
//
//	{"actuator":"light","command":"on",
//	 "scheduled_time":{"start_time":"now","duration":"PT5S","repeat_interval":"P1D"}}
//
//	{"actuator":"pump","command":"on","volume_ml":70,
//	 "scheduled_time":{"start_time":"2026-05-01T07:00:00Z"}}
//
// Lights take a duration schedule (start plus optional end_time or
// duration). Pumps take an impulse schedule (start only) and convert the
// requested volume into a pulse length using the pump's calibrated flow
// rate. Timestamps are ISO-8601; durations are ISO-8601 durations.
//
// The Translator is the dispatch handler for a device's control topic. It
// applies immediate commands directly and queues scheduled ones as
// on/off event pairs on the scheduler. Malformed payloads and redundant
// commands (turning on a light that is already on) are logged and
// dropped; neither is an error for the caller.
package control
