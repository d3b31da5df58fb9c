package control

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Mlodko/iot2025-plants/internal/actuator"
)

// wireRequest mirrors the JSON payload. Pointers distinguish absent fields
// from zero values so that forbidden fields can be reported by name.
type wireRequest struct {
	Actuator      *string       `json:"actuator,omitempty"`
	Command       *string       `json:"command,omitempty"`
	VolumeML      *int64        `json:"volume_ml,omitempty"`
	ScheduledTime *wireSchedule `json:"scheduled_time,omitempty"`
}

type wireSchedule struct {
	StartTime      *string `json:"start_time,omitempty"`
	EndTime        *string `json:"end_time,omitempty"`
	Duration       *string `json:"duration,omitempty"`
	RepeatInterval *string `json:"repeat_interval,omitempty"`
}

// MaxVolumeML caps a single pump pulse. Larger volumes are rejected rather
// than turned into pulses the scheduler cannot represent.
const MaxVolumeML = 100_000

const (
	fieldActuator = "actuator"
	fieldCommand  = "command"
	fieldVolume   = "volume_ml"
	fieldSchedule = "scheduled_time"
	fieldStart    = "scheduled_time.start_time"
	fieldEnd      = "scheduled_time.end_time"
	fieldDuration = "scheduled_time.duration"
	fieldRepeat   = "scheduled_time.repeat_interval"
)

// UnmarshalJSON decodes a schedule object, rejecting unknown fields under
// their full path. The top-level decoder reports only the bare field name.
func (s *wireSchedule) UnmarshalJSON(data []byte) error {
	type plain wireSchedule

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p plain
	if err := dec.Decode(&p); err != nil {
		de := jsonError(err)
		switch {
		case de.Field == "":
			de = fieldError(fieldSchedule, errors.New("expected a JSON object"))
		case !strings.HasPrefix(de.Field, fieldSchedule+"."):
			de.Field = fieldSchedule + "." + de.Field
		}
		return de
	}
	*s = wireSchedule(p)
	return nil
}

// Decode parses a control payload. Any problem is reported as a
// *DecodeError naming the offending field.
func Decode(data []byte) (Request, error) {
	if !utf8.Valid(data) {
		return nil, &DecodeError{Err: errNotUTF8}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireRequest
	if err := dec.Decode(&w); err != nil {
		return nil, jsonError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Err: errTrailing}
	}

	if w.Actuator == nil {
		return nil, fieldError(fieldActuator, errMissing)
	}
	name, ok := CanonicalActuator(*w.Actuator)
	if !ok {
		return nil, fieldError(fieldActuator, fmt.Errorf("unknown actuator %q", *w.Actuator))
	}

	if w.Command == nil {
		return nil, fieldError(fieldCommand, errMissing)
	}
	cmd, err := ParseCommand(*w.Command)
	if err != nil {
		return nil, fieldError(fieldCommand, err)
	}

	switch name {
	case actuator.Light:
		return decodeLight(&w, cmd)
	case actuator.Pump:
		return decodePump(&w, cmd)
	default:
		return nil, fieldError(fieldActuator, fmt.Errorf("unknown actuator %q", name))
	}
}

func decodeLight(w *wireRequest, cmd Command) (Request, error) {
	if w.VolumeML != nil {
		return nil, fieldError(fieldVolume, errForbidden)
	}

	req := LightRequest{Command: cmd}
	if w.ScheduledTime == nil {
		return req, nil
	}

	ws := w.ScheduledTime
	start, err := decodeStart(ws)
	if err != nil {
		return nil, err
	}
	sched := &DurationSchedule{Start: start}

	if ws.EndTime != nil && ws.Duration != nil {
		return nil, fieldError(fieldSchedule, errExclusive)
	}
	if ws.EndTime != nil {
		end, err := parseTimestamp(*ws.EndTime)
		if err != nil {
			return nil, fieldError(fieldEnd, err)
		}
		sched.End = &end
	}
	if ws.Duration != nil {
		d, err := parsePositiveDuration(*ws.Duration)
		if err != nil {
			return nil, fieldError(fieldDuration, err)
		}
		sched.Duration = d
	}
	if sched.Repeat, err = decodeRepeat(ws); err != nil {
		return nil, err
	}

	req.Schedule = sched
	return req, nil
}

func decodePump(w *wireRequest, cmd Command) (Request, error) {
	// A duration-form schedule is the likeliest mistake; report it first.
	ws := w.ScheduledTime
	if ws != nil && ws.EndTime != nil {
		return nil, fieldError(fieldEnd, errForbidden)
	}
	if ws != nil && ws.Duration != nil {
		return nil, fieldError(fieldDuration, errForbidden)
	}

	req := PumpRequest{Command: cmd}
	switch {
	case w.VolumeML == nil && cmd == CommandOn:
		return nil, fieldError(fieldVolume, errMissing)
	case w.VolumeML != nil && *w.VolumeML < 0:
		return nil, fieldError(fieldVolume, errNegative)
	case w.VolumeML != nil && *w.VolumeML > MaxVolumeML:
		return nil, fieldError(fieldVolume, errTooLarge)
	case w.VolumeML != nil:
		req.VolumeML = int(*w.VolumeML)
	}

	if ws == nil {
		return req, nil
	}

	start, err := decodeStart(ws)
	if err != nil {
		return nil, err
	}
	repeat, err := decodeRepeat(ws)
	if err != nil {
		return nil, err
	}

	req.Schedule = &ImpulseSchedule{Start: start, Repeat: repeat}
	return req, nil
}

func decodeStart(ws *wireSchedule) (StartTime, error) {
	if ws.StartTime == nil {
		return StartTime{}, fieldError(fieldStart, errMissing)
	}
	start, err := ParseStartTime(*ws.StartTime)
	if err != nil {
		return StartTime{}, fieldError(fieldStart, err)
	}
	return start, nil
}

func decodeRepeat(ws *wireSchedule) (time.Duration, error) {
	if ws.RepeatInterval == nil {
		return 0, nil
	}
	d, err := parsePositiveDuration(*ws.RepeatInterval)
	if err != nil {
		return 0, fieldError(fieldRepeat, err)
	}
	return d, nil
}

// jsonError converts an encoding/json failure into a DecodeError.
func jsonError(err error) *DecodeError {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxErr):
		return &DecodeError{Err: fmt.Errorf("malformed JSON at offset %d: %w", syntaxErr.Offset, err)}
	case errors.As(err, &typeErr):
		return &DecodeError{
			Field: typeErr.Field,
			Err:   fmt.Errorf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
		}
	case errors.Is(err, io.EOF):
		return &DecodeError{Err: errors.New("empty payload")}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &DecodeError{Err: errors.New("truncated JSON")}
	}

	// DisallowUnknownFields reports `json: unknown field "name"` with no typed error.
	if rest, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return fieldError(strings.Trim(rest, `"`), errUnknown)
	}
	return &DecodeError{Err: err}
}

// Encode renders req as a wire payload that Decode accepts.
func Encode(req Request) ([]byte, error) {
	name := req.Actuator()
	cmd := string(req.Cmd())
	w := wireRequest{Actuator: &name, Command: &cmd}

	switch r := req.(type) {
	case LightRequest:
		if r.Schedule != nil {
			ws := &wireSchedule{StartTime: ptr(r.Schedule.Start.String())}
			if r.Schedule.End != nil {
				ws.EndTime = ptr(r.Schedule.End.Format(time.RFC3339Nano))
			}
			if r.Schedule.Duration > 0 {
				ws.Duration = ptr(FormatDuration(r.Schedule.Duration))
			}
			if r.Schedule.Repeat > 0 {
				ws.RepeatInterval = ptr(FormatDuration(r.Schedule.Repeat))
			}
			w.ScheduledTime = ws
		}
	case PumpRequest:
		if r.Command == CommandOn || r.VolumeML > 0 {
			v := int64(r.VolumeML)
			w.VolumeML = &v
		}
		if r.Schedule != nil {
			ws := &wireSchedule{StartTime: ptr(r.Schedule.Start.String())}
			if r.Schedule.Repeat > 0 {
				ws.RepeatInterval = ptr(FormatDuration(r.Schedule.Repeat))
			}
			w.ScheduledTime = ws
		}
	}

	return json.Marshal(w)
}

func ptr[T any](v T) *T { return &v }
