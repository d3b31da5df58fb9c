package control

import (
	"fmt"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// NowToken is the start_time value meaning "whenever the request is processed".
const NowToken = "now"

// Local timestamp layout accepted when no zone offset is given.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// StartTime is either an absolute instant or the "now" token.
// "now" is resolved when the request is translated, not when it is decoded.
type StartTime struct {
	at  time.Time
	now bool
}

// StartNow returns the "now" start time.
func StartNow() StartTime { return StartTime{now: true} }

// StartAt returns an absolute start time.
func StartAt(t time.Time) StartTime { return StartTime{at: t} }

// IsNow reports whether s is the "now" token.
func (s StartTime) IsNow() bool { return s.now }

// Resolve returns the instant s refers to, using now for the "now" token.
func (s StartTime) Resolve(now time.Time) time.Time {
	if s.now {
		return now
	}
	return s.at
}

// String returns "now" or the RFC 3339 timestamp.
func (s StartTime) String() string {
	if s.now {
		return NowToken
	}
	return s.at.Format(time.RFC3339Nano)
}

// ParseStartTime accepts "now", an RFC 3339 timestamp, or a timestamp
// without a zone offset (interpreted in local time).
func ParseStartTime(s string) (StartTime, error) {
	if strings.EqualFold(s, NowToken) {
		return StartNow(), nil
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return StartTime{}, err
	}
	return StartAt(t), nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(naiveLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// parsePositiveDuration parses an ISO-8601 duration such as PT30S or P1D.
func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
	}
	td := d.ToTimeDuration()
	if td <= 0 {
		return 0, errNotPositive
	}
	return td, nil
}

// FormatDuration renders d as an ISO-8601 duration.
func FormatDuration(d time.Duration) string {
	return duration.Format(d)
}

// DurationSchedule is the light's schedule: switch at Start and optionally
// back again after Duration or at End. At most one of End and Duration is set.
type DurationSchedule struct {
	Start    StartTime
	End      *time.Time
	Duration time.Duration // zero when absent
	Repeat   time.Duration // zero when the schedule runs once
}

// Window returns when the "on" period starts and, if bounded, when it ends.
// ok is false for an open-ended schedule.
func (s DurationSchedule) Window(now time.Time) (start, end time.Time, ok bool) {
	start = s.Start.Resolve(now)
	switch {
	case s.End != nil:
		return start, *s.End, true
	case s.Duration > 0:
		return start, start.Add(s.Duration), true
	default:
		return start, time.Time{}, false
	}
}

// ImpulseSchedule is the pump's schedule: a start and an optional repeat.
type ImpulseSchedule struct {
	Start  StartTime
	Repeat time.Duration
}
