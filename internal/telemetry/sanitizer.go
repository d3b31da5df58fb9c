package telemetry

import "sync"

// Sanitizer replaces out-of-range values with the last valid value seen for
// the same sensor. Unknown sensors are dropped. Safe for concurrent use.
type Sanitizer struct {
	mu     sync.Mutex
	last   map[Sensor]float64
	logger Logger
}

// NewSanitizer seeds every sensor's last valid value with its range minimum.
func NewSanitizer() *Sanitizer {
	last := make(map[Sensor]float64, len(ranges))
	for s, r := range ranges {
		last[s] = r.Min
	}
	return &Sanitizer{last: last, logger: noopLogger{}}
}

// SetLogger sets the logger used to report rejected values.
func (s *Sanitizer) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Sanitize returns a copy of r with every value inside its sensor's range.
func (s *Sanitizer) Sanitize(r Reading) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Reading{At: r.At, Values: make(map[Sensor]float64, len(r.Values))}
	for sensor, v := range r.Values {
		rng, ok := sensor.Range()
		if !ok {
			s.logger.Warn("dropping reading from unknown sensor", "sensor", string(sensor))
			continue
		}
		if rng.Contains(v) {
			s.last[sensor] = v
			out.Values[sensor] = v
			continue
		}
		fallback := s.last[sensor]
		s.logger.Warn("invalid sensor reading",
			"sensor", string(sensor),
			"value", v,
			"min", rng.Min,
			"max", rng.Max,
			"substituted", fallback,
		)
		out.Values[sensor] = fallback
	}
	return out
}
