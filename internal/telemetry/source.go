package telemetry

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Source produces raw sensor readings.
type Source interface {
	Read(ctx context.Context) (Reading, error)
}

// SimulatedSource returns random in-range readings. It stands in for the
// ADC, DHT and ultrasonic sensors on development machines.
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulatedSource creates a source; equal seeds produce equal sequences.
func NewSimulatedSource(seed uint64) *SimulatedSource {
	return &SimulatedSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // not used for security
		now: time.Now,
	}
}

// Read implements Source.
func (s *SimulatedSource) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[Sensor]float64, len(ranges))
	for _, sensor := range Sensors() {
		r := ranges[sensor]
		v := r.Min + s.rng.Float64()*(r.Max-r.Min)
		switch sensor {
		case Temperature:
			v = math.Round(v*10) / 10
		case WaterLevel:
			v = math.Round(v*100) / 100
		default:
			// Integer sensors: ADC counts and relative humidity.
			v = math.Floor(v)
		}
		values[sensor] = v
	}
	return Reading{At: s.now(), Values: values}, nil
}
