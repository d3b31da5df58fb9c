package telemetry

import (
	"math"
	"time"
)

// Sensor names a physical sensor on the pot.
type Sensor string

const (
	AirQuality   Sensor = "air_quality"
	Light        Sensor = "light"
	SoilMoisture Sensor = "soil_moisture"
	AirHumidity  Sensor = "air_humidity"
	Temperature  Sensor = "temperature"
	WaterLevel   Sensor = "water_level"
)

// Range is the closed interval of values a sensor can legitimately report.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// The analog channels are read through a 10-bit ADC.
var ranges = map[Sensor]Range{
	AirQuality:   {0, 1024},
	Light:        {0, 1024},
	SoilMoisture: {0, 1024},
	AirHumidity:  {0, 101},
	Temperature:  {0, 61},
	WaterLevel:   {0, 10},
}

// Sensors returns every known sensor in publishing order.
func Sensors() []Sensor {
	return []Sensor{AirQuality, Light, SoilMoisture, AirHumidity, Temperature, WaterLevel}
}

// Range returns the valid range of s and false for an unknown sensor.
func (s Sensor) Range() (Range, bool) {
	r, ok := ranges[s]
	return r, ok
}

// Reading is one poll of the sensors.
type Reading struct {
	At     time.Time
	Values map[Sensor]float64
}

// Fields returns the values keyed by sensor name.
func (r Reading) Fields() map[string]float64 {
	out := make(map[string]float64, len(r.Values))
	for s, v := range r.Values {
		out[string(s)] = v
	}
	return out
}
