package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementSensors   = "sensors"
	measurementActuators = "actuators"
)

// WriteSensorReading records one sanitised sensor reading as a single point
// with one field per sensor, tagged by device.
//
//	client.WriteSensorReading(deviceID, map[string]float64{"temperature": 21, "light": 512}, time.Now())
func (c *Client) WriteSensorReading(deviceID string, values map[string]float64, at time.Time) {
	if !c.IsConnected() || len(values) == 0 {
		return
	}
	c.writeAPI.WritePoint(sensorPoint(deviceID, values, at))
}

// WriteActuatorState records an actuator transition. The state is stored as
// both a boolean and an integer so on-time can be summed in Flux.
func (c *Client) WriteActuatorState(deviceID, actuator string, on bool, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(actuatorPoint(deviceID, actuator, on, at))
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}

func sensorPoint(deviceID string, values map[string]float64, at time.Time) *write.Point {
	fields := make(map[string]any, len(values))
	for name, v := range values {
		fields[name] = v
	}
	return write.NewPoint(measurementSensors, map[string]string{"device_id": deviceID}, fields, at)
}

func actuatorPoint(deviceID, actuator string, on bool, at time.Time) *write.Point {
	level := 0
	if on {
		level = 1
	}
	return write.NewPoint(
		measurementActuators,
		map[string]string{"device_id": deviceID, "actuator": actuator},
		map[string]any{"on": on, "level": level},
		at,
	)
}
