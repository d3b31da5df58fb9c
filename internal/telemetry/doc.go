// Package telemetry polls the pot's sensors and publishes their readings.
//
// Every interval the Publisher asks its Source for a Reading, passes it
// through the Sanitizer and publishes it twice over MQTT:
//
//	/{device_id}/sensors                 {"timestamp": "...", "light": 512, "temperature": 21.5, ...}
//	/{device_id}/sensors/{sensor_name}   {"timestamp": "...", "light": 512}
//
// When a History sink is configured (InfluxDB) the reading is also stored
// as a single point.
//
// Sensors report within fixed ranges (see Sensor.Range). A value outside
// its range, or NaN, is replaced by the last valid value of that sensor, or
// the range minimum when none has been seen yet.
package telemetry
