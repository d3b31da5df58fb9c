// Package influxdb stores plant pot history in InfluxDB v2.
//
// Two measurements are written, both tagged with device_id:
//
//	sensors    one field per sensor (temperature, soil_moisture, ...)
//	actuators  tag actuator=light|pump; fields on (bool) and level (0/1)
//
// Writes go through the client's non-blocking batched API; failures are
// reported asynchronously to the SetOnError callback. Connect returns
// ErrDisabled when influxdb.enabled is false.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	defer client.Close()
//	client.WriteActuatorState(deviceID, "pump", true, time.Now())
package influxdb
