package mqtt

import "fmt"

// Topic layout for a plant pot. Every topic is rooted at the device ID and
// starts with a slash, so the first level is empty:
//
//	/{device_id}/control                     control requests (inbound)
//	/{device_id}/status                      online/offline, retained, LWT
//	/{device_id}/sensors                     full sensor reading
//	/{device_id}/sensors/{sensor}            single sensor value
//	/{device_id}/actuators/{actuator}/state  actuator state, retained
const (
	segmentControl   = "control"
	segmentStatus    = "status"
	segmentSensors   = "sensors"
	segmentActuators = "actuators"
)

// Topics provides builders for plant pot MQTT topics.
// Using these helpers keeps topic naming consistent between the daemon and
// the control CLI.
//
//	topics := mqtt.Topics{}
//	topics.DeviceControl("e399f399-...")
//	// Returns: "/e399f399-.../control"
type Topics struct{}

// DeviceControl returns the topic the device listens on for control requests.
func (Topics) DeviceControl(deviceID string) string {
	return fmt.Sprintf("/%s/%s", deviceID, segmentControl)
}

// DeviceStatus returns the retained online/offline topic, also used for the LWT.
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("/%s/%s", deviceID, segmentStatus)
}

// DeviceSensors returns the topic carrying complete sensor readings.
func (Topics) DeviceSensors(deviceID string) string {
	return fmt.Sprintf("/%s/%s", deviceID, segmentSensors)
}

// DeviceSensor returns the topic carrying one sensor's values.
//
// Example: /{device_id}/sensors/soil_moisture
func (Topics) DeviceSensor(deviceID, sensor string) string {
	return fmt.Sprintf("/%s/%s/%s", deviceID, segmentSensors, sensor)
}

// DeviceActuatorState returns the retained state topic of an actuator.
//
// Example: /{device_id}/actuators/pump/state
func (Topics) DeviceActuatorState(deviceID, actuator string) string {
	return fmt.Sprintf("/%s/%s/%s/state", deviceID, segmentActuators, actuator)
}

// AllDeviceSensors returns a pattern matching every sensor topic of a device.
//
// Pattern: /{device_id}/sensors/#
func (Topics) AllDeviceSensors(deviceID string) string {
	return fmt.Sprintf("/%s/%s/#", deviceID, segmentSensors)
}

// AllControls returns a pattern matching the control topic of every device.
//
// Pattern: /+/control
func (Topics) AllControls() string {
	return "/+/" + segmentControl
}
