// Package mqtt provides the broker connection for the plant pot daemon
// and the plantctl CLI.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and retain control
//   - Subscriptions that are restored after a reconnect
//   - Last Will and Testament on the device status topic
//   - A default handler for messages no subscription claims
//
// # Topics
//
// All topics are rooted at the device UUID (see Topics):
//
//	/{device_id}/control                     inbound control requests
//	/{device_id}/status                      retained online/offline
//	/{device_id}/sensors[/{sensor}]          telemetry
//	/{device_id}/actuators/{name}/state      retained actuator state
//
// # Usage
//
//	cfg.MQTT.StatusTopic = mqtt.Topics{}.DeviceStatus(deviceID)
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.DeviceControl(deviceID), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
//
// Handlers run on paho's delivery goroutine; hand work off quickly.
package mqtt
