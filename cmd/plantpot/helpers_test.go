package main

import (
	"io"

	"github.com/Mlodko/iot2025-plants/internal/infrastructure/config"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Device: config.DeviceConfig{ID: testDeviceID, Name: "test pot"},
		MQTT:   config.MQTTConfig{QoS: 1},
		Actuators: config.ActuatorsConfig{
			Driver: "simulated",
			Pump:   config.PumpConfig{RateMLPerSecond: 14},
		},
		Telemetry: config.TelemetryConfig{Enabled: true, Interval: 2, Source: "simulated"},
		Dispatch:  config.DispatchConfig{UnknownTopicLogRate: 1},
	}
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")
}
