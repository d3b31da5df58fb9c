package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mlodko/iot2025-plants/internal/actuator"
	"github.com/Mlodko/iot2025-plants/internal/dispatch"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/mqtt"
)

const testDeviceID = "e399f399-6a0c-4d0b-9b1f-6f43f0b4c2a7"

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("PLANTPOT_CONFIG", "")

	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("PLANTPOT_CONFIG", "/etc/plantpot/config.yaml")

	if got := getConfigPath(); got != "/etc/plantpot/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("PLANTPOT_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

func TestRun_MQTTUnavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the MQTT connect timeout")
	}
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
device:
  id: "` + testDeviceID + `"
database:
  path: "` + filepath.Join(dir, "plantpot.db") + `"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "plantpot-test"
logging:
  level: error
  format: text
  output: stderr
telemetry:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("PLANTPOT_CONFIG", configPath)
	t.Setenv("PLANTPOT_DEVICE_ID", "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the broker is unreachable")
	}
	if !strings.Contains(err.Error(), "connecting to MQTT") {
		t.Errorf("run() error = %v, want MQTT connection error", err)
	}

	// The journal is migrated before MQTT is dialled.
	if _, statErr := os.Stat(filepath.Join(dir, "plantpot.db")); statErr != nil {
		t.Errorf("database not created: %v", statErr)
	}
}

func TestTransportAdapter_SatisfiesDispatch(t *testing.T) {
	var _ dispatch.Transport = transportAdapter{}

	a := transportAdapter{client: &mqtt.Client{}}
	err := a.Subscribe("/pot/control", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Subscribe() on disconnected client error = %v, want ErrNotConnected", err)
	}
	if err := a.Unsubscribe("/pot/control"); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Unsubscribe() on disconnected client error = %v, want ErrNotConnected", err)
	}
}

func TestNewActuators(t *testing.T) {
	cfg := testConfig()
	light, pump := newActuators(cfg, testLogger())

	if light.Name() != actuator.Light || pump.Name() != actuator.Pump {
		t.Errorf("actuators = %q, %q", light.Name(), pump.Name())
	}
	if light.IsOn() || pump.IsOn() {
		t.Error("actuators should start off")
	}
}

func TestNewTelemetry_WithoutInflux(t *testing.T) {
	cfg := testConfig()

	p, err := newTelemetry(cfg, &mqtt.Client{}, nil, testLogger())
	if err != nil {
		t.Fatalf("newTelemetry() error = %v", err)
	}
	// Disconnected MQTT and no history: a poll is a no-op, not a panic.
	if err := p.PublishNow(context.Background()); err != nil {
		t.Errorf("PublishNow() error = %v", err)
	}
}
