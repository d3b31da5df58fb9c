package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the plantpot daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Actuators ActuatorsConfig `yaml:"actuators"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
}

// DeviceConfig identifies the pot this daemon controls.
// ID is a UUID and forms the root of every MQTT topic the device uses.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// StatusTopic receives the retained online/offline payload and the LWT.
	// Filled from the device ID when empty.
	StatusTopic string `yaml:"status_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ActuatorsConfig contains settings for the light and pump relays.
type ActuatorsConfig struct {
	// Driver selects the relay backend. Only "simulated" is built in.
	Driver string `yaml:"driver"`

	// OffOnShutdown switches every actuator off when the daemon exits.
	OffOnShutdown bool `yaml:"off_on_shutdown"`

	Pump PumpConfig `yaml:"pump"`
}

// PumpConfig holds the water pump calibration.
type PumpConfig struct {
	// RateMLPerSecond is how many millilitres the pump moves per second of run time.
	RateMLPerSecond float64 `yaml:"rate_ml_per_second"`
}

// TelemetryConfig contains sensor publishing settings.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval int    `yaml:"interval"` // seconds
	Source   string `yaml:"source"`
}

// DispatchConfig tunes the control topic dispatcher.
type DispatchConfig struct {
	// UnknownTopicLogRate caps warnings about unroutable messages (per second).
	UnknownTopicLogRate float64 `yaml:"unknown_topic_log_rate"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PLANTPOT_SECTION_KEY
// For example: PLANTPOT_DEVICE_ID, PLANTPOT_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The device ID has no default; every pot must be given its own.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "plant pot",
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/plantpot.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "plantpot",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Actuators: ActuatorsConfig{
			Driver:        "simulated",
			OffOnShutdown: true,
			Pump: PumpConfig{
				RateMLPerSecond: 14,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:  true,
			Interval: 2,
			Source:   "simulated",
		},
		Dispatch: DispatchConfig{
			UnknownTopicLogRate: 1,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLANTPOT_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	if v := os.Getenv("PLANTPOT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("PLANTPOT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PLANTPOT_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("PLANTPOT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PLANTPOT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("PLANTPOT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("PLANTPOT_PUMP_RATE_ML_PER_SECOND"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Actuators.Pump.RateMLPerSecond = rate
		}
	}

	if v := os.Getenv("PLANTPOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
// All problems are reported together rather than one at a time.
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required (set PLANTPOT_DEVICE_ID environment variable)")
	} else if _, err := uuid.Parse(c.Device.ID); err != nil {
		errs = append(errs, fmt.Sprintf("device.id must be a UUID: %v", err))
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Actuators.Driver != "simulated" {
		errs = append(errs, fmt.Sprintf("actuators.driver %q is not supported", c.Actuators.Driver))
	}
	if c.Actuators.Pump.RateMLPerSecond <= 0 {
		errs = append(errs, "actuators.pump.rate_ml_per_second must be positive")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Interval < 1 {
			errs = append(errs, "telemetry.interval must be at least 1 second")
		}
		if c.Telemetry.Source != "simulated" {
			errs = append(errs, fmt.Sprintf("telemetry.source %q is not supported", c.Telemetry.Source))
		}
	}

	if c.Dispatch.UnknownTopicLogRate <= 0 {
		errs = append(errs, "dispatch.unknown_topic_log_rate must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TelemetryInterval returns the sensor publishing interval as a Duration.
func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.Interval) * time.Second
}
