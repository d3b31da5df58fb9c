// plantpot is the actuator core of a smart plant pot.
//
// It subscribes to the pot's control topic, turns JSON control requests into
// light and pump commands (immediately or on a schedule) and publishes
// sensor telemetry. See internal/control for the request format.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Mlodko/iot2025-plants/migrations"

	"github.com/Mlodko/iot2025-plants/internal/actuator"
	"github.com/Mlodko/iot2025-plants/internal/control"
	"github.com/Mlodko/iot2025-plants/internal/dispatch"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/config"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/database"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/influxdb"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/logging"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/mqtt"
	"github.com/Mlodko/iot2025-plants/internal/journal"
	"github.com/Mlodko/iot2025-plants/internal/scheduler"
	"github.com/Mlodko/iot2025-plants/internal/telemetry"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts every component, blocks until ctx is cancelled and then shuts
// down in reverse order. Deferred closers run last, after the workers that
// use them have stopped.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting plantpot",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("device_id", cfg.Device.ID)
	log.Info("configuration loaded", "path", configPath, "device_name", cfg.Device.Name)

	// Journal (optional)
	var db *database.DB
	var repo *journal.SQLiteRepository
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		repo = journal.NewSQLiteRepository(db.DB)
	} else {
		log.Info("journal disabled")
	}

	// MQTT
	var topics mqtt.Topics
	if cfg.MQTT.StatusTopic == "" {
		cfg.MQTT.StatusTopic = topics.DeviceStatus(cfg.Device.ID)
	}
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Actuators
	light, pump := newActuators(cfg, log)
	observers := []actuator.Observer{statePublisher(mqttClient, cfg.Device.ID, log)}
	if repo != nil {
		observers = append(observers, journal.TransitionObserver(repo, log.Component("journal")))
	}
	if influxClient != nil {
		observers = append(observers, actuator.ObserverFunc(func(t actuator.Transition) {
			influxClient.WriteActuatorState(cfg.Device.ID, t.Actuator, t.On, t.At)
		}))
	}
	for _, o := range observers {
		light.AddObserver(o)
		pump.AddObserver(o)
	}
	if cfg.Actuators.OffOnShutdown {
		defer func() {
			log.Info("switching actuators off")
			if offErr := actuator.AllOff(light, pump); offErr != nil {
				log.Error("error switching actuators off", "error", offErr)
			}
		}()
	}

	// Scheduler
	sched := scheduler.New()
	sched.SetLogger(log.Component("scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Translator
	translator, err := control.NewTranslator(sched, light, pump, cfg.Actuators.Pump.RateMLPerSecond)
	if err != nil {
		return fmt.Errorf("creating translator: %w", err)
	}
	translator.SetLogger(log.Component("control"))
	if repo != nil {
		translator.SetJournal(repo)
	}

	// Telemetry (optional)
	if cfg.Telemetry.Enabled {
		publisher, err := newTelemetry(cfg, mqttClient, influxClient, log)
		if err != nil {
			return err
		}
		publisher.Start(ctx)
		defer func() {
			log.Info("stopping telemetry")
			publisher.Stop()
		}()
	} else {
		log.Info("telemetry disabled")
	}

	// Dispatcher, started last so no request arrives before its handler is ready.
	dispatcher, err := startDispatcher(ctx, cfg, mqttClient, translator, log)
	if err != nil {
		return err
	}
	defer dispatcher.Stop()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for control requests",
		"control_topic", topics.DeviceControl(cfg.Device.ID),
	)

	runErr := dispatcher.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("dispatcher stopped unexpectedly", "error", runErr)
	}

	log.Info("shutdown signal received, cleaning up", "pending_events", sched.Len())
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("PLANTPOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Path, "migrations_applied", applied)
	return db, nil
}

func newActuators(cfg *config.Config, log *logging.Logger) (light, pump *actuator.Actuator) {
	light = actuator.New(actuator.Light, actuator.NewSimulatedDriver(actuator.Light))
	pump = actuator.New(actuator.Pump, actuator.NewSimulatedDriver(actuator.Pump))
	light.SetLogger(log.Component("actuator"))
	pump.SetLogger(log.Component("actuator"))
	log.Info("actuators ready",
		"driver", cfg.Actuators.Driver,
		"pump_rate_ml_per_second", cfg.Actuators.Pump.RateMLPerSecond,
	)
	return light, pump
}

// actuatorState is the retained payload on /{device_id}/actuators/{name}/state.
type actuatorState struct {
	Actuator  string    `json:"actuator"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// statePublisher mirrors actuator transitions onto retained MQTT topics so
// dashboards see the current state on subscribe.
func statePublisher(client *mqtt.Client, deviceID string, log *logging.Logger) actuator.Observer {
	var topics mqtt.Topics
	return actuator.ObserverFunc(func(t actuator.Transition) {
		msg := actuatorState{Actuator: t.Actuator, State: t.State(), Timestamp: t.At.UTC()}
		if err := client.PublishJSON(topics.DeviceActuatorState(deviceID, t.Actuator), msg, true); err != nil {
			log.Warn("failed to publish actuator state", "actuator", t.Actuator, "error", err)
		}
	})
}

func newTelemetry(cfg *config.Config, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) (*telemetry.Publisher, error) {
	pcfg := telemetry.PublisherConfig{
		DeviceID: cfg.Device.ID,
		Interval: cfg.TelemetryInterval(),
		QoS:      byte(cfg.MQTT.QoS), //nolint:gosec // validated 0..2 by config
		Source:   telemetry.NewSimulatedSource(uint64(time.Now().UnixNano())), //nolint:gosec // seed only
		MQTT:     mqttClient,
	}
	// A nil *influxdb.Client must not become a non-nil interface.
	if influxClient != nil {
		pcfg.History = influxClient
	}

	publisher, err := telemetry.NewPublisher(pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry publisher: %w", err)
	}
	publisher.SetLogger(log.Component("telemetry"))
	log.Info("telemetry enabled", "interval", pcfg.Interval, "source", cfg.Telemetry.Source)
	return publisher, nil
}

func startDispatcher(ctx context.Context, cfg *config.Config, client *mqtt.Client, translator *control.Translator, log *logging.Logger) (*dispatch.Dispatcher, error) {
	d := dispatch.New(transportAdapter{client: client}, byte(cfg.MQTT.QoS)) //nolint:gosec // validated 0..2 by config
	d.SetLogger(log.Component("dispatch"))
	d.SetUnknownTopicLogRate(cfg.Dispatch.UnknownTopicLogRate)

	// Messages the broker delivers outside a tracked subscription still go
	// through the dispatcher, which drops and counts them.
	client.SetDefaultHandler(func(topic string, payload []byte) error {
		d.Deliver(topic, payload)
		return nil
	})

	var topics mqtt.Topics
	if err := d.Register(topics.DeviceControl(cfg.Device.ID), dispatch.HandlerFunc(translator.Handle)); err != nil {
		return nil, fmt.Errorf("registering control handler: %w", err)
	}
	if err := d.Start(ctx); err != nil {
		d.Stop()
		return nil, fmt.Errorf("starting dispatcher: %w", err)
	}
	return d, nil
}

// transportAdapter adapts the infrastructure MQTT client to dispatch.Transport.
// The two differ only in the handler's named type.
type transportAdapter struct {
	client *mqtt.Client
}

// Subscribe implements dispatch.Transport.
func (a transportAdapter) Subscribe(topic string, qos byte, callback func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, callback)
}

// Unsubscribe implements dispatch.Transport.
func (a transportAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
