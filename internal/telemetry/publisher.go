package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mlodko/iot2025-plants/internal/infrastructure/mqtt"
)

// ErrInvalidConfig is returned by NewPublisher for an unusable configuration.
var ErrInvalidConfig = errors.New("telemetry: invalid publisher config")

// MessagePublisher is the MQTT side of the Publisher, satisfied by *mqtt.Client.
type MessagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// History stores readings for later analysis, satisfied by *influxdb.Client.
type History interface {
	WriteSensorReading(deviceID string, values map[string]float64, at time.Time)
}

// PublisherConfig holds the Publisher's collaborators.
type PublisherConfig struct {
	DeviceID  string
	Interval  time.Duration
	QoS       byte
	Source    Source
	Sanitizer *Sanitizer       // NewSanitizer() when nil
	MQTT      MessagePublisher // required
	History   History          // optional
}

// Publisher periodically reads, sanitises and publishes sensor values.
type Publisher struct {
	cfg    PublisherConfig
	topics mqtt.Topics

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	loggerMu sync.RWMutex
	logger   Logger
}

// NewPublisher validates cfg and returns an idle Publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	switch {
	case cfg.DeviceID == "":
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidConfig)
	case cfg.Interval <= 0:
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case cfg.Source == nil:
		return nil, fmt.Errorf("%w: source is required", ErrInvalidConfig)
	case cfg.MQTT == nil:
		return nil, fmt.Errorf("%w: mqtt publisher is required", ErrInvalidConfig)
	case cfg.QoS > 2:
		return nil, fmt.Errorf("%w: qos %d", ErrInvalidConfig, cfg.QoS)
	}
	if cfg.Sanitizer == nil {
		cfg.Sanitizer = NewSanitizer()
	}

	return &Publisher{
		cfg:    cfg,
		done:   make(chan struct{}),
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the publisher and its sanitizer.
func (p *Publisher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
	p.cfg.Sanitizer.SetLogger(logger)
}

func (p *Publisher) getLogger() Logger {
	p.loggerMu.RLock()
	defer p.loggerMu.RUnlock()
	return p.logger
}

// Start publishes one reading immediately and then one per interval until
// Stop is called or ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop halts publishing and waits for an in-flight poll to finish.
// Safe to call multiple times.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Publisher) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.getLogger().Info("telemetry publisher started", "interval", p.cfg.Interval)

	for {
		if err := p.PublishNow(ctx); err != nil && ctx.Err() == nil {
			p.getLogger().Warn("failed to publish telemetry", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
		}
	}
}

// PublishNow performs a single poll. History is written even while MQTT is
// disconnected.
func (p *Publisher) PublishNow(ctx context.Context) error {
	raw, err := p.cfg.Source.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading sensors: %w", err)
	}
	if raw.At.IsZero() {
		raw.At = time.Now()
	}
	reading := p.cfg.Sanitizer.Sanitize(raw)

	if p.cfg.History != nil {
		p.cfg.History.WriteSensorReading(p.cfg.DeviceID, reading.Fields(), reading.At)
	}

	if !p.cfg.MQTT.IsConnected() {
		p.getLogger().Debug("mqtt disconnected, skipping telemetry publish")
		return nil
	}
	return p.publish(reading)
}

func (p *Publisher) publish(r Reading) error {
	ts := r.At.UTC().Format(time.RFC3339)

	full := make(map[string]any, len(r.Values)+1)
	full["timestamp"] = ts
	for s, v := range r.Values {
		full[string(s)] = v
	}

	var errs []error
	if err := p.send(p.topics.DeviceSensors(p.cfg.DeviceID), full); err != nil {
		errs = append(errs, err)
	}

	for _, s := range Sensors() {
		v, ok := r.Values[s]
		if !ok {
			continue
		}
		msg := map[string]any{"timestamp": ts, string(s): v}
		if err := p.send(p.topics.DeviceSensor(p.cfg.DeviceID, string(s)), msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) send(topic string, msg map[string]any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", topic, err)
	}
	if err := p.cfg.MQTT.Publish(topic, payload, p.cfg.QoS, false); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}
