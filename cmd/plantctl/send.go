package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"github.com/Mlodko/iot2025-plants/internal/control"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/config"
	"github.com/Mlodko/iot2025-plants/internal/infrastructure/mqtt"
)

var sendFlags = []cli.Flag{
	cli.StringFlag{Name: "device, d", Usage: "target pot `UUID`", EnvVar: "PLANTPOT_DEVICE_ID"},
	cli.StringFlag{Name: "actuator, a", Usage: "light or pump"},
	cli.StringFlag{Name: "command, c", Usage: "on or off"},
	cli.IntFlag{Name: "volume, V", Usage: "water to pump in `ML` (pump on only)"},
	cli.StringFlag{Name: "start", Usage: "schedule start: now or an ISO-8601 timestamp"},
	cli.StringFlag{Name: "duration", Usage: "light on-time as an ISO-8601 duration, e.g. PT2H"},
	cli.StringFlag{Name: "end", Usage: "light switch-off timestamp"},
	cli.StringFlag{Name: "repeat", Usage: "repeat interval as an ISO-8601 duration, e.g. P1D"},
	cli.StringFlag{Name: "host", Value: "localhost", Usage: "MQTT broker host", EnvVar: "PLANTPOT_MQTT_HOST"},
	cli.IntFlag{Name: "port", Value: 1883, Usage: "MQTT broker port"},
	cli.BoolFlag{Name: "tls", Usage: "connect with TLS"},
	cli.StringFlag{Name: "username", EnvVar: "PLANTPOT_MQTT_USERNAME"},
	cli.StringFlag{Name: "password", EnvVar: "PLANTPOT_MQTT_PASSWORD"},
	cli.BoolFlag{Name: "dry-run, n", Usage: "print the payload instead of publishing it"},
}

// publisher is the part of *mqtt.Client that send needs.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Close() error
}

type dialFunc func(cfg config.MQTTConfig) (publisher, error)

func dialMQTT(cfg config.MQTTConfig) (publisher, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// controlQoS is used for control requests so that none is lost.
const controlQoS = 1

func send(ctx *cli.Context, out io.Writer, dial dialFunc) error {
	deviceID := ctx.String("device")
	if _, err := uuid.Parse(deviceID); err != nil {
		return cli.NewExitError(fmt.Sprintf("--device must be a pot UUID: %v", err), 2)
	}

	payload, req, err := buildRequest(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	var topics mqtt.Topics
	topic := topics.DeviceControl(deviceID)

	if ctx.Bool("dry-run") {
		fmt.Fprintf(out, "%s %s\n", topic, payload)
		return nil
	}

	client, err := dial(config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     ctx.String("host"),
			Port:     ctx.Int("port"),
			TLS:      ctx.Bool("tls"),
			ClientID: "plantctl-" + uuid.NewString()[:8],
		},
		Auth: config.MQTTAuthConfig{
			Username: ctx.String("username"),
			Password: ctx.String("password"),
		},
		QoS:       controlQoS,
		Reconnect: config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 5},
	})
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("connecting to broker: %v", err), 1)
	}
	defer client.Close() //nolint:errcheck // best effort on exit

	if err := client.Publish(topic, payload, controlQoS, false); err != nil {
		return cli.NewExitError(fmt.Sprintf("publishing: %v", err), 1)
	}
	fmt.Fprintf(out, "sent to %s: %s\n", topic, describe(req))
	return nil
}

// buildRequest assembles the JSON payload from flags and runs it through
// the daemon's decoder, returning the canonical encoding.
func buildRequest(ctx *cli.Context) ([]byte, control.Request, error) {
	wire := map[string]any{
		"actuator": ctx.String("actuator"),
		"command":  ctx.String("command"),
	}
	if ctx.IsSet("volume") {
		wire["volume_ml"] = ctx.Int("volume")
	}

	schedule := make(map[string]string)
	for flag, field := range map[string]string{
		"start":    "start_time",
		"duration": "duration",
		"end":      "end_time",
		"repeat":   "repeat_interval",
	} {
		if v := ctx.String(flag); v != "" {
			schedule[field] = v
		}
	}
	if len(schedule) > 0 {
		wire["scheduled_time"] = schedule
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, nil, err
	}
	req, err := control.Decode(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid request: %w", err)
	}
	payload, err := control.Encode(req)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding request: %w", err)
	}
	return payload, req, nil
}
