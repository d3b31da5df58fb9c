package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Mlodko/iot2025-plants/internal/infrastructure/config"
)

const testDeviceID = "e399f399-6a0c-4d0b-9b1f-6f43f0b4c2a7"

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "plantpot-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		StatusTopic: Topics{}.DeviceStatus(testDeviceID),
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DeviceControl", topics.DeviceControl(testDeviceID), "/" + testDeviceID + "/control"},
		{"DeviceStatus", topics.DeviceStatus(testDeviceID), "/" + testDeviceID + "/status"},
		{"DeviceSensors", topics.DeviceSensors(testDeviceID), "/" + testDeviceID + "/sensors"},
		{"DeviceSensor", topics.DeviceSensor(testDeviceID, "soil_moisture"), "/" + testDeviceID + "/sensors/soil_moisture"},
		{"DeviceActuatorState", topics.DeviceActuatorState(testDeviceID, "pump"), "/" + testDeviceID + "/actuators/pump/state"},
		{"AllDeviceSensors", topics.AllDeviceSensors(testDeviceID), "/" + testDeviceID + "/sensors/#"},
		{"AllControls", topics.AllControls(), "/+/control"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "pot", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "plantpot-test" {
		t.Errorf("ClientID = %q, want plantpot-test", opts.ClientID)
	}
	if opts.Username != "pot" {
		t.Errorf("Username = %q, want pot", opts.Username)
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q with TLS, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != cfg.StatusTopic {
		t.Errorf("WillTopic = %q, want %q", opts.WillTopic, cfg.StatusTopic)
	}
	if !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("Will retained=%v qos=%d, want retained QoS 1", opts.WillRetained, opts.WillQos)
	}

	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("WillPayload is not JSON: %v", err)
	}
	if msg.Status != statusOffline || msg.Reason != reasonUnexpected {
		t.Errorf("will = %+v, want offline/%s", msg, reasonUnexpected)
	}
}

func TestConfigureLWT_NoStatusTopic(t *testing.T) {
	cfg := testConfig()
	cfg.StatusTopic = ""
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	if opts.WillEnabled {
		t.Error("WillEnabled = true without a status topic")
	}
}

func TestStatusPayload(t *testing.T) {
	var msg statusMessage
	if err := json.Unmarshal(statusPayload(statusOnline, "pot-1", ""), &msg); err != nil {
		t.Fatalf("statusPayload() is not JSON: %v", err)
	}
	if msg.Status != "online" || msg.ClientID != "pot-1" || msg.Reason != "" || msg.Timestamp == "" {
		t.Errorf("statusPayload() = %+v", msg)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestValidationBeforeConnection(t *testing.T) {
	client := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", client.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", client.Publish("/t", nil, 3, false), ErrInvalidQoS},
		{"publish oversized", client.Publish("/t", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish disconnected", client.Publish("/t", []byte("x"), 1, false), ErrNotConnected},
		{"publish json unencodable", client.PublishJSON("/t", make(chan int), false), ErrPublishFailed},
		{"subscribe empty topic", client.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", client.Subscribe("/t", 3, noop), ErrInvalidQoS},
		{"subscribe nil handler", client.Subscribe("/t", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", client.Subscribe("/t", 1, noop), ErrNotConnected},
		{"unsubscribe empty topic", client.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", client.Unsubscribe("/t"), ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after failed subscribes, want 0", client.SubscriptionCount())
	}
}

func TestWrapHandler(t *testing.T) {
	client := &Client{}
	logger := &mockLogger{}
	client.SetLogger(logger)

	tests := []struct {
		name      string
		handler   MessageHandler
		wantErrs  int
		wantWarns int
	}{
		{"success", func(string, []byte) error { return nil }, 0, 0},
		{"error is logged", func(string, []byte) error { return errors.New("bad payload") }, 0, 1},
		{"panic is recovered", func(string, []byte) error { panic("boom") }, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger.mu.Lock()
			logger.errors, logger.warns = nil, nil
			logger.mu.Unlock()

			client.wrapHandler(tt.handler)(nil, fakeMessage{topic: "/t", payload: []byte("x")})

			logger.mu.Lock()
			defer logger.mu.Unlock()
			if len(logger.errors) != tt.wantErrs || len(logger.warns) != tt.wantWarns {
				t.Errorf("errors=%d warns=%d, want %d/%d", len(logger.errors), len(logger.warns), tt.wantErrs, tt.wantWarns)
			}
		})
	}
}

func TestSetLogger_Nil(t *testing.T) {
	client := &Client{}
	client.SetLogger(&mockLogger{})
	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}
