package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

const testDeviceID = "e399f399-6a0c-4d0b-9b1f-6f43f0b4c2a7"

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakeMQTT struct {
	mu           sync.Mutex
	messages     []published
	disconnected bool
	err          error
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic, payload, qos, retained})
	return nil
}

func (f *fakeMQTT) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disconnected
}

func (f *fakeMQTT) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

type historyWrite struct {
	deviceID string
	values   map[string]float64
	at       time.Time
}

type fakeHistory struct {
	mu     sync.Mutex
	writes []historyWrite
}

func (f *fakeHistory) WriteSensorReading(deviceID string, values map[string]float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, historyWrite{deviceID, values, at})
}

func (f *fakeHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// staticSource returns the same reading every time.
type staticSource struct {
	reading Reading
	err     error
}

func (s staticSource) Read(context.Context) (Reading, error) {
	return s.reading, s.err
}

var testAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestPublisher(t *testing.T, src Source, m *fakeMQTT, h History) *Publisher {
	t.Helper()
	p, err := NewPublisher(PublisherConfig{
		DeviceID: testDeviceID,
		Interval: time.Second,
		QoS:      1,
		Source:   src,
		MQTT:     m,
		History:  h,
	})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	return p
}

func TestNewPublisher_Validation(t *testing.T) {
	valid := func() PublisherConfig {
		return PublisherConfig{
			DeviceID: testDeviceID,
			Interval: time.Second,
			Source:   staticSource{},
			MQTT:     &fakeMQTT{},
		}
	}

	tests := []struct {
		name   string
		mutate func(*PublisherConfig)
	}{
		{"missing device id", func(c *PublisherConfig) { c.DeviceID = "" }},
		{"zero interval", func(c *PublisherConfig) { c.Interval = 0 }},
		{"missing source", func(c *PublisherConfig) { c.Source = nil }},
		{"missing mqtt", func(c *PublisherConfig) { c.MQTT = nil }},
		{"bad qos", func(c *PublisherConfig) { c.QoS = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if _, err := NewPublisher(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewPublisher() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := NewPublisher(valid()); err != nil {
		t.Errorf("NewPublisher(valid) error = %v", err)
	}
}

func TestPublisher_PublishNow(t *testing.T) {
	m := &fakeMQTT{}
	h := &fakeHistory{}
	src := staticSource{reading: Reading{
		At:     testAt,
		Values: map[Sensor]float64{Light: 512, Temperature: 21.5},
	}}
	p := newTestPublisher(t, src, m, h)

	if err := p.PublishNow(context.Background()); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msgs := m.sent()
	wantTopics := []string{
		"/" + testDeviceID + "/sensors",
		"/" + testDeviceID + "/sensors/light",
		"/" + testDeviceID + "/sensors/temperature",
	}
	if len(msgs) != len(wantTopics) {
		t.Fatalf("published %d messages, want %d", len(msgs), len(wantTopics))
	}
	for i, want := range wantTopics {
		if msgs[i].topic != want {
			t.Errorf("message %d topic = %q, want %q", i, msgs[i].topic, want)
		}
		if msgs[i].qos != 1 || msgs[i].retained {
			t.Errorf("message %d qos/retained = %d/%v, want 1/false", i, msgs[i].qos, msgs[i].retained)
		}
	}

	var full map[string]any
	if err := json.Unmarshal(msgs[0].payload, &full); err != nil {
		t.Fatalf("full payload not JSON: %v", err)
	}
	if full["timestamp"] != "2026-05-01T12:00:00Z" {
		t.Errorf("timestamp = %v", full["timestamp"])
	}
	if full["light"] != 512.0 || full["temperature"] != 21.5 {
		t.Errorf("full payload = %v", full)
	}

	var single map[string]any
	if err := json.Unmarshal(msgs[1].payload, &single); err != nil {
		t.Fatalf("single payload not JSON: %v", err)
	}
	if len(single) != 2 || single["light"] != 512.0 {
		t.Errorf("single payload = %v, want timestamp and light only", single)
	}

	if h.count() != 1 {
		t.Fatalf("history writes = %d, want 1", h.count())
	}
	w := h.writes[0]
	if w.deviceID != testDeviceID || w.values["light"] != 512 || !w.at.Equal(testAt) {
		t.Errorf("history write = %+v", w)
	}
}

func TestPublisher_SanitizesBeforePublishing(t *testing.T) {
	m := &fakeMQTT{}
	src := staticSource{reading: Reading{At: testAt, Values: map[Sensor]float64{AirHumidity: 250}}}
	p := newTestPublisher(t, src, m, nil)

	if err := p.PublishNow(context.Background()); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	var full map[string]any
	if err := json.Unmarshal(m.sent()[0].payload, &full); err != nil {
		t.Fatal(err)
	}
	if full["air_humidity"] != 0.0 {
		t.Errorf("air_humidity = %v, want 0 (sanitised)", full["air_humidity"])
	}
}

func TestPublisher_DisconnectedStillWritesHistory(t *testing.T) {
	m := &fakeMQTT{disconnected: true}
	h := &fakeHistory{}
	p := newTestPublisher(t, NewSimulatedSource(1), m, h)

	if err := p.PublishNow(context.Background()); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
	if n := len(m.sent()); n != 0 {
		t.Errorf("published %d messages while disconnected", n)
	}
	if h.count() != 1 {
		t.Errorf("history writes = %d, want 1", h.count())
	}
}

func TestPublisher_Errors(t *testing.T) {
	sourceErr := errors.New("i2c timeout")
	p := newTestPublisher(t, staticSource{err: sourceErr}, &fakeMQTT{}, nil)
	if err := p.PublishNow(context.Background()); !errors.Is(err, sourceErr) {
		t.Errorf("PublishNow() error = %v, want source error", err)
	}

	publishErr := errors.New("broker gone")
	m := &fakeMQTT{err: publishErr}
	p = newTestPublisher(t, NewSimulatedSource(1), m, nil)
	if err := p.PublishNow(context.Background()); !errors.Is(err, publishErr) {
		t.Errorf("PublishNow() error = %v, want publish error", err)
	}
}

func TestPublisher_StartStop(t *testing.T) {
	m := &fakeMQTT{}
	h := &fakeHistory{}
	p, err := NewPublisher(PublisherConfig{
		DeviceID: testDeviceID,
		Interval: 10 * time.Millisecond,
		Source:   NewSimulatedSource(3),
		MQTT:     m,
		History:  h,
	})
	if err != nil {
		t.Fatal(err)
	}
	logger := &recordingLogger{}
	p.SetLogger(logger)

	p.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for h.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d polls before deadline", h.count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.Stop()
	p.Stop()

	after := h.count()
	time.Sleep(30 * time.Millisecond)
	if h.count() != after {
		t.Errorf("polls continued after Stop: %d -> %d", after, h.count())
	}
	if logger.count("info", "telemetry publisher started") != 1 {
		t.Error("start not logged")
	}
}

func TestPublisher_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newTestPublisher(t, NewSimulatedSource(1), &fakeMQTT{}, nil)
	p.Start(ctx)
	cancel()

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return after context cancel")
	}
}

func TestReading_Fields(t *testing.T) {
	r := Reading{Values: map[Sensor]float64{Light: 1, WaterLevel: 2.5}}
	f := r.Fields()
	if len(f) != 2 || f["light"] != 1 || f["water_level"] != 2.5 {
		t.Errorf("Fields() = %v", f)
	}
}
