package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Handler processes messages for one topic. Returned errors and panics are
// logged by the dispatcher and never stop the topic's consumer.
type Handler interface {
	Handle(ctx context.Context, topic string, payload []byte) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

// Handle calls f(ctx, topic, payload).
func (f HandlerFunc) Handle(ctx context.Context, topic string, payload []byte) error {
	return f(ctx, topic, payload)
}

// Transport is the subscription side of the message broker.
// The callback passed to Subscribe may be invoked from any goroutine.
type Transport interface {
	Subscribe(topic string, qos byte, callback func(topic string, payload []byte) error) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Default rate of "unregistered topic" warnings, per second.
const defaultUnknownTopicLogRate = 1

type message struct {
	topic   string
	payload []byte
}

// route is one registered topic: its handler, mailbox and consumer.
type route struct {
	topic   string
	handler Handler
	inbox   *mailbox[[]byte]
	cancel  context.CancelFunc // stops the consumer; nil until started
}

// Dispatcher owns the subscription set and one consumer per topic.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Each topic's handler is called from a single goroutine, so handlers
//     need no locking of their own for per-topic state.
type Dispatcher struct {
	transport Transport
	qos       byte

	mu      sync.RWMutex
	routes  map[string]*route
	started bool
	stopped bool
	ctx     context.Context // parent of consumer contexts, set by Start
	cancel  context.CancelFunc

	inbound  *mailbox[message]
	running  atomic.Bool
	dropped  atomic.Uint64
	limiter  *rate.Limiter
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once

	logger Logger
}

// New creates a Dispatcher that subscribes through transport at the given QoS.
func New(transport Transport, qos byte) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		qos:       qos,
		routes:    make(map[string]*route),
		inbound:   newMailbox[message](),
		limiter:   rate.NewLimiter(defaultUnknownTopicLogRate, 1),
		done:      make(chan struct{}),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// SetUnknownTopicLogRate caps how many "unregistered topic" warnings are
// logged per second. Dropped messages are still counted.
func (d *Dispatcher) SetUnknownTopicLogRate(perSecond float64) {
	d.limiter.SetLimit(rate.Limit(perSecond))
}

// Register adds a handler for topic. Once the dispatcher is started the
// topic is subscribed and its consumer launched immediately.
func (d *Dispatcher) Register(topic string, handler Handler) error {
	if topic == "" || handler == nil {
		return ErrInvalidRegistration
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	if _, exists := d.routes[topic]; exists {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTopicRegistered, topic)
	}
	r := &route{topic: topic, handler: handler, inbox: newMailbox[[]byte]()}
	d.routes[topic] = r
	started := d.started
	d.mu.Unlock()

	d.logger.Debug("handler registered", "topic", topic)
	if !started {
		return nil
	}

	if err := d.transport.Subscribe(topic, d.qos, d.deliver); err != nil {
		d.mu.Lock()
		delete(d.routes, topic)
		d.mu.Unlock()
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	d.startConsumer(r)
	return nil
}

// Unregister removes the handler for topic, unsubscribes it and stops its
// consumer. Queued messages for the topic are discarded.
func (d *Dispatcher) Unregister(topic string) error {
	d.mu.Lock()
	r, ok := d.routes[topic]
	var stopConsumer context.CancelFunc
	if ok {
		delete(d.routes, topic)
		stopConsumer = r.cancel
	}
	started := d.started && !d.stopped
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTopicNotRegistered, topic)
	}
	if stopConsumer != nil {
		stopConsumer()
	}
	if started {
		if err := d.transport.Unsubscribe(topic); err != nil {
			return fmt.Errorf("unsubscribing from %s: %w", topic, err)
		}
	}
	d.logger.Debug("handler unregistered", "topic", topic)
	return nil
}

// Topics returns the registered topics in lexical order.
func (d *Dispatcher) Topics() []string {
	d.mu.RLock()
	topics := make([]string, 0, len(d.routes))
	for t := range d.routes {
		topics = append(topics, t)
	}
	d.mu.RUnlock()
	sort.Strings(topics)
	return topics
}

// Pending returns how many messages are queued for topic.
func (d *Dispatcher) Pending(topic string) int {
	d.mu.RLock()
	r, ok := d.routes[topic]
	d.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.inbox.Len()
}

// Dropped returns how many messages arrived for unregistered topics.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Start launches a consumer for every registered topic and subscribes to
// each of them. Consumers stop when ctx is cancelled or Stop is called.
// Subscription failures are joined into the returned error; topics that
// did subscribe stay active.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	if d.started {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.started = true
	d.ctx, d.cancel = context.WithCancel(ctx)

	topics := make([]string, 0, len(d.routes))
	for topic, r := range d.routes {
		d.startConsumer(r)
		topics = append(topics, topic)
	}
	d.mu.Unlock()

	sort.Strings(topics)
	var errs []error
	for _, topic := range topics {
		if err := d.transport.Subscribe(topic, d.qos, d.deliver); err != nil {
			errs = append(errs, fmt.Errorf("subscribing to %s: %w", topic, err))
			continue
		}
		d.logger.Info("subscribed", "topic", topic)
	}
	return errors.Join(errs...)
}

// Run routes inbound messages to topic mailboxes until Stop is called
// (returns nil) or ctx is cancelled (returns ctx.Err()).
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.done:
			cancel()
		case <-runCtx.Done():
		}
	}()

	for {
		msg, err := d.inbound.Get(runCtx)
		if err != nil {
			select {
			case <-d.done:
				return nil
			default:
				return ctx.Err()
			}
		}
		d.route(msg)
	}
}

// Deliver queues a message received from the transport. It never blocks.
// Messages delivered after Stop are discarded.
func (d *Dispatcher) Deliver(topic string, payload []byte) {
	select {
	case <-d.done:
		return
	default:
	}
	d.inbound.Put(message{topic: topic, payload: payload})
}

// deliver is the transport callback.
func (d *Dispatcher) deliver(topic string, payload []byte) error {
	d.Deliver(topic, payload)
	return nil
}

// Stop unsubscribes every topic, stops all consumers and waits for them.
// A handler call in progress is allowed to finish; queued messages are
// discarded. Safe to call more than once and before Start.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		started := d.started
		cancel := d.cancel
		topics := make([]string, 0, len(d.routes))
		for t := range d.routes {
			topics = append(topics, t)
		}
		d.mu.Unlock()

		close(d.done)

		if started {
			sort.Strings(topics)
			for _, topic := range topics {
				if err := d.transport.Unsubscribe(topic); err != nil {
					d.logger.Warn("failed to unsubscribe", "topic", topic, "error", err)
				}
			}
		}
		if cancel != nil {
			cancel()
		}
		d.wg.Wait()
		d.logger.Info("dispatcher stopped", "dropped_unknown", d.dropped.Load())
	})
}

func (d *Dispatcher) route(msg message) {
	d.mu.RLock()
	r, ok := d.routes[msg.topic]
	d.mu.RUnlock()

	if !ok {
		n := d.dropped.Add(1)
		if d.limiter.Allow() {
			d.logger.Warn("dropping message for unregistered topic",
				"topic", msg.topic,
				"bytes", len(msg.payload),
				"dropped_total", n,
			)
		}
		return
	}
	r.inbox.Put(msg.payload)
}

// startConsumer launches r's consumer. Caller must hold d.mu with the
// dispatcher started and not stopped.
func (d *Dispatcher) startConsumer(r *route) {
	ctx, cancel := context.WithCancel(d.ctx)
	r.cancel = cancel
	d.wg.Add(1)
	go d.consume(ctx, r)
}

func (d *Dispatcher) consume(ctx context.Context, r *route) {
	defer d.wg.Done()
	for {
		payload, err := r.inbox.Get(ctx)
		if err != nil {
			return
		}
		d.invoke(ctx, r, payload)
	}
}

// invoke calls the handler, converting errors and panics into log entries.
func (d *Dispatcher) invoke(ctx context.Context, r *route, payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("handler panic recovered",
				"topic", r.topic,
				"panic", fmt.Sprint(rec),
			)
		}
	}()

	if err := r.handler.Handle(ctx, r.topic, payload); err != nil {
		d.logger.Error("handler failed", "topic", r.topic, "error", err)
	}
}
