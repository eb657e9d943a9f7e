// Package messaging implements the in-process domain event bus.
package messaging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers domain events to handlers in this process.
//
// Handlers registered with Subscribe run on the worker pool when AsyncMode is
// set, so Publish returns before they finish. Handlers registered with
// SubscribeSync always run inside Publish, in registration order, before it
// returns. Cache invalidation uses the latter so a caller that observed a
// commit never reads a payload computed before it.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]subscription
	allHandlers []subscription
	asyncMode   bool
	workerPool  chan struct{}
	logger      *logger.Logger
	metrics     *metrics.Manager
	instanceID  string
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

type subscription struct {
	handler shared.EventHandler
	inline  bool
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs Subscribe handlers on the worker pool.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent async handlers.
	WorkerPoolSize int

	Logger *logger.Logger

	// Metrics receives publish counts and handler latency. Nil disables them.
	Metrics *metrics.Manager
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Nop()
	}

	instanceID := uuid.NewString()
	bus := &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]subscription),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		logger:     config.Logger.With(logger.Component("eventbus"), logger.String("instance_id", instanceID)),
		instanceID: instanceID,
		metrics:    config.Metrics,
		closeCh:    make(chan struct{}),
	}
	return bus
}

// InstanceID identifies this bus in logs.
func (b *InMemoryEventBus) InstanceID() string {
	return b.instanceID
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.subscribe(eventType, handler, false)
}

// SubscribeSync registers a handler that always runs inside Publish.
func (b *InMemoryEventBus) SubscribeSync(eventType shared.EventType, handler shared.EventHandler) error {
	return b.subscribe(eventType, handler, true)
}

func (b *InMemoryEventBus) subscribe(eventType shared.EventType, handler shared.EventHandler, inline bool) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], subscription{handler: handler, inline: inline})
	b.logger.Debug("subscribed handler", logger.String("event_type", string(eventType)), logger.Bool("inline", inline))
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, subscription{handler: handler})
	return nil
}

// Publish sends an event to all subscribed handlers. Handler errors are
// logged and never returned.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	subs := make([]subscription, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	subs = append(subs, b.handlers[event.EventType()]...)
	subs = append(subs, b.allHandlers...)
	b.mu.RUnlock()

	b.metrics.RecordDomainEvent(string(event.EventType()))
	if len(subs) == 0 {
		b.logger.Debug("no handlers for event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	for _, sub := range subs {
		if sub.inline || !b.asyncMode {
			if err := b.execute(event, sub.handler); err != nil {
				b.logger.Error("handler error",
					logger.String("event_type", string(event.EventType())),
					logger.String("event_id", event.EventID()),
					logger.Err(err),
				)
			}
			continue
		}
		b.executeAsync(event, sub.handler)
	}
	return nil
}

// PublishAll publishes events in order, stopping at the first bus error.
func (b *InMemoryEventBus) PublishAll(events []shared.Event) error {
	for _, e := range events {
		if err := b.Publish(e); err != nil {
			return err
		}
	}
	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		if err := b.execute(event, handler); err != nil {
			b.logger.Error("async handler error",
				logger.String("event_type", string(event.EventType())),
				logger.String("event_id", event.EventID()),
				logger.Err(err),
			)
		}
	}()
}

// execute runs one handler, converting a panic into ErrHandlerPanic.
func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		b.metrics.ObserveEventHandler(string(event.EventType()), time.Since(start), err)
	}()
	return handler(event)
}

// Close stops accepting events and waits for in-flight async handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	close(b.closeCh)

	b.logger.Info("event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("handler panicked")
)
