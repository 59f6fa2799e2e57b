package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// EventBus provides asynchronous event processing with non-blocking guarantees
type EventBus struct {
	eventChan chan DiagnosticEvent

	bufferSize int

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	initialized atomic.Bool
	running     atomic.Bool
	mu          sync.Mutex

	consumers []EventConsumer

	statsReceived  atomic.Uint64
	statsProcessed atomic.Uint64
	statsDropped   atomic.Uint64
	statsErrors    atomic.Uint64
	statsFastPath  atomic.Uint64

	logger *slog.Logger
}

// Config holds event bus configuration
type Config struct {
	BufferSize int
	Enabled    bool
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 4096,
		Enabled:    true,
	}
}

// Global event bus instance (lazily initialized)
var (
	globalEventBus *EventBus
	globalMutex    sync.Mutex
)

// Initialize creates or returns the global event bus instance
func Initialize(config *Config, logger *slog.Logger) (*EventBus, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if globalEventBus != nil {
		return globalEventBus, nil
	}

	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		eventChan:  make(chan DiagnosticEvent, config.BufferSize),
		bufferSize: config.BufferSize,
		ctx:        ctx,
		cancel:     cancel,
		consumers:  make([]EventConsumer, 0),
		logger:     logger,
	}
	eb.initialized.Store(true)
	globalEventBus = eb

	if logger != nil {
		logger.Info("event bus initialized", "buffer_size", config.BufferSize)
	}
	return eb, nil
}

// GetEventBus returns the global event bus instance
func GetEventBus() *EventBus {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return globalEventBus
}

// ResetForTesting discards the global instance so tests can re-initialize.
func ResetForTesting() {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	if globalEventBus != nil {
		globalEventBus.Stop()
	}
	globalEventBus = nil
}

// RegisterConsumer adds a new event consumer
func (eb *EventBus) RegisterConsumer(consumer EventConsumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}
	eb.consumers = append(eb.consumers, consumer)
	return nil
}

// Start launches the dispatch goroutine. Safe to call once.
func (eb *EventBus) Start() {
	if eb == nil || !eb.running.CompareAndSwap(false, true) {
		return
	}
	eb.wg.Add(1)
	go eb.dispatch()
}

// Stop cancels dispatching and waits for in-flight events to drain.
func (eb *EventBus) Stop() {
	if eb == nil || !eb.running.CompareAndSwap(true, false) {
		return
	}
	eb.cancel()
	eb.wg.Wait()
}

// Publish delivers an event without ever blocking the caller. Events are
// dropped, counted and logged when the buffer is full.
func (eb *EventBus) Publish(event DiagnosticEvent) bool {
	if eb == nil || !eb.running.Load() {
		return false
	}

	eb.statsReceived.Add(1)

	eb.mu.Lock()
	noConsumers := len(eb.consumers) == 0
	eb.mu.Unlock()
	if noConsumers {
		eb.statsFastPath.Add(1)
		return true
	}

	select {
	case eb.eventChan <- event:
		return true
	default:
		eb.statsDropped.Add(1)
		return false
	}
}

// dispatch delivers queued events to all consumers until Stop.
func (eb *EventBus) dispatch() {
	defer eb.wg.Done()
	for {
		select {
		case <-eb.ctx.Done():
			// Drain remaining events before exit.
			for {
				select {
				case event := <-eb.eventChan:
					eb.deliver(event)
				default:
					return
				}
			}
		case event := <-eb.eventChan:
			eb.deliver(event)
		}
	}
}

func (eb *EventBus) deliver(event DiagnosticEvent) {
	eb.mu.Lock()
	consumers := make([]EventConsumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	eb.mu.Unlock()

	for _, consumer := range consumers {
		if err := consumer.ProcessEvent(event); err != nil {
			eb.statsErrors.Add(1)
			if eb.logger != nil {
				eb.logger.Warn("event consumer failed",
					"consumer", consumer.Name(),
					"kind", event.GetKind(),
					"error", err)
			}
		}
	}
	eb.statsProcessed.Add(1)
}

// GetStats returns a snapshot of bus statistics
func (eb *EventBus) GetStats() BusStats {
	return BusStats{
		EventsReceived:  eb.statsReceived.Load(),
		EventsProcessed: eb.statsProcessed.Load(),
		EventsDropped:   eb.statsDropped.Load(),
		ConsumerErrors:  eb.statsErrors.Load(),
		FastPathHits:    eb.statsFastPath.Load(),
	}
}
