package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConsumer collects processed events.
type recordingConsumer struct {
	name string
	mu   sync.Mutex
	seen []DiagnosticEvent
}

func (c *recordingConsumer) Name() string { return c.name }

func (c *recordingConsumer) ProcessEvent(event DiagnosticEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, event)
	return nil
}

func (c *recordingConsumer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func newTestBus(t *testing.T) *EventBus {
	t.Helper()
	ResetForTesting()
	bus, err := Initialize(&Config{BufferSize: 16, Enabled: true}, nil)
	require.NoError(t, err)
	t.Cleanup(ResetForTesting)
	return bus
}

func TestPublishWithoutConsumersUsesFastPath(t *testing.T) {
	bus := newTestBus(t)
	bus.Start()

	ok := bus.Publish(&DownsampleEvent{Path: "a.jpg", Timestamp: time.Now()})
	assert.True(t, ok)

	stats := bus.GetStats()
	assert.Equal(t, uint64(1), stats.FastPathHits)
}

func TestPublishDeliversToConsumer(t *testing.T) {
	bus := newTestBus(t)
	consumer := &recordingConsumer{name: "recorder"}
	require.NoError(t, bus.RegisterConsumer(consumer))
	bus.Start()

	bus.Publish(&DownsampleEvent{
		Path:          "a.jpg",
		OriginalCount: 120000,
		SampledCount:  50000,
		Method:        "uniform-stride",
		Timestamp:     time.Now(),
	})

	deadline := time.Now().Add(2 * time.Second)
	for consumer.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, consumer.count())

	event, ok := consumer.seen[0].(*DownsampleEvent)
	require.True(t, ok)
	assert.Equal(t, 120000, event.OriginalCount)
	assert.Equal(t, 50000, event.SampledCount)
}

func TestDuplicateConsumerRejected(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.RegisterConsumer(&recordingConsumer{name: "dup"}))
	assert.Error(t, bus.RegisterConsumer(&recordingConsumer{name: "dup"}))
}

func TestPublishNeverBlocksWhenBufferFull(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.RegisterConsumer(&recordingConsumer{name: "slow"}))
	// Not started: nothing drains the channel.

	delivered := 0
	for i := 0; i < 100; i++ {
		if bus.Publish(&QueueDepthEvent{Depth: i, Timestamp: time.Now()}) {
			delivered++
		}
	}
	assert.Zero(t, delivered, "a stopped bus refuses instead of blocking")
}

func TestPublishDropsWhenSaturated(t *testing.T) {
	bus := newTestBus(t)
	blocker := make(chan struct{})
	require.NoError(t, bus.RegisterConsumer(&blockingConsumer{release: blocker}))
	bus.Start()

	// Saturate the buffer past its capacity; excess events are dropped,
	// never blocking the publisher.
	for i := 0; i < 64; i++ {
		bus.Publish(&QueueDepthEvent{Depth: i, Timestamp: time.Now()})
	}
	close(blocker)

	stats := bus.GetStats()
	assert.Positive(t, stats.EventsDropped)
}

// blockingConsumer stalls until released.
type blockingConsumer struct {
	release chan struct{}
}

func (c *blockingConsumer) Name() string { return "blocking" }

func (c *blockingConsumer) ProcessEvent(event DiagnosticEvent) error {
	<-c.release
	return nil
}
