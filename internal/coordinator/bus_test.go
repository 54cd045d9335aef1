// internal/coordinator/bus_test.go
package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
)

func update(id string, progress int) schemas.AgentUpdate {
	return schemas.AgentUpdate{Agent: schemas.AgentSnapshot{ID: id, Progress: progress}}
}

func TestBus_DeliversInOrder(t *testing.T) {
	t.Parallel()
	bus := NewBus(zap.NewNop(), 8)
	defer bus.Shutdown()

	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(update("a", 10))
	bus.Publish(update("a", 20))

	assert.Equal(t, 10, (<-ch).Agent.Progress)
	assert.Equal(t, 20, (<-ch).Agent.Progress)
}

func TestBus_SlowObserverNeverBlocksPublish(t *testing.T) {
	t.Parallel()
	bus := NewBus(zap.NewNop(), 1)
	defer bus.Shutdown()

	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(update("a", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full observer buffer")
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	bus := NewBus(zap.NewNop(), 8)
	defer bus.Shutdown()

	ch, unsubscribe := bus.Subscribe()
	unsubscribe()
	unsubscribe() // safe to call twice

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic or deliver.
	bus.Publish(update("a", 1))
}

func TestBus_ShutdownClosesSubscribers(t *testing.T) {
	t.Parallel()
	bus := NewBus(zap.NewNop(), 8)

	ch, unsubscribe := bus.Subscribe()
	bus.Shutdown()
	defer unsubscribe()

	_, open := <-ch
	require.False(t, open)

	bus.Publish(update("a", 1)) // no-op after shutdown

	// A subscription made after shutdown yields a closed channel.
	late, lateUnsub := bus.Subscribe()
	defer lateUnsub()
	_, open = <-late
	assert.False(t, open)
}
