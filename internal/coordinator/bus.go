// internal/coordinator/bus.go
package coordinator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
)

// Bus fans agent updates out to observers. Delivery is best-effort: a slow
// observer whose buffer is full loses intermediate updates rather than
// stalling the agent that produced them. Updates for one agent are delivered
// in publish order to every observer that receives them.
type Bus struct {
	logger *zap.Logger

	subscribers []chan schemas.AgentUpdate
	mu          sync.RWMutex
	bufferSize  int
	isShutdown  bool
}

// NewBus creates a broadcast bus. bufferSize <= 0 selects a default.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		logger:     logger.Named("agent_bus"),
		bufferSize: bufferSize,
	}
}

// Publish delivers an update to every observer without blocking.
func (b *Bus) Publish(update schemas.AgentUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.isShutdown {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- update:
		default:
			b.logger.Debug("Dropping update for slow observer.",
				zap.String("agent_id", update.Agent.ID),
			)
		}
	}
}

// Subscribe registers an observer. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan schemas.AgentUpdate, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan schemas.AgentUpdate, b.bufferSize)
	if b.isShutdown {
		close(ch)
		return ch, func() {}
	}
	b.subscribers = append(b.subscribers, ch)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.isShutdown {
				return
			}
			for i, sub := range b.subscribers {
				if sub == ch {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Shutdown closes every observer channel. Publish becomes a no-op.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isShutdown {
		return
	}
	b.isShutdown = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
