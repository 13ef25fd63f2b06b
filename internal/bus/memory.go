package bus

import (
	"context"
	"sync"

	"chat-service/internal/models"
)

// MemoryBus is an in-process Bus used for tests and single-node runs. Like
// the Redis implementation it delivers published events to subscribers in
// the same process, the publisher included.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewMemoryBus constructs an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// PublishToUser synchronously invokes every subscribed handler.
func (b *MemoryBus) PublishToUser(_ context.Context, username string, event models.Event) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(username, event)
	}
	return nil
}

// Subscribe registers the handler and blocks until ctx is canceled.
func (b *MemoryBus) Subscribe(ctx context.Context, handler Handler) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

var _ Bus = (*MemoryBus)(nil)
