package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"

	"chat-service/internal/models"
	"chat-service/internal/observability"
)

// Handler receives every event published for a user, including events
// published by the same process.
type Handler func(username string, event models.Event)

// Bus delivers events to a user regardless of which server process holds
// that user's socket. Delivery is at-most-once and fire-and-forget.
type Bus interface {
	// PublishToUser sends the event to every subscribed process, keyed by
	// recipient username.
	PublishToUser(ctx context.Context, username string, event models.Event) error
	// Subscribe invokes the handler for every published event until ctx is
	// canceled. Blocks; run it on its own goroutine.
	Subscribe(ctx context.Context, handler Handler) error
}

const channelPrefix = "events:user:"

// RedisBus implements Bus over Redis pub/sub. Redis delivers published
// messages to the publisher's own subscription as well, so a single-process
// deployment behaves identically to a scaled one.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus constructs a RedisBus.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// PublishToUser publishes the event on the recipient's channel.
func (b *RedisBus) PublishToUser(ctx context.Context, username string, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("bus marshal: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+username, payload).Err(); err != nil {
		observability.IncBusError()
		return fmt.Errorf("bus publish: %w", err)
	}
	return nil
}

// Subscribe pattern-subscribes on all user channels and dispatches to the
// handler until ctx is canceled.
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler) error {
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			username := strings.TrimPrefix(msg.Channel, channelPrefix)
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("bus: dropping malformed event on %s: %v", msg.Channel, err)
				observability.IncBusError()
				continue
			}
			handler(username, event)
		}
	}
}
