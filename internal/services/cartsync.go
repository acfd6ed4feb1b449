package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"podreseller_back_end/internal/apperr"
)

// Payloads published on a shopper's cart channel.
const (
	CartUpdated = "updated"
	CartCleared = "cleared"
)

func cartChannel(email string) string { return "cart:" + email }

// CartEvents fans cart changes out to every open cart stream through Redis
// pub/sub, so streams on other instances see them too.
type CartEvents struct {
	rdb *redis.Client
}

// NewCartEvents returns nil when rdb is nil. A nil CartEvents drops publishes
// and refuses subscriptions.
func NewCartEvents(rdb *redis.Client) *CartEvents {
	if rdb == nil {
		return nil
	}
	return &CartEvents{rdb: rdb}
}

func (e *CartEvents) Publish(ctx context.Context, email, event string) error {
	if e == nil || email == "" {
		return nil
	}
	if err := e.rdb.Publish(ctx, cartChannel(email), event).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", cartChannel(email), err)
	}
	return nil
}

// Subscribe returns the payloads published for email until stop is called.
func (e *CartEvents) Subscribe(ctx context.Context, email string) (<-chan string, func(), error) {
	if e == nil {
		return nil, nil, apperr.Unavailable("cart sync is not configured")
	}

	pubsub := e.rdb.Subscribe(ctx, cartChannel(email))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", cartChannel(email), err)
	}

	out := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, stop, nil
}
