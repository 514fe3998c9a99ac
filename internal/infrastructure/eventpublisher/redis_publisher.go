package eventpublisher

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iho/loanledger/internal/domain"
)

// RedisPublisher publishes events to a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends the JSON envelope of event to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := encode(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}

	return nil
}
