package moderation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DecisionChannel is the Redis pub/sub channel carrying decision events.
const DecisionChannel = "scholarship.moderated"

// RedisPublisher publishes decision events on DecisionChannel.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher returns a Publisher backed by rdb.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// PublishDecision implements Publisher.
func (p *RedisPublisher) PublishDecision(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}
	return p.rdb.Publish(ctx, DecisionChannel, payload).Err()
}
