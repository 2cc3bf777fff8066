package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends each message to a Redis stream named after the subject.
type RedisPublisher struct {
	client *redis.Client
}

func newRedisPublisher(url, password string, db int) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url, Password: password, DB: db}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: msg.Subject,
		ID:     "*",
		Values: map[string]interface{}{
			"id":       msg.ID,
			"encoding": Encoding,
			"data":     msg.Data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", msg.Subject, err)
	}
	return nil
}

func (p *RedisPublisher) Name() string { return TypeRedis }

func (p *RedisPublisher) Close() error { return p.client.Close() }
