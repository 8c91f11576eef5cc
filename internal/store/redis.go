package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores each collection as a JSON array under a single key.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "fleet:collection:"}
}

func (r *Redis) key(collection string) string {
	return r.prefix + collection
}

func (r *Redis) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	payload, err := r.client.Get(ctx, r.key(collection)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", collection, err)
	}
	return decodeArray(collection, payload)
}

func (r *Redis) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	if err := r.client.Set(ctx, r.key(collection), encodeArray(records), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", collection, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// PublishAlert pushes an alert payload onto the fleet alert channel for
// out-of-process subscribers.
func (r *Redis) PublishAlert(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, "fleet:alerts", payload).Err()
}
