package dedupe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "wa-relay:seen:"
	DefaultTTL = 24 * time.Hour
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// FirstSeen claims key for ttl. Only the first caller gets true.
func (r *RedisStore) FirstSeen(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, keyPrefix+key, 1, r.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Forget drops a claim so a redelivery of key is processed again.
func (r *RedisStore) Forget(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}
