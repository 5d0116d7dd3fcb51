package dedupe

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreFirstSeen(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if ok, _ := m.FirstSeen(ctx, "wamid.1"); !ok {
		t.Fatal("first delivery should be new")
	}
	if ok, _ := m.FirstSeen(ctx, "wamid.1"); ok {
		t.Fatal("redelivery should be a duplicate")
	}
	if ok, _ := m.FirstSeen(ctx, "wamid.2"); !ok {
		t.Fatal("other key should be new")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := m.FirstSeen(ctx, "wamid.1"); !ok {
		t.Fatal("key should be forgotten after ttl")
	}

	_ = m.Forget(ctx, "wamid.2")
	if ok, _ := m.FirstSeen(ctx, "wamid.2"); !ok {
		t.Fatal("released key should be claimable again")
	}
}

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisStoreFirstSeen(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, time.Minute)
	key := "test:" + uuid.NewString()
	defer client.Del(ctx, keyPrefix+key)

	ok, err := s.FirstSeen(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first claim to win")
	}
	ok, err = s.FirstSeen(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second claim to lose")
	}
	if ttl := client.TTL(ctx, keyPrefix+key).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}
	if err := s.Forget(ctx, key); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if ok, _ = s.FirstSeen(ctx, key); !ok {
		t.Error("expected claim after forget to win")
	}
}
