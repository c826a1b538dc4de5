package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// MarkerStore remembers which external items an area has already fired for,
// so pollers do not trigger the same run twice. Markers expire; dedup is a
// window, not a permanent log.
type MarkerStore interface {
	// Seen marks the item and reports whether it was already marked.
	Seen(ctx context.Context, areaID, itemID string) (bool, error)
	Close() error
}

type MemoryMarkerStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewMemoryMarkerStore(ttl time.Duration) *MemoryMarkerStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &MemoryMarkerStore{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (s *MemoryMarkerStore) Seen(_ context.Context, areaID, itemID string) (bool, error) {
	key := markerKey(areaID, itemID)
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, expires := range s.seen {
		if now.After(expires) {
			delete(s.seen, k)
		}
	}

	if _, ok := s.seen[key]; ok {
		return true, nil
	}

	s.seen[key] = now.Add(s.ttl)

	return false, nil
}

func (s *MemoryMarkerStore) Close() error {
	return nil
}

// RedisMarkerStore shares dedup markers across scheduler instances.
type RedisMarkerStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisMarkerStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisMarkerStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisMarkerStore{client: client, ttl: ttl}, nil
}

func (s *RedisMarkerStore) Seen(ctx context.Context, areaID, itemID string) (bool, error) {
	set, err := s.client.SetNX(ctx, "areaflow:marker:"+markerKey(areaID, itemID), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedup marker: %w", err)
	}

	// SetNX returns false when the key already existed.
	return !set, nil
}

func (s *RedisMarkerStore) Close() error {
	return s.client.Close()
}

func markerKey(areaID, itemID string) string {
	return areaID + ":" + itemID
}
