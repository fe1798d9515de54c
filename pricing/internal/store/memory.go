package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type MemoryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMemoryStore creates the redis client holding session blobs and view
// counters. Session keys expire after ttl of inactivity.
func NewMemoryStore(addr, password string, db int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Ping verifies connectivity and credentials.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *MemoryStore) Close() error {
	return m.client.Close()
}

// --- Session blobs ---

// Load reads a session blob and refreshes its ttl.
func (m *MemoryStore) Load(ctx context.Context, sessionID, name string) ([]byte, bool, error) {
	key := sessionKey(sessionID, name)
	val, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if m.ttl > 0 {
		m.client.Expire(ctx, key, m.ttl)
	}
	return val, true, nil
}

func (m *MemoryStore) Save(ctx context.Context, sessionID, name string, data []byte) error {
	return m.client.Set(ctx, sessionKey(sessionID, name), data, m.ttl).Err()
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID, name string) error {
	return m.client.Del(ctx, sessionKey(sessionID, name)).Err()
}

// --- View tracking ---

func viewsKey(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10) + ":views"
}

func visitorsKey(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10) + ":visitors"
}

// RecordView counts a product page view and its visitor.
func (m *MemoryStore) RecordView(ctx context.Context, productID int64, visitorID string) error {
	pipe := m.client.TxPipeline()
	pipe.Incr(ctx, viewsKey(productID))
	if visitorID != "" {
		pipe.PFAdd(ctx, visitorsKey(productID), visitorID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ViewStats returns total views and the approximate distinct visitors.
func (m *MemoryStore) ViewStats(ctx context.Context, productID int64) (int64, int64, error) {
	views, err := m.client.Get(ctx, viewsKey(productID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	users, err := m.client.PFCount(ctx, visitorsKey(productID)).Result()
	if err != nil {
		return 0, 0, err
	}
	return views, users, nil
}
