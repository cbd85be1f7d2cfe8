package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/pyramid-solver/game/service"
)

const (
	DefaultRedisPrefix = "pyramid:run:"
	redisOpTimeout     = 5 * time.Second
)

// RedisPersistence implements RunPersistence on a Redis server. Each run is a
// JSON string under prefix+id and expires after ttl (0 keeps it forever).
type RedisPersistence struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPersistence connects to the server at url (redis://host:port/db)
// and checks it is reachable.
func NewRedisPersistence(url, prefix string, ttl time.Duration) (*RedisPersistence, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rp := NewRedisPersistenceWithClient(redis.NewClient(opts), prefix, ttl)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rp.client.Ping(ctx).Err(); err != nil {
		rp.client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return rp, nil
}

// NewRedisPersistenceWithClient wraps an existing client
func NewRedisPersistenceWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisPersistence {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisPersistence{client: client, prefix: prefix, ttl: ttl}
}

// Close releases the connection pool
func (rp *RedisPersistence) Close() error {
	return rp.client.Close()
}

// Save stores a run, refreshing its expiry
func (rp *RedisPersistence) Save(run *service.Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if !validID(run.ID) {
		return ErrInvalidRunID
	}

	data, err := json.Marshal(persistedRun{Version: persistedVersion, Run: run})
	if err != nil {
		return fmt.Errorf("failed to marshal run data: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := rp.client.Set(ctx, rp.key(run.ID), data, rp.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

// Load retrieves a run by ID
func (rp *RedisPersistence) Load(id string) (*service.Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := rp.client.Get(ctx, rp.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	return decodeRun(data)
}

// Delete removes a run
func (rp *RedisPersistence) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := rp.client.Del(ctx, rp.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// ListAll returns the IDs of all stored runs
func (rp *RedisPersistence) ListAll() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var ids []string
	iter := rp.client.Scan(ctx, 0, rp.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), rp.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}
	return ids, nil
}

// Exists checks if a run is stored
func (rp *RedisPersistence) Exists(id string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := rp.client.Exists(ctx, rp.key(id)).Result()
	return err == nil && n > 0
}

func (rp *RedisPersistence) key(id string) string {
	return rp.prefix + id
}
