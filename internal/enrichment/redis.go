package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

const redisKeyPrefix = "outreach:enrichment:"

// RedisMirror stores enrichment entries as JSON so replicas share
// backfilled fields
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror connects to redisURL and verifies the connection
func NewRedisMirror(ctx context.Context, redisURL string, ttl time.Duration) (*RedisMirror, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}
	return NewRedisMirrorFromClient(client, ttl), nil
}

// NewRedisMirrorFromClient wraps an existing client
func NewRedisMirrorFromClient(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

func redisKey(id int64) string {
	return redisKeyPrefix + strconv.FormatInt(id, 10)
}

// Load returns nil, nil when id is not mirrored
func (m *RedisMirror) Load(ctx context.Context, id int64) (*types.EnrichmentEntry, error) {
	raw, err := m.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %d: %w", id, err)
	}
	var entry types.EnrichmentEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode mirrored entry %d: %w", id, err)
	}
	return &entry, nil
}

// Save writes entry with the mirror's TTL
func (m *RedisMirror) Save(ctx context.Context, entry types.EnrichmentEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry %d: %w", entry.ID, err)
	}
	if err := m.client.Set(ctx, redisKey(entry.ID), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %d: %w", entry.ID, err)
	}
	return nil
}

// Clear deletes every mirrored entry using SCAN
func (m *RedisMirror) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := m.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := m.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the Redis connection
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
