package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "smp:records:"

// RedisBackend keeps every namespace in one Redis hash keyed by entity ID.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithKeyPrefix changes the hash key prefix, e.g. to share one Redis between
// several registries.
func WithKeyPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// NewRedisBackend wraps a connected client. Close closes the client.
func NewRedisBackend(client *redis.Client, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{client: client, prefix: defaultRedisKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Persister(namespace string) (Persister, error) {
	if !namespacePattern.MatchString(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}
	return &redisPersister{client: b.client, key: b.prefix + namespace}, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

type redisPersister struct {
	client *redis.Client
	key    string
}

func (p *redisPersister) LoadAll(ctx context.Context) ([]Record, error) {
	values, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", p.key, err)
	}
	records := make([]Record, 0, len(values))
	for _, id := range sortedKeys(values) {
		records = append(records, Record{ID: id, Data: []byte(values[id])})
	}
	return records, nil
}

func (p *redisPersister) Put(ctx context.Context, id string, data []byte) error {
	if err := p.client.HSet(ctx, p.key, id, data).Err(); err != nil {
		return fmt.Errorf("hset %s/%s: %w", p.key, id, err)
	}
	return nil
}

func (p *redisPersister) Delete(ctx context.Context, id string) error {
	if err := p.client.HDel(ctx, p.key, id).Err(); err != nil {
		return fmt.Errorf("hdel %s/%s: %w", p.key, id, err)
	}
	return nil
}
