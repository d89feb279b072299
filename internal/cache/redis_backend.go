package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig addresses a Redis server used as the cache medium.
type RedisConfig struct {
	Addr     string
	DB       int
	Password string
}

// RedisBackend stores entries as plain Redis strings without expiry;
// staleness is decided from the envelope timestamp, not from Redis TTLs.
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend connects lazily; call Ping to verify reachability.
func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	return &RedisBackend{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})}
}

// Ping checks the connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return v, err
}

func (b *RedisBackend) Store(ctx context.Context, key string, val []byte, _ time.Time) error {
	return b.rdb.Set(ctx, key, val, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.rdb.Del(ctx, keys...).Err()
}

// DeletePrefix scans for keys under prefix and deletes them in batches.
func (b *RedisBackend) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	pattern := globEscape(prefix) + "*"
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := b.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// globEscape quotes the glob metacharacters understood by SCAN MATCH.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
