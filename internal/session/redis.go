package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCmdable is the subset of *redis.Client used by RedisStore.
type RedisCmdable interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps the session fields in one hash, so a shared workstation profile can
// see the same login from several shells.
type RedisStore struct {
	client RedisCmdable
	key    string
}

func NewRedisStore(client RedisCmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	m, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("session: redis hgetall: %w", err)
	}
	return fromFields(m)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if !s.Valid() {
		return errors.New("session: refusing to save a session without token")
	}
	// Drop stale optional keys from a previous hospital before writing.
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	fields := toFields(s)
	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	if err := r.client.HSet(ctx, r.key, values...).Err(); err != nil {
		return fmt.Errorf("session: redis hset: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}
