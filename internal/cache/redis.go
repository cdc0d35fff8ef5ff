package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces cache entries so Clear never touches unrelated
// keys in a shared instance.
const redisKeyPrefix = "tgcache:"

type redisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and returns a Store implementation for
// deployments that share the cache across processes or restarts.
func NewRedisStore(addr string) (Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisStore{client: client}, nil
}

func (r *redisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return e, true, nil
}

func (r *redisStore) Set(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return r.client.Set(ctx, redisKeyPrefix+key, raw, 0).Err()
}

func (r *redisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, redisKeyPrefix+key).Result()
	return n > 0, err
}

func (r *redisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	return keys, iter.Err()
}

func (r *redisStore) Len(ctx context.Context) (int, error) {
	keys, err := r.Keys(ctx)
	return len(keys), err
}

func (r *redisStore) Clear(ctx context.Context) (int, error) {
	keys, err := r.Keys(ctx)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := r.client.Del(ctx, redisKeyPrefix+k).Err(); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}
