package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared backend: multiple gateway instances see the same
// entries, so a permission invalidation on one instance reaches all of
// them within the TTL window.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "lms-edge"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + ":" + k }

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if err != nil {
		// Treat any redis failure as a miss; the caller repopulates from
		// the store. A flaky cache must not take auth down with it.
		return "", false
	}
	return v, true
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	err := r.rdb.Del(ctx, r.key(key)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Flush deletes only keys under this client's prefix, never the whole DB.
func (r *Redis) Flush(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
