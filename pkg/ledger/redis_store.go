package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript performs the read-and-conditional-increment as one atomic
// server-side operation. Returning the current count on denial keeps denied
// checks side-effect free.
var incrementScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
	return {count, 0}
end
count = redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
return {count, 1}
`)

// RedisStore implements Store on Redis. Atomicity comes from running the
// conditional increment as a Lua script; stale counters expire via key TTL,
// so Sweep is a no-op.
type RedisStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRetention sets how long after its period start a counter key lives
// before Redis expires it. Must cover the longest quota period.
func WithRetention(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewRedisStore creates a ledger store on the given Redis client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		retention: 14 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Increment(ctx context.Context, key Key, limit int) (int, bool, error) {
	if limit <= 0 {
		count, err := s.Count(ctx, key)
		return count, false, err
	}

	expireAt := key.PeriodStart.Add(s.retention).Unix()
	res, err := incrementScript.Run(ctx, s.client, []string{key.String()}, limit, expireAt).Slice()
	if err != nil {
		return 0, false, errors.Join(ErrStoreFailure, err)
	}
	if len(res) != 2 {
		return 0, false, errors.Join(ErrStoreFailure, errors.New("unexpected script reply"))
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, false, errors.Join(ErrStoreFailure, errors.New("unexpected script reply type"))
	}
	granted, _ := res[1].(int64)

	return int(count), granted == 1, nil
}

func (s *RedisStore) Count(ctx context.Context, key Key) (int, error) {
	count, err := s.client.Get(ctx, key.String()).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return count, nil
}

// Sweep is a no-op for Redis; EXPIREAT reclaims stale counters.
func (s *RedisStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}
