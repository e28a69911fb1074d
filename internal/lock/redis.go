package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so
// an expired lock re-acquired by another holder is never released by us.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker implements Locker with SET NX PX. The TTL bounds how long a
// crashed holder can block others.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLocker(rdb *redis.Client, prefix string, ttl, poll time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if poll <= 0 {
		poll = 25 * time.Millisecond
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, poll: poll}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func() error, error) {
	full := l.prefix + key
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis lock %s: %w", full, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() error {
		// Release on a fresh context: the caller's may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := releaseScript.Run(rctx, l.rdb, []string{full}, token).Int64()
		if err != nil {
			return fmt.Errorf("redis unlock %s: %w", full, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
