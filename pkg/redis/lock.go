package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker provides best-effort exclusive job locks across scheduler instances
// ⭐ SSOT: 작업 잠금은 여기서만
type Locker struct {
	client *Client
	prefix string
}

// NewLocker creates a new job locker
func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Acquire takes the lock for ttl. owner must be unique per holder.
// Returns (acquired, error)
func (l *Locker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if !l.client.Enabled() {
		// Redis 비활성 시 단일 인스턴스로 간주
		return true, nil
	}

	fullKey := fmt.Sprintf("%s:lock:%s", l.prefix, key)
	ok, err := l.client.Redis().SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock acquire failed: %w", err)
	}
	return ok, nil
}

// Release drops the lock only if owner still holds it
func (l *Locker) Release(ctx context.Context, key, owner string) error {
	if !l.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:lock:%s", l.prefix, key)
	if err := releaseScript.Run(ctx, l.client.Redis(), []string{fullKey}, owner).Err(); err != nil {
		return fmt.Errorf("lock release failed: %w", err)
	}
	return nil
}
