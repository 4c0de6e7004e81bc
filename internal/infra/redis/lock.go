package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"paystack-billing/internal/domain"
)

var ErrLockNotAcquired = domain.ErrLockNotAcquired

// Locker is a single-instance SetNX lock with token-checked release.
type Locker struct {
	client *Client
	tries  int
	wait   time.Duration
}

func NewLocker(c *Client) *Locker {
	return &Locker{client: c, tries: 5, wait: 50 * time.Millisecond}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < l.tries; i++ {
		ok, err := l.client.SetNX(ctx, key, token, ttl)
		if err == nil && ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.wait):
		}
	}
	return "", ErrLockNotAcquired
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.client.cli, []string{l.client.key(key)}, token).Result()
	return err
}
