package adapter

import (
	"context"
	"time"
)

// Locker serializes work on one key across instances. TryLock returns
// domain.ErrLockNotAcquired when the key is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Cipher seals provider secrets before they are stored.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(value string) (string, error)
}
