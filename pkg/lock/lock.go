package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// ErrNotAcquired is returned when the lock is held by another owner.
var ErrNotAcquired = fmt.Errorf("lock not acquired")

// Locker provides short-lived mutual exclusion keyed by an arbitrary string.
// When no Redis client is configured every Acquire succeeds, leaving
// serialization to the database layer of the caller.
type Locker struct {
	client *redis.Client
}

// NewLocker builds a locker on top of the given Redis client (may be nil).
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Lease represents a held lock. Release is safe to call once.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock for key with the given TTL. It does not retry; the
// caller decides whether a contended lock means "try again" or "give up".
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l.client == nil {
		return &Lease{}, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lease{client: l.client, key: key, token: token}, nil
}

// Release frees the lock if this lease still owns it.
func (le *Lease) Release(ctx context.Context) {
	if le == nil || le.client == nil {
		return
	}
	_ = le.client.Eval(ctx, releaseScript, []string{le.key}, le.token).Err()
}
