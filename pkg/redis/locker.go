package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lease expired cannot drop a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive leases backed by SET NX PX.
// It is a best-effort mutex across replicas, not a fencing primitive.
type Locker struct {
	client redis.UniversalClient
	prefix string
}

// NewLocker returns a Locker storing leases under prefix+"lock:"+key.
func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	if client == nil {
		panic("redis: client is required")
	}
	return &Locker{client: client, prefix: prefix + "lock:"}
}

// TryAcquire attempts to take key for ttl without waiting. When acquired it
// returns a release function; release is idempotent.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	full := l.prefix + key

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, errors.Join(ErrLockFailed, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{full}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return errors.Join(ErrLockFailed, err)
		}
		return nil
	}
	return release, true, nil
}
