package citycontrol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DispatchLocker serializes dispatch attempts per signal so that
// concurrent pushes cannot consume two case sequence numbers at once.
type DispatchLocker interface {
	// Acquire takes the lock for a signal. It returns a release
	// function on success and ErrDispatchInFlight when another
	// dispatch already holds the lock.
	Acquire(ctx context.Context, signalID int64) (func(), error)
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker returns a DispatchLocker backed by Redis SET NX with a
// TTL so a crashed worker cannot hold a signal hostage forever.
func NewRedisLocker(client *redis.Client, ttl time.Duration) DispatchLocker {
	return &redisLocker{client: client, ttl: ttl}
}

// releaseScript deletes the lock only when it is still owned by the
// token that acquired it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, signalID int64) (func(), error) {
	key := fmt.Sprintf("citycontrol:dispatch:%d", signalID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring dispatch lock: %w", err)
	}
	if !ok {
		return nil, ErrDispatchInFlight
	}

	release := func() {
		releaseScript.Run(context.Background(), l.client, []string{key}, token)
	}
	return release, nil
}

type memoryLocker struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

// NewMemoryLocker returns an in-process DispatchLocker for tests and
// single-instance deployments without Redis.
func NewMemoryLocker() DispatchLocker {
	return &memoryLocker{held: make(map[int64]struct{})}
}

func (l *memoryLocker) Acquire(_ context.Context, signalID int64) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[signalID]; taken {
		return nil, ErrDispatchInFlight
	}
	l.held[signalID] = struct{}{}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, signalID)
	}
	return release, nil
}
