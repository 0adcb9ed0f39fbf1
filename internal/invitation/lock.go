package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker gives per-key mutual exclusion for issuance. Lock never waits: a key that
// is already held fails with ErrConcurrentIssue.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func lockKey(email string) string {
	return "invitation:" + email
}

// LocalLocker serialises issuance inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, internal.ErrConcurrentIssue
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares the issuance lock between replicas. The TTL bounds how long a
// crashed holder can block an email.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, internal.ErrConcurrentIssue
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Warn("failed to release issuance lock", "key", fullKey, "error", err)
			}
		})
	}, nil
}
