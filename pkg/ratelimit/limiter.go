package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key is allowed.
// Implementations return allowed=true alongside a non-nil error when the
// backing store fails, so callers fail open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every replica.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: int64(limit), window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}

	// Expire on first increment so abandoned windows do not accumulate.
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, err
		}
	}

	return count <= l.limit, nil
}

// MemoryLimiter keeps one token bucket per key in process memory. Keys idle for a
// full window are evicted, so the map is bounded by the keys active in the last two
// windows.
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows perWindow requests per window with bursts up to perWindow.
func NewMemoryLimiter(perWindow int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		limit:   rate.Every(window / time.Duration(perWindow)),
		burst:   perWindow,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	e, ok := l.entries[key]
	if !ok {
		e = &memoryEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// sweep runs at most once per window. A key idle for a whole window has refilled
// to a full burst, so dropping it is indistinguishable from keeping it. Caller holds mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) >= l.window {
			delete(l.entries, key)
		}
	}
}
