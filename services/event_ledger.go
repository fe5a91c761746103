package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EventLedger remembers gateway events that were fully processed so replays
// can be acknowledged without touching the database.
type EventLedger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type RedisLedger struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLedger(addr string, ttl time.Duration) (*RedisLedger, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLedger{rdb: rdb, prefix: "feedquire:webhook:", ttl: ttl}, nil
}

func (l *RedisLedger) Seen(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLedger) Mark(ctx context.Context, key string) error {
	return l.rdb.Set(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
}

func (l *RedisLedger) Close() error {
	return l.rdb.Close()
}

// MemoryLedger is the single-process fallback when no Redis is configured.
type MemoryLedger struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{ttl: ttl, seen: map[string]time.Time{}, now: time.Now}
}

func (l *MemoryLedger) Seen(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.seen[key]
	if !ok {
		return false, nil
	}
	if l.now().Sub(at) > l.ttl {
		delete(l.seen, key)
		return false, nil
	}
	return true, nil
}

func (l *MemoryLedger) Mark(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, at := range l.seen {
		if now.Sub(at) > l.ttl {
			delete(l.seen, k)
		}
	}
	l.seen[key] = now
	return nil
}
