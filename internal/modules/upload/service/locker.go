package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker keeps one in-flight upload per uploader.
type Locker interface {
	Acquire(ctx context.Context, owner uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, owner uuid.UUID) error
}

func NewLocker(rdb *redis.Client) Locker {
	if rdb == nil {
		return NewMemoryLocker()
	}
	return &redisLocker{rdb: rdb}
}

type redisLocker struct {
	rdb *redis.Client
}

func lockKey(owner uuid.UUID) string {
	return fmt.Sprintf("upload_lock:user:%s", owner.String())
}

func (l *redisLocker) Acquire(ctx context.Context, owner uuid.UUID, ttl time.Duration) (bool, error) {
	wasSet, err := l.rdb.SetNX(ctx, lockKey(owner), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire upload lock in redis: %w", err)
	}
	return wasSet, nil
}

func (l *redisLocker) Release(ctx context.Context, owner uuid.UUID) error {
	return l.rdb.Del(ctx, lockKey(owner)).Err()
}

type memoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]time.Time
	now  func() time.Time
}

func NewMemoryLocker() Locker {
	return &memoryLocker{held: make(map[uuid.UUID]time.Time), now: time.Now}
}

func (l *memoryLocker) Acquire(_ context.Context, owner uuid.UUID, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[owner]; ok && now.Before(until) {
		return false, nil
	}
	l.held[owner] = now.Add(ttl)
	return true, nil
}

func (l *memoryLocker) Release(_ context.Context, owner uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, owner)
	return nil
}
