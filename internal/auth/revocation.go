package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records, per subject, the instant before which issued
// tokens are no longer accepted.
type RevocationList interface {
	RevokeSubject(ctx context.Context, uid string, at time.Time) error
	ValidAfter(ctx context.Context, uid string) (time.Time, bool, error)
}

const (
	revokedSubjectKeyPrefix = "revoked:uid:"

	// Firebase ID tokens live for an hour; keep the marker comfortably longer.
	defaultRevocationTTL = 24 * time.Hour
)

type RedisRevocationList struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisRevocationOption func(*RedisRevocationList)

func WithRevocationTTL(ttl time.Duration) RedisRevocationOption {
	return func(r *RedisRevocationList) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func NewRedisRevocationList(client *redis.Client, opts ...RedisRevocationOption) *RedisRevocationList {
	r := &RedisRevocationList{client: client, ttl: defaultRevocationTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *RedisRevocationList) RevokeSubject(ctx context.Context, uid string, at time.Time) error {
	if uid == "" {
		return nil
	}
	return r.client.Set(ctx, revokedSubjectKeyPrefix+uid, strconv.FormatInt(at.Unix(), 10), r.ttl).Err()
}

func (r *RedisRevocationList) ValidAfter(ctx context.Context, uid string) (time.Time, bool, error) {
	if uid == "" {
		return time.Time{}, false, nil
	}
	raw, err := r.client.Get(ctx, revokedSubjectKeyPrefix+uid).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(secs, 0), true, nil
}

// MemoryRevocationList is the single-process variant.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time)}
}

func (m *MemoryRevocationList) RevokeSubject(_ context.Context, uid string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[uid] = at
	return nil
}

func (m *MemoryRevocationList) ValidAfter(_ context.Context, uid string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.entries[uid]
	return at, ok, nil
}
