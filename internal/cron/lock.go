package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// leaseTTL caps how long a crashed worker can hold a cycle before the key
// expires and another replica takes over. A full reconciliation pass
// finishes well inside a day; the extra hour absorbs clock skew.
const leaseTTL = 25 * time.Hour

// Lock elects a single worker replica per cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// lockStore is the slice of the redis client the lock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RunLock is a redis SETNX lease carrying a per-acquire token. Release
// checks the token first, so a lease that expired and was taken over by
// another replica is never deleted out from under the new holder.
type RunLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

// NewRunLock builds a lease on the given key. A non-positive ttl falls back
// to leaseTTL.
func NewRunLock(store lockStore, key string, ttl time.Duration) (*RunLock, error) {
	if store == nil {
		return nil, errors.New("cron: run lock needs a redis store")
	}
	if key == "" {
		return nil, errors.New("cron: run lock needs a key")
	}
	if ttl <= 0 {
		ttl = leaseTTL
	}
	return &RunLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire attempts to take the lease for this cycle.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release gives the lease back if this instance still holds it. A vanished
// key or a foreign token both mean the lease already moved on; neither is
// an error.
func (l *RunLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	holder, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		l.token = ""
		return nil
	case err != nil:
		return fmt.Errorf("inspect run lock: %w", err)
	case holder != l.token:
		l.token = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	l.token = ""
	return nil
}
