package lock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotConfigured = errors.New("lock_not_configured")
	ErrEmptyKey      = errors.New("lock_key_empty")
	ErrInvalidTTL    = errors.New("lock_ttl_invalid")
)

// Locker grants short-lived exclusive leases identified by key.
type Locker interface {
	// TryLock returns a release token and true when the lease was acquired.
	// A lease held by someone else yields ok=false and a nil error.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees the lease only if token still owns it.
	Release(ctx context.Context, key, token string) error
}

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
