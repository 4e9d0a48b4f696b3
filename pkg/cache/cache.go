package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is the read/write surface used for the regime mirror and rendered
// charts.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// Service is a Store with a shutdown hook.
type Service interface {
	Store
	Close() error
}

// IsMiss reports whether err only means the key was not there.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// GenerateKey joins key segments with ':'.
func GenerateKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// Remember returns the value stored under key, or builds it and stores it for
// ttl. Build errors are returned and nothing is stored. A failed write is
// passed to onWriteErr (if set) and the built value is still returned. A nil
// store always builds.
func Remember[T any](
	ctx context.Context,
	s Store,
	key string,
	ttl time.Duration,
	build func() (T, error),
	onWriteErr func(error),
) (T, error) {
	var v T
	if s != nil && s.Get(ctx, key, &v) == nil {
		return v, nil
	}

	v, err := build()
	if err != nil {
		return v, err
	}
	if s != nil {
		if err := s.Set(ctx, key, v, ttl); err != nil && onWriteErr != nil {
			onWriteErr(err)
		}
	}
	return v, nil
}
