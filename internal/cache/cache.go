// Package cache stores serialized metadata documents in memory or in Redis.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is implemented by every document cache backend
type Cache interface {
	// Get returns the cached bytes or an error matching ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value; a zero ttl uses the backend default, a negative ttl never expires
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// Clear removes every value under the backend's prefix
	Clear(ctx context.Context) error

	// Exists reports whether an unexpired value is stored
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend's resources
	Close() error
}

// Config holds settings shared by the backends
type Config struct {
	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL time.Duration
	// Prefix namespaces every key
	Prefix string
}

// DefaultConfig returns a five minute TTL under the entitymeta: prefix
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "entitymeta:",
	}
}

// ErrMiss is matched by every cache miss
var ErrMiss = errors.New("cache miss")

// MissError reports the key that was not found
type MissError struct {
	Key string
}

func (e *MissError) Error() string {
	return "cache miss: " + e.Key
}

// Is reports whether target is ErrMiss
func (e *MissError) Is(target error) bool {
	return target == ErrMiss
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
