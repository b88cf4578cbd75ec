package storage

import (
	"context"
	"fmt"
)

// Backend is the abstract key/value contract every storage implementation
// satisfies. Keys are opaque strings; values are opaque bytes. The vault
// core treats all implementations identically and never relies on
// transactions or compare-and-set.
type Backend interface {
	// Get returns the value for key. A missing key is (nil, false, nil),
	// never an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns all keys with the given prefix. No ordering or
	// consistency with concurrent writers is guaranteed.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// Ping probes backend reachability for health reporting.
	Ping(ctx context.Context) error

	// Name identifies the implementation ("memory", "bolt", "redis").
	Name() string

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // "memory", "bolt", or "redis"
	DataDir       string // bolt only
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open constructs the backend named in opts.
func Open(opts Options) (Backend, error) {
	switch opts.Backend {
	case "memory":
		return NewMemoryBackend(), nil
	case "bolt", "":
		return NewBoltBackend(opts.DataDir)
	case "redis":
		return NewRedisBackend(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", opts.Backend)
	}
}
