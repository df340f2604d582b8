// Package blob provides the key-value byte store that holds the serialized
// database snapshot. Every backend stores exactly one value under one key.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultKey is the fixed key the snapshot lives under.
const DefaultKey = "database"

// ErrNotFound is returned by Load when nothing was ever saved (or the value
// was cleared). It signals absence, not failure.
var ErrNotFound = errors.New("blob not found")

// Error describes a failed blob operation.
type Error struct {
	Op  string // "save", "load", "clear", "open"
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("blob %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store is a persistent byte store bound to a single key.
type Store interface {
	// Save replaces the stored value. A reader never observes a partial write.
	Save(ctx context.Context, data []byte) error

	// Load returns the stored value or ErrNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Clear removes the value. Clearing an absent value succeeds.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Key     string

	// Dir is the directory of the file backend.
	Dir string

	Redis RedisConfig
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		return NewFileStore(cfg.Dir, key)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, key)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, &Error{Op: "open", Key: key, Err: fmt.Errorf("unknown backend %q", cfg.Backend)}
	}
}
