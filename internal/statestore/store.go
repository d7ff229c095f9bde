// Package statestore persists sync state as named options (durable) and
// transients (values that expire after a TTL).
package statestore

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Store is a durable key/value store with two namespaces.
// Options never expire. Transients read as absent once their TTL has passed.
type Store interface {
	GetOption(ctx context.Context, key string) ([]byte, bool, error)
	SetOption(ctx context.Context, key string, value []byte) error
	DeleteOption(ctx context.Context, key string) error

	GetTransient(ctx context.Context, key string) ([]byte, bool, error)
	SetTransient(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteTransient(ctx context.Context, key string) error

	Close() error
}

// GetOption decodes the option stored at key, returning def when it is absent.
func GetOption[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, ok, err := s.GetOption(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return decode(key, raw, def)
}

func SetOption[T any](ctx context.Context, s Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode option %s: %w", key, err)
	}
	return s.SetOption(ctx, key, raw)
}

// GetTransient decodes the transient stored at key. The bool is false when it is absent or expired.
func GetTransient[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var zero T
	raw, ok, err := s.GetTransient(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := decode(key, raw, zero)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func SetTransient[T any](ctx context.Context, s Store, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode transient %s: %w", key, err)
	}
	return s.SetTransient(ctx, key, raw, ttl)
}

func decode[T any](key string, raw []byte, def T) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
