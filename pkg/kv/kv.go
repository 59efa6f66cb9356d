// Package kv defines the client-resident key-value storage contract used to
// persist the cart and session between runs.
package kv

import (
	"context"
	"errors"
)

// Store defines behavior for persisting small opaque values under fixed keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ErrNotFound indicates the requested key has no stored value.
var ErrNotFound = errors.New("key not found")
