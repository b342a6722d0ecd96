// ABOUTME: Key/value Store interface shared by memory, SQL and Redis backends
// ABOUTME: Get and Take report a missing key with ErrNotFound

package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Take when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is ephemeral key to string storage.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	// Take returns the value of key and removes it in one step. Of several
	// concurrent Takes of one key, exactly one sees the value.
	Take(ctx context.Context, key string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
