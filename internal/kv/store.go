// Package kv is the key-value persistence used for per-user blobs such as
// wishlists and revoked tokens.
package kv

import (
	"context"
	"time"
)

// Store is a byte-oriented key-value store.
//
// Get reports found=false for a missing key rather than an error. A zero ttl
// passed to Set means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
