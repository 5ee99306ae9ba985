// Package store persists the historical tables. A Blob is one storage tier
// addressed by key; Tiered combines an optional cloud tier with the local
// filesystem, reading cloud-first and writing through to both.
package store

import (
	"context"
)

// Blob is a key/value storage tier.
type Blob interface {
	// Name identifies the tier in logs and reports.
	Name() string
	// Get returns the stored bytes, or nil with no error when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the bytes stored under key.
	Put(ctx context.Context, key string, data []byte) error
}

// Closer is implemented by tiers holding connections.
type Closer interface {
	Close() error
}
