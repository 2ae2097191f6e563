// Package cache keeps rendered QR code images of short codes for a bounded
// time.
package cache

import "context"

// Cache maps short codes to PNG bytes. A miss is not an error.
type Cache interface {
	Get(ctx context.Context, code string) ([]byte, bool, error)
	Set(ctx context.Context, code string, png []byte) error
	Delete(ctx context.Context, code string) error
	Close() error
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
