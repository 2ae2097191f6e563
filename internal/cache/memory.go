package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultSize = 1000

// MemoryCache is an in-process LRU whose entries also expire after ttl.
// A non-positive ttl disables it.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		return &MemoryCache{}
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, code string) ([]byte, bool, error) {
	if c.lru == nil {
		return nil, false, nil
	}
	png, ok := c.lru.Get(code)
	return png, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, code string, png []byte) error {
	if c.lru != nil {
		c.lru.Add(code, png)
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, code string) error {
	if c.lru != nil {
		c.lru.Remove(code)
	}
	return nil
}

// Len reports the entries currently held, expired ones not yet swept
// included.
func (c *MemoryCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *MemoryCache) Close() error {
	if c.lru != nil {
		c.lru.Purge()
	}
	return nil
}
