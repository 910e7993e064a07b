package ghe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
)

// CacheType selects the backend of the conditional-request cache.
type CacheType string

// Cache backends.
const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeNATS   CacheType = "nats"
	CacheTypeNone   CacheType = "none"
)

var (
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// CacheConfig configures the conditional-request cache backend. For
// CacheTypeNATS a non-nil Memory layers a local cache in front of the bucket.
type CacheConfig struct {
	Type    CacheType          `json:"type"             yaml:"type"`
	Memory  *MemoryCacheConfig `json:"memory,omitempty" yaml:"memory,omitempty"`
	NATS    *NATSKVConfig      `json:"-"                yaml:"-"`
	Options *CacheOptions      `json:"-"                yaml:"-"`
}

// MemoryCacheConfig sizes the memory cache. CleanupInterval is a duration
// string such as "1m"; empty disables the background sweep.
type MemoryCacheConfig struct {
	MaxSize         int    `json:"max_size"         yaml:"max_size"`
	CleanupInterval string `json:"cleanup_interval" yaml:"cleanup_interval"`
}

func defaultMemoryCacheConfig() *MemoryCacheConfig {
	return &MemoryCacheConfig{MaxSize: constants.DefaultCacheSize, CleanupInterval: "1m"}
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		Memory:  defaultMemoryCacheConfig(),
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig creates a cache backend from configuration. The context
// bounds the background cleanup of a memory cache.
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		return NewMemoryCacheFromConfig(ctx, config.Memory)

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		shared, err := NewNATSKVCache(config.NATS)
		if err != nil {
			return nil, err
		}

		if config.Memory == nil {
			return shared, nil
		}

		local, err := NewMemoryCacheFromConfig(ctx, config.Memory)
		if err != nil {
			_ = shared.Close()

			return nil, err
		}

		return NewCacheChain(local, shared), nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache from configuration.
func NewMemoryCacheFromConfig(ctx context.Context, config *MemoryCacheConfig) (*MemoryCache, error) {
	if config == nil {
		config = defaultMemoryCacheConfig()
	}

	cache := NewMemoryCache(config.MaxSize)

	if config.CleanupInterval != "" {
		interval, err := time.ParseDuration(config.CleanupInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid cleanup interval %q: %w", config.CleanupInterval, err)
		}

		cache.StartCleanup(ctx, interval)
	}

	return cache, nil
}

// NoOpCache stores nothing. It stands in when caching is turned off.
type NoOpCache struct{}

// NewNoOpCache creates a cache that stores nothing.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses with ErrCacheDisabled.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set discards entry.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error { return nil }

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error { return nil }

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error { return nil }

// Has always reports false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool { return false }

// CacheChain layers caches, fastest first. Writes go to every layer; a read
// hit in a later layer is copied into the layers before it.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain layers caches in the order given.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get returns the first hit.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, front := range c.caches[:i] {
			_ = front.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores entry in every layer.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(cache Cache) error { return cache.Set(ctx, key, entry) })
}

// Delete removes key from every layer.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(cache Cache) error { return cache.Delete(ctx, key) })
}

// Clear empties every layer.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(cache Cache) error { return cache.Clear(ctx) })
}

// Has reports whether any layer holds key.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close closes every layer that implements io.Closer.
func (c *CacheChain) Close() error {
	return c.each(func(cache Cache) error {
		if closer, ok := cache.(io.Closer); ok {
			return closer.Close()
		}

		return nil
	})
}

// each applies fn to every layer and joins the failures.
func (c *CacheChain) each(fn func(Cache) error) error {
	errs := make([]error, 0, len(c.caches))
	for _, cache := range c.caches {
		errs = append(errs, fn(cache))
	}

	return errors.Join(errs...)
}
