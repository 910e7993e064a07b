package ghe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

var errBrokenCache = errors.New("broken cache")

// brokenCache fails every write.
type brokenCache struct {
	*ghe.NoOpCache
}

func (brokenCache) Set(ctx context.Context, key string, entry *ghe.CacheEntry) error {
	return errBrokenCache
}

func TestCacheFactory_MemoryCache(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := ghe.NewCacheFromConfig(ctx, &ghe.CacheConfig{
		Type: ghe.CacheTypeMemory,
		Memory: &ghe.MemoryCacheConfig{
			MaxSize:         100,
			CleanupInterval: "1m",
		},
	})
	require.NoError(t, err)
	assert.IsType(t, &ghe.MemoryCache{}, cache)

	entry := &ghe.CacheEntry{Data: []byte("test"), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, cache.Set(ctx, "key", entry))
	assert.True(t, cache.Has(ctx, "key"))
}

func TestCacheFactory_InvalidCleanupInterval(t *testing.T) {
	t.Parallel()

	_, err := ghe.NewCacheFromConfig(context.Background(), &ghe.CacheConfig{
		Type:   ghe.CacheTypeMemory,
		Memory: &ghe.MemoryCacheConfig{CleanupInterval: "often"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cleanup interval")
}

func TestCacheFactory_NoOpCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cache, err := ghe.NewCacheFromConfig(ctx, &ghe.CacheConfig{Type: ghe.CacheTypeNone})
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "key", &ghe.CacheEntry{Data: []byte("test")}))
	assert.False(t, cache.Has(ctx, "key"))

	_, err = cache.Get(ctx, "key")
	require.ErrorIs(t, err, ghe.ErrCacheDisabled)
	require.NoError(t, cache.Delete(ctx, "key"))
	require.NoError(t, cache.Clear(ctx))
}

func TestCacheFactory_NATSRequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := ghe.NewCacheFromConfig(context.Background(), &ghe.CacheConfig{Type: ghe.CacheTypeNATS})
	require.ErrorIs(t, err, ghe.ErrNATSConfigRequired)
}

func TestCacheFactory_InvalidType(t *testing.T) {
	t.Parallel()

	_, err := ghe.NewCacheFromConfig(context.Background(), &ghe.CacheConfig{Type: "redis"})
	require.ErrorIs(t, err, ghe.ErrUnsupportedCacheType)
	assert.Contains(t, err.Error(), "redis")
}

func TestCacheFactory_NilConfig(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := ghe.NewCacheFromConfig(ctx, nil)
	require.NoError(t, err)
	assert.IsType(t, &ghe.MemoryCache{}, cache)
}

func TestDefaultCacheConfig(t *testing.T) {
	t.Parallel()

	config := ghe.DefaultCacheConfig()
	assert.Equal(t, ghe.CacheTypeMemory, config.Type)
	require.NotNil(t, config.Memory)
	assert.Equal(t, 1000, config.Memory.MaxSize)
	assert.Equal(t, "1m", config.Memory.CleanupInterval)
	require.NotNil(t, config.Options)
	assert.Equal(t, 5*time.Minute, config.Options.TTL)
}

func TestCacheChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	front := ghe.NewMemoryCache(10)
	back := ghe.NewMemoryCache(10)
	chain := ghe.NewCacheChain(front, back)

	require.NoError(t, back.Set(ctx, "shared", &ghe.CacheEntry{Data: []byte("from back")}))
	assert.True(t, chain.Has(ctx, "shared"))
	assert.False(t, front.Has(ctx, "shared"))

	entry, err := chain.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("from back"), entry.Data)
	assert.True(t, front.Has(ctx, "shared"))

	require.NoError(t, chain.Set(ctx, "both", &ghe.CacheEntry{Data: []byte("x")}))
	assert.True(t, front.Has(ctx, "both"))
	assert.True(t, back.Has(ctx, "both"))

	require.NoError(t, chain.Delete(ctx, "both"))
	assert.False(t, chain.Has(ctx, "both"))

	require.NoError(t, chain.Clear(ctx))
	assert.Zero(t, front.Len())
	assert.Zero(t, back.Len())

	_, err = chain.Get(ctx, "shared")
	require.ErrorIs(t, err, ghe.ErrKeyNotFoundInAnyCache)
}

func TestCacheChain_JoinsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	healthy := ghe.NewMemoryCache(10)
	chain := ghe.NewCacheChain(healthy, brokenCache{ghe.NewNoOpCache()})

	err := chain.Set(ctx, "key", &ghe.CacheEntry{Data: []byte("x")})
	require.ErrorIs(t, err, errBrokenCache)
	assert.True(t, healthy.Has(ctx, "key"))
}

// closingCache counts Close calls and returns err from each.
type closingCache struct {
	*ghe.NoOpCache
	closed int
	err    error
}

func (c *closingCache) Close() error {
	c.closed++

	return c.err
}

func TestCacheChain_Close(t *testing.T) {
	t.Parallel()

	local := ghe.NewMemoryCache(10)
	shared := &closingCache{NoOpCache: ghe.NewNoOpCache()}
	failing := &closingCache{NoOpCache: ghe.NewNoOpCache(), err: errBrokenCache}

	chain := ghe.NewCacheChain(local, shared, failing)

	err := chain.Close()
	require.ErrorIs(t, err, errBrokenCache)
	assert.Equal(t, 1, shared.closed)
	assert.Equal(t, 1, failing.closed)
}

func TestCacheManager_Close(t *testing.T) {
	t.Parallel()

	shared := &closingCache{NoOpCache: ghe.NewNoOpCache()}
	chain := ghe.NewCacheChain(ghe.NewMemoryCache(10), shared)

	require.NoError(t, ghe.NewCacheManager(chain, nil).Close())
	assert.Equal(t, 1, shared.closed)

	require.NoError(t, ghe.NewCacheManager(ghe.NewMemoryCache(10), nil).Close())
	require.NoError(t, ghe.NewCacheManager(nil, nil).Close())
}
