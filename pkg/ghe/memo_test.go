package ghe_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

func TestMemo_GetOrCompute(t *testing.T) {
	t.Parallel()

	memo := ghe.NewMemo[string, int]()

	var calls int

	compute := func(key string) int {
		calls++

		return len(key)
	}

	assert.Equal(t, 5, memo.GetOrCompute("hooks", compute))
	assert.Equal(t, 5, memo.GetOrCompute("hooks", compute))
	assert.Equal(t, 1, calls)

	value, ok := memo.Get("hooks")
	assert.True(t, ok)
	assert.Equal(t, 5, value)

	_, ok = memo.Get("releases")
	assert.False(t, ok)
}

func TestMemo_FirstStoredValueWins(t *testing.T) {
	t.Parallel()

	memo := ghe.NewMemo[string, string]()

	memo.GetOrCompute("key", func(string) string { return "original" })

	got := memo.GetOrCompute("key", func(string) string { return "replacement" })
	assert.Equal(t, "original", got)
}

func TestMemo_Concurrent(t *testing.T) {
	t.Parallel()

	memo := ghe.NewMemo[int, int64]()

	var (
		counter atomic.Int64
		wg      sync.WaitGroup
	)

	results := make([]int64, 64)

	for i := range results {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = memo.GetOrCompute(7, func(int) int64 {
				return counter.Add(1)
			})
		}()
	}

	wg.Wait()

	for _, result := range results {
		assert.Equal(t, results[0], result)
	}

	stored, ok := memo.Get(7)
	assert.True(t, ok)
	assert.Equal(t, results[0], stored)
	assert.Equal(t, 1, memo.Len())
}

func TestMemo_ConcurrentDistinctKeys(t *testing.T) {
	t.Parallel()

	memo := ghe.NewMemo[int, int]()

	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			memo.GetOrCompute(i, func(k int) int { return k * k })
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, memo.Len())

	value, ok := memo.Get(9)
	assert.True(t, ok)
	assert.Equal(t, 81, value)
}

func TestMemo_InvalidateAndClear(t *testing.T) {
	t.Parallel()

	memo := ghe.NewMemo[string, int]()
	memo.GetOrCompute("a", func(string) int { return 1 })
	memo.GetOrCompute("b", func(string) int { return 2 })

	memo.Invalidate("a")
	memo.Invalidate("missing")

	_, ok := memo.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, memo.Len())

	assert.Equal(t, 10, memo.GetOrCompute("a", func(string) int { return 10 }))

	memo.Clear()
	assert.Zero(t, memo.Len())
}

func TestMemo_ZeroValue(t *testing.T) {
	t.Parallel()

	var memo ghe.Memo[string, bool]

	assert.True(t, memo.GetOrCompute("ready", func(string) bool { return true }))
	assert.Equal(t, 1, memo.Len())
}
