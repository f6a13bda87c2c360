package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPoolEmpty(t *testing.T) {
	assert.Nil(t, NewKeyPool(nil))
}

func TestKeyPoolBalancesUsage(t *testing.T) {
	pool := NewKeyPool([]string{"a", "b", "c"})

	seen := map[string]int{}
	for i := 0; i < 9; i++ {
		key, err := pool.Acquire()
		require.NoError(t, err)
		seen[key]++
	}

	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 3}, seen)
}

func TestKeyPoolBlacklist(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pool := NewKeyPool([]string{"a", "b"})
	pool.now = func() time.Time { return now }

	pool.MarkFailed("a", time.Minute)
	assert.Equal(t, 1, pool.Available())

	for i := 0; i < 3; i++ {
		key, err := pool.Acquire()
		require.NoError(t, err)
		assert.Equal(t, "b", key)
	}

	pool.MarkFailed("b", time.Minute)
	_, err := pool.Acquire()
	assert.ErrorIs(t, err, ErrNoAvailableKeys)

	now = now.Add(2 * time.Minute)
	key, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "a", key, "least used key wins once cooldown expires")
	assert.Equal(t, 2, pool.Available())
}
