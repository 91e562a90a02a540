package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheAlwaysLoads(t *testing.T) {
	ctx := context.Background()
	c := New(nil, 0, nil)
	assert.False(t, c.Enabled())

	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"salt", "sugar"}, nil
	}

	for i := 0; i < 2; i++ {
		got, err := GetOrLoad(ctx, c, "ingredients", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"salt", "sugar"}, got)
	}
	assert.Equal(t, 2, calls)

	assert.NoError(t, c.Set(ctx, "k", 1))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.Equal(t, "redis not configured", c.Stats(ctx))
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	var dest int
	assert.False(t, c.Get(context.Background(), "k", &dest))
	assert.NoError(t, c.Delete(context.Background(), "k"))
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := GetOrLoad(context.Background(), New(nil, 0, nil), "k", func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}
