package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDocumentCache(t *testing.T) {
	c := NewInMemoryDocumentCache(time.Hour)
	defer c.Close()

	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("miss on unknown key", func(t *testing.T) {
		data, ok, err := c.Get(ctx, "invoice:unknown")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, data)
	})

	t.Run("hit returns a private copy", func(t *testing.T) {
		src := []byte("%PDF-1.3")
		require.NoError(t, c.Set(ctx, "invoice:a", src, time.Minute))
		src[0] = 'X'

		data, ok, err := c.Get(ctx, "invoice:a")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "%PDF-1.3", string(data))

		data[1] = 'Y'
		again, _, _ := c.Get(ctx, "invoice:a")
		assert.Equal(t, "%PDF-1.3", string(again))
	})

	t.Run("expires after ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "invoice:b", []byte("doc"), time.Minute))
		now = now.Add(time.Minute)

		_, ok, err := c.Get(ctx, "invoice:b")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-positive ttl is not stored", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "invoice:c", []byte("doc"), 0))
		_, ok, _ := c.Get(ctx, "invoice:c")
		assert.False(t, ok)
	})
}

func TestInMemoryDocumentCache_Cleanup(t *testing.T) {
	c := NewInMemoryDocumentCache(time.Hour)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	assert.Equal(t, 2, c.Size())

	now = now.Add(2 * time.Second)
	c.cleanup()

	assert.Equal(t, 1, c.Size())
	_, ok, _ := c.Get(ctx, "long")
	assert.True(t, ok)
}

func TestInMemoryDocumentCache_CloseIsIdempotent(t *testing.T) {
	c := NewInMemoryDocumentCache(0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestInMemoryDocumentCache_Ping(t *testing.T) {
	c := NewInMemoryDocumentCache(0)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))
}
