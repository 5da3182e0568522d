package connector

import (
	"context"
	"testing"
	"time"

	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionCache(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*ConnectionCache, *fakeConnectionRepo, *connector.Connection) {
		t.Helper()
		repo := newFakeConnectionRepo()
		conn, err := connector.NewConnection(connector.DirectionExport, "https://peer.example.com", "pk-1", "sk-1")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, conn))

		cache := NewConnectionCache(repo)
		t.Cleanup(func() { _ = cache.Close() })
		return cache, repo, conn
	}

	t.Run("lookup returns a snapshot", func(t *testing.T) {
		cache, _, _ := seed(t)

		found, err := cache.Lookup(ctx, connector.DirectionExport, "pk-1")
		require.NoError(t, err)
		require.NotNil(t, found)

		// Mutating the snapshot must not leak into the cache.
		found.RequestCount = 99
		again, err := cache.Lookup(ctx, connector.DirectionExport, "pk-1")
		require.NoError(t, err)
		assert.Zero(t, again.RequestCount)
	})

	t.Run("unknown key yields nil without error", func(t *testing.T) {
		cache, _, _ := seed(t)
		found, err := cache.Lookup(ctx, connector.DirectionExport, "pk-missing")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("mutations stay in memory until flush", func(t *testing.T) {
		cache, repo, conn := seed(t)
		savesBefore := repo.saveCount()

		require.NoError(t, cache.Mutate(ctx, conn.ID, func(c *connector.Connection) {
			c.RecordRequest(time.Now())
		}))
		assert.Equal(t, savesBefore, repo.saveCount())

		require.NoError(t, cache.Flush(ctx))
		assert.Equal(t, savesBefore+1, repo.saveCount())

		persisted, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), persisted.RequestCount)
	})

	t.Run("flush skips clean entries", func(t *testing.T) {
		cache, repo, _ := seed(t)
		_, err := cache.Lookup(ctx, connector.DirectionExport, "pk-1")
		require.NoError(t, err)

		savesBefore := repo.saveCount()
		require.NoError(t, cache.Flush(ctx))
		assert.Equal(t, savesBefore, repo.saveCount())
	})

	t.Run("invalidate reloads repository state", func(t *testing.T) {
		cache, repo, conn := seed(t)

		// Warm the cache, then change the record behind its back.
		_, err := cache.Lookup(ctx, connector.DirectionExport, "pk-1")
		require.NoError(t, err)
		conn.IsActive = false
		require.NoError(t, repo.Save(ctx, conn))

		stale, err := cache.Lookup(ctx, connector.DirectionExport, "pk-1")
		require.NoError(t, err)
		assert.True(t, stale.IsActive)

		cache.Invalidate(ctx)
		fresh, err := cache.Lookup(ctx, connector.DirectionExport, "pk-1")
		require.NoError(t, err)
		assert.False(t, fresh.IsActive)
	})

	t.Run("invalidate flushes dirty counters first", func(t *testing.T) {
		cache, repo, conn := seed(t)
		require.NoError(t, cache.Mutate(ctx, conn.ID, func(c *connector.Connection) {
			c.RecordRequest(time.Now())
		}))

		cache.Invalidate(ctx)
		persisted, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), persisted.RequestCount)
	})

	t.Run("close flushes", func(t *testing.T) {
		repo := newFakeConnectionRepo()
		conn, err := connector.NewConnection(connector.DirectionExport, "https://peer.example.com", "pk-1", "sk-1")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, conn))

		cache := NewConnectionCache(repo)
		require.NoError(t, cache.Mutate(ctx, conn.ID, func(c *connector.Connection) {
			c.RecordProductCall(time.Now())
		}))
		require.NoError(t, cache.Close())

		persisted, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.NotNil(t, persisted.LastProductCallUtc)
	})
}
