package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-link-redirector/types"
)

// runStorageContract exercises behaviour every backend must share.
func runStorageContract(t *testing.T, store Storage) {
	ctx := context.Background()

	t.Run("InsertAndGetURL", func(t *testing.T) {
		err := store.InsertLink(ctx, types.Link{ShortCode: "abc123", OriginalURL: "https://example.com", Owner: "u1"})
		require.NoError(t, err)

		originalURL, err := store.GetURL(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", originalURL)
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		err := store.InsertLink(ctx, types.Link{ShortCode: "abc123", OriginalURL: "https://other.example"})
		assert.ErrorIs(t, err, ErrShortCodeExists)

		originalURL, err := store.GetURL(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", originalURL, "duplicate insert must not overwrite")
	})

	t.Run("UnknownCode", func(t *testing.T) {
		_, err := store.GetURL(ctx, "doesnotexist")
		assert.ErrorIs(t, err, ErrLinkNotFound)

		_, err = store.GetStats(ctx, "doesnotexist")
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("StatsWithoutClicks", func(t *testing.T) {
		require.NoError(t, store.InsertLink(ctx, types.Link{ShortCode: "quiet", OriginalURL: "https://quiet.example"}))

		stats, err := store.GetStats(ctx, "quiet")
		require.NoError(t, err)
		assert.Equal(t, "quiet", stats.ShortCode)
		assert.Equal(t, 0, stats.Clicks)
		assert.Empty(t, stats.UniqueIPs)
	})

	t.Run("StatsAggregateClicks", func(t *testing.T) {
		for _, ip := range []string{"10.0.0.2", "10.0.0.1", "10.0.0.2", "192.0.2.9"} {
			require.NoError(t, store.RecordClick(ctx, types.ClickEvent{ShortCode: "abc123", Address: ip}))
		}

		stats, err := store.GetStats(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Clicks)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "192.0.2.9"}, stats.UniqueIPs)
	})

	t.Run("ConcurrentClicks", func(t *testing.T) {
		require.NoError(t, store.InsertLink(ctx, types.Link{ShortCode: "busy", OriginalURL: "https://busy.example"}))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := store.RecordClick(ctx, types.ClickEvent{ShortCode: "busy", Address: fmt.Sprintf("10.1.0.%d", i%5)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		stats, err := store.GetStats(ctx, "busy")
		require.NoError(t, err)
		assert.Equal(t, 50, stats.Clicks)
		assert.Len(t, stats.UniqueIPs, 5)
	})
}
