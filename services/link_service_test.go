package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-link-redirector/cache"
	"go-link-redirector/metrics"
	"go-link-redirector/storage"
	"go-link-redirector/storage/mocks"
	"go-link-redirector/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedCodes struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (f *fixedCodes) Generate() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	code := f.codes[0]
	f.codes = f.codes[1:]
	return code, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache down")
}

func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("cache down")
}

func (failingCache) Close() error { return nil }

func newMemoryCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	c := cache.NewMemoryCache(4, 0)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestShorten(t *testing.T) {
	ctx := context.Background()

	t.Run("persists link and warms cache", func(t *testing.T) {
		store := storage.NewInMemoryStorage(0, zap.NewNop())
		c := newMemoryCache(t)
		m := metrics.New()
		svc := NewLinkService(store, c, &fixedCodes{codes: []string{"abc12345"}}, time.Hour, zap.NewNop(), m)

		link, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1", IdentityOverride: "alice"}, "https://example.com")
		require.NoError(t, err)
		assert.Equal(t, "abc12345", link.ShortCode)
		assert.Equal(t, "https://example.com", link.OriginalURL)
		assert.Equal(t, "alice", link.Owner)
		assert.False(t, link.CreatedAt.IsZero())

		stored, err := store.GetLink(ctx, "abc12345")
		require.NoError(t, err)
		assert.Equal(t, link, stored)

		cached, ok, err := c.Get(ctx, cache.RedirectKey("abc12345"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://example.com", cached)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.LinksCreated))
	})

	t.Run("rejects invalid url without touching the store", func(t *testing.T) {
		store := new(mocks.MockStorage)
		svc := NewLinkService(store, newMemoryCache(t), &fixedCodes{codes: []string{"abc12345"}}, time.Hour, nil, nil)

		for _, raw := range []string{"", "not a url", "ftp://example.com"} {
			_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, raw)
			assert.ErrorIs(t, err, ErrInvalidURL, raw)
		}
		store.AssertNotCalled(t, "InsertLink", mock.Anything, mock.Anything)
	})

	t.Run("collision is reported and cache stays cold", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("InsertLink", mock.Anything, mock.Anything).Return(storage.ErrShortCodeExists)
		c := newMemoryCache(t)
		svc := NewLinkService(store, c, &fixedCodes{codes: []string{"abc12345"}}, time.Hour, nil, nil)

		_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com")
		assert.ErrorIs(t, err, ErrShortCodeExists)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("capacity reached", func(t *testing.T) {
		store := storage.NewInMemoryStorage(1, nil)
		svc := NewLinkService(store, newMemoryCache(t), &fixedCodes{codes: []string{"aaaaaaaa", "bbbbbbbb"}}, time.Hour, nil, nil)

		_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com/1")
		require.NoError(t, err)
		_, err = svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com/2")
		assert.ErrorIs(t, err, ErrStorageCapacityReached)
	})

	t.Run("store failure maps to unavailable", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("InsertLink", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
		svc := NewLinkService(store, newMemoryCache(t), &fixedCodes{codes: []string{"abc12345"}}, time.Hour, nil, nil)

		_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("generator failure", func(t *testing.T) {
		svc := NewLinkService(new(mocks.MockStorage), newMemoryCache(t), &fixedCodes{err: errors.New("entropy")}, time.Hour, nil, nil)

		_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "entropy")
	})
}

func TestFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("warm cache serves without a store lookup", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("InsertLink", mock.Anything, mock.Anything).Return(nil)
		store.On("RecordClick", mock.Anything, mock.MatchedBy(func(e types.ClickEvent) bool {
			return e.ShortCode == "abc12345" && e.Address == "10.0.0.2"
		})).Return(nil).Once()
		m := metrics.New()
		svc := NewLinkService(store, newMemoryCache(t), &fixedCodes{codes: []string{"abc12345"}}, time.Hour, nil, m)

		_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com")
		require.NoError(t, err)

		target, err := svc.Follow(ctx, "abc12345", "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", target)
		store.AssertNotCalled(t, "GetURL", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheHit)))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Redirects))
	})

	t.Run("cold cache falls back and repopulates", func(t *testing.T) {
		store := storage.NewInMemoryStorage(0, nil)
		require.NoError(t, store.InsertLink(ctx, types.Link{ShortCode: "abc12345", OriginalURL: "https://example.com"}))
		c := newMemoryCache(t)
		m := metrics.New()
		svc := NewLinkService(store, c, nil, time.Hour, nil, m)

		target, err := svc.Follow(ctx, "abc12345", "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", target)

		cached, ok, err := c.Get(ctx, cache.RedirectKey("abc12345"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://example.com", cached)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheMiss)))

		// Once cached, a store outage does not break redirects.
		broken := new(mocks.MockStorage)
		broken.On("RecordClick", mock.Anything, mock.Anything).Return(errors.New("store down"))
		svc = NewLinkService(broken, c, nil, time.Hour, nil, m)

		target, err = svc.Follow(ctx, "abc12345", "10.0.0.3")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", target)
		broken.AssertNotCalled(t, "GetURL", mock.Anything, mock.Anything)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.ClickRecordFailures))
	})

	t.Run("unknown code records nothing", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("GetURL", mock.Anything, "missing").Return("", storage.ErrLinkNotFound)
		c := newMemoryCache(t)
		svc := NewLinkService(store, c, nil, time.Hour, nil, nil)

		_, err := svc.Follow(ctx, "missing", "10.0.0.2")
		assert.ErrorIs(t, err, ErrLinkNotFound)
		store.AssertNotCalled(t, "RecordClick", mock.Anything, mock.Anything)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("missing code", func(t *testing.T) {
		svc := NewLinkService(new(mocks.MockStorage), newMemoryCache(t), nil, time.Hour, nil, nil)

		_, err := svc.Follow(ctx, "", "10.0.0.2")
		assert.ErrorIs(t, err, ErrMissingShortCode)
	})

	t.Run("cache failure is treated as a miss", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("GetURL", mock.Anything, "abc12345").Return("https://example.com", nil)
		store.On("RecordClick", mock.Anything, mock.Anything).Return(nil)
		m := metrics.New()
		svc := NewLinkService(store, failingCache{}, nil, time.Hour, nil, m)

		target, err := svc.Follow(ctx, "abc12345", "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", target)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheError)))
	})

	t.Run("store outage on a cold cache", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("GetURL", mock.Anything, "abc12345").Return("", errors.New("connection refused"))
		svc := NewLinkService(store, newMemoryCache(t), nil, time.Hour, nil, nil)

		_, err := svc.Follow(ctx, "abc12345", "10.0.0.2")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("deadline passes through", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("GetURL", mock.Anything, "abc12345").Return("", fmt.Errorf("query: %w", context.DeadlineExceeded))
		svc := NewLinkService(store, newMemoryCache(t), nil, time.Hour, nil, nil)

		_, err := svc.Follow(ctx, "abc12345", "10.0.0.2")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("follow never mutates the link", func(t *testing.T) {
		store := storage.NewInMemoryStorage(0, nil)
		svc := NewLinkService(store, newMemoryCache(t), &fixedCodes{codes: []string{"abc12345"}}, time.Hour, nil, nil)

		created, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			_, err := svc.Follow(ctx, "abc12345", fmt.Sprintf("10.0.0.%d", i))
			require.NoError(t, err)
		}

		stored, err := store.GetLink(ctx, "abc12345")
		require.NoError(t, err)
		assert.Equal(t, created, stored)
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()

	t.Run("counts clicks and distinct addresses", func(t *testing.T) {
		store := storage.NewInMemoryStorage(0, nil)
		svc := NewLinkService(store, newMemoryCache(t), &fixedCodes{codes: []string{"abc12345"}}, time.Hour, nil, nil)

		_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com")
		require.NoError(t, err)

		stats, err := svc.Stats(ctx, "abc12345")
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Clicks)
		assert.Equal(t, []string{}, stats.UniqueIPs)

		for _, addr := range []string{"10.0.0.9", "10.0.0.2", "10.0.0.9"} {
			_, err := svc.Follow(ctx, "abc12345", addr)
			require.NoError(t, err)
		}

		stats, err = svc.Stats(ctx, "abc12345")
		require.NoError(t, err)
		assert.Equal(t, "abc12345", stats.ShortCode)
		assert.Equal(t, 3, stats.Clicks)
		assert.Equal(t, []string{"10.0.0.2", "10.0.0.9"}, stats.UniqueIPs)
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := NewLinkService(storage.NewInMemoryStorage(0, nil), newMemoryCache(t), nil, time.Hour, nil, nil)

		_, err := svc.Stats(ctx, "missing")
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("missing code", func(t *testing.T) {
		svc := NewLinkService(new(mocks.MockStorage), newMemoryCache(t), nil, time.Hour, nil, nil)

		_, err := svc.Stats(ctx, "")
		assert.ErrorIs(t, err, ErrMissingShortCode)
	})
}

func TestConcurrentFollowCountsEveryClick(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryStorage(0, nil)
	svc := NewLinkService(store, newMemoryCache(t), &fixedCodes{codes: []string{"abc12345"}}, time.Hour, nil, nil)

	_, err := svc.Shorten(ctx, types.Requester{Address: "10.0.0.1"}, "https://example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Follow(ctx, "abc12345", fmt.Sprintf("10.0.%d.1", i%5))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := svc.Stats(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Clicks)
	assert.Len(t, stats.UniqueIPs, 5)
}
