// Package services implements link creation, the redirect pipeline and stats.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-link-redirector/cache"
	"go-link-redirector/metrics"
	"go-link-redirector/storage"
	"go-link-redirector/types"
	"go.uber.org/zap"
)

var (
	ErrInvalidURL             = errors.New("invalid or missing url")
	ErrMissingShortCode       = errors.New("missing short code")
	ErrLinkNotFound           = errors.New("link not found")
	ErrShortCodeExists        = errors.New("short code already exists")
	ErrStorageCapacityReached = errors.New("storage capacity reached")
	ErrStoreUnavailable       = errors.New("link store unavailable")
)

func handleStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrLinkNotFound):
		return ErrLinkNotFound
	case errors.Is(err, storage.ErrShortCodeExists):
		return ErrShortCodeExists
	case errors.Is(err, storage.ErrStorageCapacityReached):
		return ErrStorageCapacityReached
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

// CodeGenerator mints short codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// LinkService is the core of the redirector.
type LinkService interface {
	// Shorten validates rawURL, mints a code, persists the link and warms the cache.
	Shorten(ctx context.Context, requester types.Requester, rawURL string) (types.Link, error)
	// Follow resolves a code through the cache, falling back to the store, and
	// records a click for address.
	Follow(ctx context.Context, shortCode, address string) (string, error)
	Stats(ctx context.Context, shortCode string) (types.Stats, error)
}

type linkService struct {
	store    storage.Storage
	cache    cache.Cache
	codes    CodeGenerator
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewLinkService wires the pipeline. m may be nil.
func NewLinkService(store storage.Storage, c cache.Cache, codes CodeGenerator, cacheTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) LinkService {
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		store:    store,
		cache:    c,
		codes:    codes,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *linkService) Shorten(ctx context.Context, requester types.Requester, rawURL string) (types.Link, error) {
	if !IsWebURL(rawURL) {
		return types.Link{}, ErrInvalidURL
	}

	code, err := s.codes.Generate()
	if err != nil {
		return types.Link{}, fmt.Errorf("generate short code: %w", err)
	}

	link := types.Link{
		ShortCode:   code,
		OriginalURL: rawURL,
		Owner:       requester.IdentityOverride,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.InsertLink(ctx, link); err != nil {
		return types.Link{}, handleStorageError(err)
	}

	s.populateCache(ctx, code, rawURL)
	if s.metrics != nil {
		s.metrics.LinksCreated.Inc()
	}
	s.logger.Info("Short link created",
		zap.String("short_code", code),
		zap.String("original_url", rawURL),
		zap.String("owner", link.Owner))
	return link, nil
}

func (s *linkService) Follow(ctx context.Context, shortCode, address string) (string, error) {
	if shortCode == "" {
		return "", ErrMissingShortCode
	}

	originalURL, hit := s.lookupCache(ctx, shortCode)
	if !hit {
		var err error
		originalURL, err = s.store.GetURL(ctx, shortCode)
		if err != nil {
			return "", handleStorageError(err)
		}
		s.populateCache(ctx, shortCode, originalURL)
	}

	s.recordClick(ctx, shortCode, address)
	if s.metrics != nil {
		s.metrics.Redirects.Inc()
	}
	return originalURL, nil
}

func (s *linkService) Stats(ctx context.Context, shortCode string) (types.Stats, error) {
	if shortCode == "" {
		return types.Stats{}, ErrMissingShortCode
	}
	stats, err := s.store.GetStats(ctx, shortCode)
	if err != nil {
		return types.Stats{}, handleStorageError(err)
	}
	if stats.UniqueIPs == nil {
		stats.UniqueIPs = []string{}
	}
	return stats, nil
}

// lookupCache treats cache errors as misses.
func (s *linkService) lookupCache(ctx context.Context, shortCode string) (string, bool) {
	value, ok, err := s.cache.Get(ctx, cache.RedirectKey(shortCode))
	switch {
	case err != nil:
		s.logger.Warn("Redirect cache lookup failed", zap.String("short_code", shortCode), zap.Error(err))
		s.countLookup(metrics.CacheError)
		return "", false
	case !ok:
		s.countLookup(metrics.CacheMiss)
		return "", false
	default:
		s.countLookup(metrics.CacheHit)
		return value, true
	}
}

func (s *linkService) populateCache(ctx context.Context, shortCode, originalURL string) {
	if err := s.cache.Set(ctx, cache.RedirectKey(shortCode), originalURL, s.cacheTTL); err != nil {
		s.logger.Warn("Redirect cache update failed", zap.String("short_code", shortCode), zap.Error(err))
	}
}

// recordClick is best-effort: failures are reported but never fail the redirect.
func (s *linkService) recordClick(ctx context.Context, shortCode, address string) {
	event := types.ClickEvent{ShortCode: shortCode, Address: address, Timestamp: s.now().UTC()}
	if err := s.store.RecordClick(ctx, event); err != nil {
		s.logger.Warn("Failed to record click",
			zap.String("short_code", shortCode),
			zap.String("address", address),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.ClickRecordFailures.Inc()
		}
	}
}

func (s *linkService) countLookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
