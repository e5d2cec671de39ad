package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-link-redirector/types"
	"go.uber.org/zap"
)

// InMemoryStorage implements the Storage interface using in-memory maps.
type InMemoryStorage struct {
	links    map[string]types.Link         // short code -> link
	clicks   map[string][]types.ClickEvent // short code -> append-only click log
	mu       sync.RWMutex
	capacity int // maximum number of links
	logger   *zap.Logger
}

// NewInMemoryStorage creates and returns a new InMemoryStorage instance
func NewInMemoryStorage(capacity int, logger *zap.Logger) *InMemoryStorage {
	if capacity <= 0 {
		capacity = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryStorage{
		links:    make(map[string]types.Link),
		clicks:   make(map[string][]types.ClickEvent),
		capacity: capacity,
		logger:   logger,
	}
}

// InsertLink adds a new link. Existing codes are never overwritten.
func (s *InMemoryStorage) InsertLink(ctx context.Context, link types.Link) error {
	select {
	case <-ctx.Done():
		s.logger.Warn("InsertLink operation cancelled", zap.String("short_code", link.ShortCode))
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[link.ShortCode]; exists {
		s.logger.Warn("Attempt to insert duplicate short code", zap.String("short_code", link.ShortCode))
		return ErrShortCodeExists
	}
	if len(s.links) >= s.capacity {
		s.logger.Error("Storage capacity reached", zap.String("short_code", link.ShortCode))
		return ErrStorageCapacityReached
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	s.links[link.ShortCode] = link
	s.logger.Debug("Link inserted",
		zap.String("short_code", link.ShortCode),
		zap.String("original_url", link.OriginalURL))
	return nil
}

// GetURL retrieves the original URL for a short code.
func (s *InMemoryStorage) GetURL(ctx context.Context, shortCode string) (string, error) {
	link, err := s.GetLink(ctx, shortCode)
	if err != nil {
		return "", err
	}
	return link.OriginalURL, nil
}

// GetLink returns the stored link.
func (s *InMemoryStorage) GetLink(ctx context.Context, shortCode string) (types.Link, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("GetLink operation cancelled", zap.String("short_code", shortCode))
		return types.Link{}, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	link, exists := s.links[shortCode]
	if !exists {
		return types.Link{}, ErrLinkNotFound
	}
	return link, nil
}

// RecordClick appends a click event. Like the SQL backends, it does not check
// that the link exists.
func (s *InMemoryStorage) RecordClick(ctx context.Context, event types.ClickEvent) error {
	select {
	case <-ctx.Done():
		s.logger.Warn("RecordClick operation cancelled", zap.String("short_code", event.ShortCode))
		return ctx.Err()
	default:
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clicks[event.ShortCode] = append(s.clicks[event.ShortCode], event)
	return nil
}

// GetStats aggregates the click log for a short code.
func (s *InMemoryStorage) GetStats(ctx context.Context, shortCode string) (types.Stats, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("GetStats operation cancelled", zap.String("short_code", shortCode))
		return types.Stats{}, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.links[shortCode]; !exists {
		return types.Stats{}, ErrLinkNotFound
	}

	events := s.clicks[shortCode]
	seen := make(map[string]struct{}, len(events))
	ips := make([]string, 0, len(events))
	for _, event := range events {
		if _, ok := seen[event.Address]; ok {
			continue
		}
		seen[event.Address] = struct{}{}
		ips = append(ips, event.Address)
	}
	sort.Strings(ips)

	return types.Stats{ShortCode: shortCode, Clicks: len(events), UniqueIPs: ips}, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStorage) Close() error {
	return nil
}
