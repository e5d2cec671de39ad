// Package storage provides the persistent link store and its click log.
package storage

import (
	"context"
	"errors"

	"go-link-redirector/types"
)

// Common errors returned by storage operations.
var (
	ErrShortCodeExists        = errors.New("short code already exists")
	ErrLinkNotFound           = errors.New("link not found")
	ErrStorageCapacityReached = errors.New("storage capacity reached")
)

// Storage is the authoritative store for links and click events.
type Storage interface {
	// InsertLink fails with ErrShortCodeExists if the code is taken.
	InsertLink(ctx context.Context, link types.Link) error
	// GetURL fails with ErrLinkNotFound for unknown codes.
	GetURL(ctx context.Context, shortCode string) (string, error)
	RecordClick(ctx context.Context, event types.ClickEvent) error
	// GetStats fails with ErrLinkNotFound for unknown codes.
	GetStats(ctx context.Context, shortCode string) (types.Stats, error)
	Close() error
}
