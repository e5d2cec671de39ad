package storage

import (
	"context"
	"fmt"

	"go-link-redirector/config"
	"go.uber.org/zap"
)

// New builds the Storage selected by cfg.StoreDriver.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Storage, error) {
	switch cfg.StoreDriver {
	case config.BackendMemory:
		return NewInMemoryStorage(cfg.StoreCapacity, logger), nil
	case config.BackendSQLite:
		return NewSQLiteStorage(ctx, cfg.DatabaseURL, logger)
	case config.BackendMySQL:
		return NewMySQLStorage(cfg.MySQLDSN, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
