package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-link-redirector/types"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStorage implements the Storage interface on a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStorage opens (creating if needed) the database at dsn and applies
// the schema.
func NewSQLiteStorage(ctx context.Context, dsn string, logger *zap.Logger) (*SQLiteStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLiteStorage{db: db, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT UNIQUE NOT NULL,
		original_url TEXT NOT NULL,
		user_id TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clicks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT NOT NULL,
		ip TEXT NOT NULL,
		ts DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_clicks_short_code ON clicks(short_code);
	`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteStorage) InsertLink(ctx context.Context, link types.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}

	var owner sql.NullString
	if link.Owner != "" {
		owner = sql.NullString{String: link.Owner, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO links (short_code, original_url, user_id, created_at) VALUES (?, ?, ?, ?)`,
		link.ShortCode, link.OriginalURL, owner, link.CreatedAt)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			s.logger.Warn("Attempt to insert duplicate short code", zap.String("short_code", link.ShortCode))
			return ErrShortCodeExists
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetURL(ctx context.Context, shortCode string) (string, error) {
	var originalURL string
	err := s.db.QueryRowContext(ctx,
		`SELECT original_url FROM links WHERE short_code = ?`, shortCode).Scan(&originalURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrLinkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get url: %w", err)
	}
	return originalURL, nil
}

func (s *SQLiteStorage) RecordClick(ctx context.Context, event types.ClickEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clicks (short_code, ip, ts) VALUES (?, ?, ?)`,
		event.ShortCode, event.Address, event.Timestamp)
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetStats(ctx context.Context, shortCode string) (types.Stats, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM links WHERE short_code = ?`, shortCode).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Stats{}, ErrLinkNotFound
	}
	if err != nil {
		return types.Stats{}, fmt.Errorf("get stats: %w", err)
	}

	stats := types.Stats{ShortCode: shortCode, UniqueIPs: []string{}}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clicks WHERE short_code = ?`, shortCode).Scan(&stats.Clicks); err != nil {
		return types.Stats{}, fmt.Errorf("count clicks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ip FROM clicks WHERE short_code = ? ORDER BY ip`, shortCode)
	if err != nil {
		return types.Stats{}, fmt.Errorf("list click addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return types.Stats{}, fmt.Errorf("scan click address: %w", err)
		}
		stats.UniqueIPs = append(stats.UniqueIPs, ip)
	}
	if err := rows.Err(); err != nil {
		return types.Stats{}, fmt.Errorf("list click addresses: %w", err)
	}
	return stats, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
