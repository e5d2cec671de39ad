package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-link-redirector/types"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type linkModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	ShortCode   string    `gorm:"uniqueIndex;type:varchar(64);not null"`
	OriginalURL string    `gorm:"type:varchar(2048);not null"`
	UserID      *string   `gorm:"type:varchar(255)"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (linkModel) TableName() string { return "links" }

type clickModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ShortCode string    `gorm:"index;type:varchar(64);not null"`
	IP        string    `gorm:"column:ip;type:varchar(45);not null"`
	Timestamp time.Time `gorm:"column:ts;not null"`
}

func (clickModel) TableName() string { return "clicks" }

// MySQLStorage implements the Storage interface on MySQL through gorm.
type MySQLStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewMySQLStorage connects to dsn and migrates the links and clicks tables.
func NewMySQLStorage(dsn string, logger *zap.Logger) (*MySQLStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if err := db.AutoMigrate(&linkModel{}, &clickModel{}); err != nil {
		return nil, fmt.Errorf("migrate mysql: %w", err)
	}
	return &MySQLStorage{db: db, logger: logger}, nil
}

func (s *MySQLStorage) InsertLink(ctx context.Context, link types.Link) error {
	model := linkModel{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if link.Owner != "" {
		owner := link.Owner
		model.UserID = &owner
	}

	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("Attempt to insert duplicate short code", zap.String("short_code", link.ShortCode))
			return ErrShortCodeExists
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *MySQLStorage) GetURL(ctx context.Context, shortCode string) (string, error) {
	var model linkModel
	err := s.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrLinkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get url: %w", err)
	}
	return model.OriginalURL, nil
}

func (s *MySQLStorage) RecordClick(ctx context.Context, event types.ClickEvent) error {
	model := clickModel{ShortCode: event.ShortCode, IP: event.Address, Timestamp: event.Timestamp}
	if model.Timestamp.IsZero() {
		model.Timestamp = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}

func (s *MySQLStorage) GetStats(ctx context.Context, shortCode string) (types.Stats, error) {
	db := s.db.WithContext(ctx)

	var links int64
	if err := db.Model(&linkModel{}).Where("short_code = ?", shortCode).Count(&links).Error; err != nil {
		return types.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	if links == 0 {
		return types.Stats{}, ErrLinkNotFound
	}

	var clicks int64
	if err := db.Model(&clickModel{}).Where("short_code = ?", shortCode).Count(&clicks).Error; err != nil {
		return types.Stats{}, fmt.Errorf("count clicks: %w", err)
	}

	ips := []string{}
	if err := db.Model(&clickModel{}).Where("short_code = ?", shortCode).
		Distinct("ip").Order("ip").Pluck("ip", &ips).Error; err != nil {
		return types.Stats{}, fmt.Errorf("list click addresses: %w", err)
	}

	return types.Stats{ShortCode: shortCode, Clicks: int(clicks), UniqueIPs: ips}, nil
}

func (s *MySQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
