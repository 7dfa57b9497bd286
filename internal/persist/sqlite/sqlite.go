// Package sqlite persists position history in a SQLite database using the
// pure-Go driver, one row per record with a date-key index. Insertion order
// within a date is preserved through the autoincrement primary key.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/pkg/core"
)

// positionRow is the GORM model for one position record.
type positionRow struct {
	ID        uint   `gorm:"primaryKey"`
	DateKey   string `gorm:"index;size:10"`
	Timestamp string
	PlayerUID string
	X         float64
	Y         float64
	Z         float64
	Yaw       float64
}

// TableName keeps the table name stable across GORM naming changes.
func (positionRow) TableName() string {
	return "position_records"
}

// Backend implements persist.Backend on SQLite.
type Backend struct {
	cfg    config.SQLiteConfig
	logger *slog.Logger
	db     *gorm.DB
}

// New creates a SQLite backend. The database is opened in Init.
func New(cfg config.SQLiteConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// Init opens the database and migrates the schema.
func (b *Backend) Init() error {
	db, err := gorm.Open(sqlite.Open(b.cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&positionRow{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.db = db
	return nil
}

// Close closes the underlying connection.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load reads all rows ordered by insertion and groups them by date key.
func (b *Backend) Load(ctx context.Context) (map[string][]core.PositionRecord, error) {
	var rows []positionRow
	if err := b.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load position rows: %w", err)
	}

	buckets := make(map[string][]core.PositionRecord)
	for _, row := range rows {
		buckets[row.DateKey] = append(buckets[row.DateKey], core.PositionRecord{
			Timestamp: row.Timestamp,
			PlayerUID: row.PlayerUID,
			X:         row.X,
			Y:         row.Y,
			Z:         row.Z,
			Yaw:       row.Yaw,
		})
	}
	return buckets, nil
}

// Save rewrites each date's rows in its own transaction so a failure for one
// date leaves the others written.
func (b *Backend) Save(ctx context.Context, buckets map[string][]core.PositionRecord) error {
	var errs []error
	for dateKey, records := range buckets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.saveBucket(ctx, dateKey, records); err != nil {
			b.logger.Error("Failed to save position bucket", "date", dateKey, "error", err)
			errs = append(errs, fmt.Errorf("date %s: %w", dateKey, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Backend) saveBucket(ctx context.Context, dateKey string, records []core.PositionRecord) error {
	rows := make([]positionRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, positionRow{
			DateKey:   dateKey,
			Timestamp: r.Timestamp,
			PlayerUID: r.PlayerUID,
			X:         r.X,
			Y:         r.Y,
			Z:         r.Z,
			Yaw:       r.Yaw,
		})
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date_key = ?", dateKey).Delete(&positionRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}
