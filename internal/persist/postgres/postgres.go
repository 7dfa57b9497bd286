// Package postgres persists position history in PostgreSQL, one row per date
// bucket with the day's records stored as a JSONB document. Whole-bucket rows
// keep Save a single upsert per date and make per-date failure isolation
// trivial.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/pkg/core"
)

// dayBucket is the GORM model for one persisted date bucket.
type dayBucket struct {
	DateKey string         `gorm:"primaryKey;size:10"`
	Records datatypes.JSON `gorm:"type:jsonb"`
}

// TableName keeps the table name stable across GORM naming changes.
func (dayBucket) TableName() string {
	return "position_day_buckets"
}

// Backend implements persist.Backend on PostgreSQL.
type Backend struct {
	cfg    config.PostgresConfig
	logger *slog.Logger
	db     *gorm.DB
}

// New creates a PostgreSQL backend. The connection is opened in Init.
func New(cfg config.PostgresConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// NewWithDB creates a backend on an already-open GORM connection. Init only
// migrates the schema in that case.
func NewWithDB(db *gorm.DB, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{db: db, logger: logger}
}

// DSN builds the connection string from configuration.
func (b *Backend) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		b.cfg.Host, b.cfg.Port, b.cfg.Username, b.cfg.Password, b.cfg.Database,
	)
}

// Init connects, validates the connection, and migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		db, err := gorm.Open(postgres.Open(b.DSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.db = db
	}

	if err := b.db.AutoMigrate(&dayBucket{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
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

// Load reads every bucket row. A row whose JSON document fails to decode is
// skipped with a logged error, matching the per-file tolerance of the JSON
// file backend.
func (b *Backend) Load(ctx context.Context) (map[string][]core.PositionRecord, error) {
	var rows []dayBucket
	if err := b.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load day buckets: %w", err)
	}

	buckets := make(map[string][]core.PositionRecord)
	for _, row := range rows {
		var records []core.PositionRecord
		if err := json.Unmarshal(row.Records, &records); err != nil {
			b.logger.Error("Failed to decode position bucket", "date", row.DateKey, "error", err)
			continue
		}
		buckets[row.DateKey] = records
	}
	return buckets, nil
}

// Save upserts each bucket row. A failure for one date is logged and
// collected; the remaining dates are still attempted.
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
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	row := dayBucket{DateKey: dateKey, Records: datatypes.JSON(data)}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"records"}),
	}).Create(&row).Error
}
