// Package jsonfile persists position history as one JSON file per calendar
// day, named <prefix>-<yyyy-MM-dd>.json. The per-date layout bounds the cost
// of a session's load/save to the days actually touched and keeps each day's
// records human-inspectable as one self-contained unit.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/pkg/core"
)

// Backend stores each date bucket in its own JSON file under cfg.Dir.
type Backend struct {
	cfg    config.JSONFileConfig
	logger *slog.Logger
}

// New creates a JSON file backend.
func New(cfg config.JSONFileConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// Init ensures the data directory exists.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Close is a no-op; files are written synchronously on Save.
func (b *Backend) Close() error {
	return nil
}

// FileName returns the file name for a date key.
func (b *Backend) FileName(dateKey string) string {
	return fmt.Sprintf("%s-%s.json", b.cfg.FilePrefix, dateKey)
}

// dateKeyFromFile extracts the date key from a bucket file name, or "" if the
// name does not belong to this backend.
func (b *Backend) dateKeyFromFile(name string) string {
	prefix := b.cfg.FilePrefix + "-"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
		return ""
	}
	key := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
	if _, err := time.Parse(core.DateKeyFormat, key); err != nil {
		return ""
	}
	return key
}

// Load reads every bucket file in the data directory. Corrupt or unreadable
// files are skipped with a logged error so one bad day never aborts the load.
func (b *Backend) Load(ctx context.Context) (map[string][]core.PositionRecord, error) {
	entries, err := os.ReadDir(b.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]core.PositionRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	buckets := make(map[string][]core.PositionRecord)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		dateKey := b.dateKeyFromFile(entry.Name())
		if dateKey == "" {
			continue
		}

		path := filepath.Join(b.cfg.Dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Error("Failed to read position data file", "file", path, "error", err)
			continue
		}

		var records []core.PositionRecord
		if err := json.Unmarshal(data, &records); err != nil {
			b.logger.Error("Failed to parse position data file", "file", path, "error", err)
			continue
		}
		buckets[dateKey] = records
	}

	return buckets, nil
}

// Save writes each bucket to its own file, overwriting prior contents. A
// write failure for one date is logged and collected; the remaining dates are
// still attempted.
func (b *Backend) Save(ctx context.Context, buckets map[string][]core.PositionRecord) error {
	if err := b.Init(); err != nil {
		return err
	}

	var errs []error
	for dateKey, records := range buckets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.saveBucket(dateKey, records); err != nil {
			b.logger.Error("Failed to save position data file", "date", dateKey, "error", err)
			errs = append(errs, fmt.Errorf("date %s: %w", dateKey, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Backend) saveBucket(dateKey string, records []core.PositionRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	path := filepath.Join(b.cfg.Dir, b.FileName(dateKey))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
