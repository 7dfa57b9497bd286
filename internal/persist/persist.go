// Package persist defines the durable storage contract for position history
// and a factory selecting a backend from configuration.
package persist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/internal/persist/jsonfile"
	"github.com/pptracker/recorder/internal/persist/postgres"
	"github.com/pptracker/recorder/internal/persist/sqlite"
	"github.com/pptracker/recorder/pkg/core"
)

// Backend is the interface all persistence implementations must satisfy.
// Load and Save operate on whole date-bucket maps; partial per-date failures
// are tolerated by the implementations and reported after the remaining
// buckets have been attempted.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Load reads every persisted date bucket. A corrupt or unreadable
	// bucket is skipped with a logged error; Load only fails when nothing
	// can be read at all.
	Load(ctx context.Context) (map[string][]core.PositionRecord, error)

	// Save writes every bucket, overwriting prior contents. A failure for
	// one date must not prevent attempting the others.
	Save(ctx context.Context, buckets map[string][]core.PositionRecord) error
}

// New creates a persistence backend based on configuration.
func New(cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "jsonfile":
		return jsonfile.New(cfg.JSONFile, logger), nil
	case "sqlite":
		return sqlite.New(cfg.SQLite, logger), nil
	case "postgres":
		return postgres.New(cfg.Postgres, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
