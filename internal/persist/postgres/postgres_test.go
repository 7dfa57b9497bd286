package postgres

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/pkg/core"
)

// newTestBackend runs the backend against an in-memory SQLite DB. The bucket
// schema is plain enough that the jsonb column degrades to text there.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	b := NewWithDB(db, nil)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestDSN(t *testing.T) {
	b := New(config.PostgresConfig{
		Host:     "db.example.com",
		Port:     "5433",
		Username: "ppt",
		Password: "secret",
		Database: "history",
	}, nil)

	assert.Equal(t,
		"host=db.example.com port=5433 user=ppt password=secret dbname=history sslmode=disable",
		b.DSN())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	buckets := map[string][]core.PositionRecord{
		"2024-01-01": {
			{Timestamp: "2024-01-01T12:00:00Z", PlayerUID: "p1", X: 10.0, Y: 64.0, Z: 10.0, Yaw: 0.5},
			{Timestamp: "2024-01-01T12:01:00Z", PlayerUID: "p2", X: -3.3, Y: 70.1, Z: 8.0},
		},
		"2024-01-02": {
			{Timestamp: "2024-01-02T09:00:00Z", PlayerUID: "p1", X: 11.5, Y: 64.0, Z: 12.2, Yaw: 2.1},
		},
	}

	require.NoError(t, b.Save(ctx, buckets))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, buckets, loaded)
}

func TestSave_UpsertsExistingDate(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, map[string][]core.PositionRecord{
		"2024-01-01": {{Timestamp: "t0", PlayerUID: "p1"}},
	}))
	require.NoError(t, b.Save(ctx, map[string][]core.PositionRecord{
		"2024-01-01": {{Timestamp: "t1", PlayerUID: "p2"}, {Timestamp: "t2", PlayerUID: "p3"}},
	}))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Len(t, loaded["2024-01-01"], 2)
	assert.Equal(t, "p2", loaded["2024-01-01"][0].PlayerUID)
}

func TestLoad_EmptyDatabase(t *testing.T) {
	b := newTestBackend(t)

	loaded, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
