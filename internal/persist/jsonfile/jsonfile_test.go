package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/pkg/core"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	return New(config.JSONFileConfig{
		Dir:        t.TempDir(),
		FilePrefix: "playerpositions",
	}, nil)
}

func sampleBuckets() map[string][]core.PositionRecord {
	return map[string][]core.PositionRecord{
		"2024-01-01": {
			{Timestamp: "2024-01-01T12:00:00Z", PlayerUID: "p1", X: 10.0, Y: 64.0, Z: 10.0, Yaw: 0.5},
			{Timestamp: "2024-01-01T12:01:00Z", PlayerUID: "p2", X: -3.3, Y: 70.1, Z: 8.0},
		},
		"2024-01-02": {
			{Timestamp: "2024-01-02T09:00:00Z", PlayerUID: "p1", X: 11.5, Y: 64.0, Z: 12.2, Yaw: 2.1},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())

	buckets := sampleBuckets()
	require.NoError(t, b.Save(context.Background(), buckets))

	loaded, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, buckets, loaded)
}

func TestSave_OneFilePerDate(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Save(context.Background(), sampleBuckets()))

	for _, name := range []string{"playerpositions-2024-01-01.json", "playerpositions-2024-01-02.json"} {
		_, err := os.Stat(filepath.Join(b.cfg.Dir, name))
		assert.NoError(t, err, name)
	}
}

func TestSave_OverwritesPriorContents(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, sampleBuckets()))
	require.NoError(t, b.Save(ctx, map[string][]core.PositionRecord{
		"2024-01-01": {{Timestamp: "t", PlayerUID: "p9"}},
	}))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded["2024-01-01"], 1)
	assert.Equal(t, "p9", loaded["2024-01-01"][0].PlayerUID)
}

func TestLoad_SkipsCorruptFile(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())

	corrupt := filepath.Join(b.cfg.Dir, "playerpositions-2024-02-02.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))

	valid := filepath.Join(b.cfg.Dir, "playerpositions-2024-02-03.json")
	records := []core.PositionRecord{{Timestamp: "t", PlayerUID: "p1", X: 1, Y: 2, Z: 3}}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(valid, data, 0644))

	loaded, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, loaded, "2024-02-02")
	assert.Equal(t, records, loaded["2024-02-03"])
}

func TestLoad_IgnoresForeignFiles(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())

	for _, name := range []string{
		"notes.txt",
		"playerpositions-notadate.json",
		"otherprefix-2024-01-01.json",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(b.cfg.Dir, name), []byte("[]"), 0644))
	}

	loaded, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoad_MissingDirectoryIsEmpty(t *testing.T) {
	b := New(config.JSONFileConfig{Dir: filepath.Join(t.TempDir(), "nope"), FilePrefix: "playerpositions"}, nil)

	loaded, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoad_YawOptionalInOlderFiles(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())

	// pre-Yaw schema
	old := `[{"timestamp":"2024-01-01T12:00:00Z","playerUid":"p1","x":10.0,"y":64.0,"z":10.0}]`
	path := filepath.Join(b.cfg.Dir, "playerpositions-2024-01-01.json")
	require.NoError(t, os.WriteFile(path, []byte(old), 0644))

	loaded, err := b.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded["2024-01-01"], 1)
	assert.Zero(t, loaded["2024-01-01"][0].Yaw)
}
