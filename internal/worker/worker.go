// Package worker drains sampled batches into the position store and owns all
// persistence triggers. It is the single logical writer of the store.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/pptracker/recorder/internal/persist"
	"github.com/pptracker/recorder/internal/queue"
	"github.com/pptracker/recorder/internal/store"
	"github.com/pptracker/recorder/pkg/core"
)

// drainInterval is how often pending batches are moved into the store.
const drainInterval = time.Second

// Metrics is an optional hook for reporting recorder activity.
type Metrics interface {
	SamplesRecorded(count int)
	SaveCompleted(buckets map[string][]core.PositionRecord, took time.Duration)
}

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	Store   *store.PositionStore
	Backend persist.Backend
	Batches *queue.Queue[core.SampleBatch]
	Logger  *slog.Logger
	Metrics Metrics
}

// Manager runs the ingest/persist loop.
type Manager struct {
	deps     Dependencies
	autosave time.Duration
	saveReq  chan struct{}
}

// NewManager creates a worker manager. A zero autosave interval disables
// periodic flushes; saves still happen on request and on shutdown.
func NewManager(deps Dependencies, autosave time.Duration) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:     deps,
		autosave: autosave,
		saveReq:  make(chan struct{}, 1),
	}
}

// RequestSave asks the run loop to flush to disk. Never blocks; a request
// while one is already pending is coalesced.
func (m *Manager) RequestSave() {
	select {
	case m.saveReq <- struct{}{}:
	default:
	}
}

// PendingBatches returns the number of batches not yet drained.
func (m *Manager) PendingBatches() int {
	return m.deps.Batches.Len()
}

// Run drains batches until ctx is cancelled, then performs a final drain and
// save. Blocks until shutdown completes.
func (m *Manager) Run(ctx context.Context) {
	drainTicker := time.NewTicker(drainInterval)
	defer drainTicker.Stop()

	var autosaveCh <-chan time.Time
	if m.autosave > 0 {
		autosaveTicker := time.NewTicker(m.autosave)
		defer autosaveTicker.Stop()
		autosaveCh = autosaveTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			m.Drain()
			m.Save(context.Background())
			return
		case <-drainTicker.C:
			m.Drain()
		case <-autosaveCh:
			m.Drain()
			m.Save(ctx)
		case <-m.saveReq:
			m.Drain()
			m.Save(ctx)
		}
	}
}

// Drain moves all pending batches into the store and returns the number of
// records appended.
func (m *Manager) Drain() int {
	total := 0
	for _, batch := range m.deps.Batches.GetAndEmpty() {
		total += m.deps.Store.RecordBatch(batch.Time, batch.Players)
	}
	if total > 0 && m.deps.Metrics != nil {
		m.deps.Metrics.SamplesRecorded(total)
	}
	return total
}

// Save persists a snapshot of the store. Per-date failures are already
// isolated by the backend; the joined error is only logged here since a
// failed flush must not take the recorder down.
func (m *Manager) Save(ctx context.Context) {
	snapshot := m.deps.Store.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	start := time.Now()
	if err := m.deps.Backend.Save(ctx, snapshot); err != nil {
		m.deps.Logger.Error("Error saving position data", "error", err)
	}
	took := time.Since(start)

	m.deps.Logger.Debug("Saved position data", "dates", len(snapshot), "took", took)
	if m.deps.Metrics != nil {
		m.deps.Metrics.SaveCompleted(snapshot, took)
	}
}
