// Package sampler turns the live presence state into position batches on a
// fixed cadence. The store itself stays cadence-agnostic; this is the only
// place the sampling interval matters.
package sampler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pptracker/recorder/internal/directory"
	"github.com/pptracker/recorder/internal/queue"
	"github.com/pptracker/recorder/pkg/core"
)

// PlayerSource yields the players currently online.
type PlayerSource interface {
	OnlinePlayers() []core.PlayerSnapshot
}

// Clock abstracts time for tests.
type Clock func() time.Time

// Dependencies holds all dependencies for the sampling service.
type Dependencies struct {
	Source  PlayerSource
	Batches *queue.Queue[core.SampleBatch]
	Names   *directory.Cache
	Logger  *slog.Logger
	Now     Clock
}

// Service samples the player source on a ticker and queues the batches for
// the store writer. No I/O happens on the sampling path.
type Service struct {
	deps     Dependencies
	interval time.Duration
}

// NewService creates a sampling service with the given interval.
func NewService(deps Dependencies, interval time.Duration) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, interval: interval}
}

// Run samples until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.deps.Logger.Info("Position sampling started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.deps.Logger.Info("Position sampling stopped")
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample takes one batch from the source. An empty server produces no batch.
// Display names are remembered as a side effect so later queries can resolve
// them without reaching back into host state.
func (s *Service) Sample() int {
	players := s.deps.Source.OnlinePlayers()
	if len(players) == 0 {
		return 0
	}

	if s.deps.Names != nil {
		for _, p := range players {
			s.deps.Names.Remember(p.UID, p.Name)
		}
	}

	s.deps.Batches.Push(core.SampleBatch{
		Time:    s.deps.Now(),
		Players: players,
	})
	return len(players)
}
