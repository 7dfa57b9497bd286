// Package store holds the in-memory, date-partitioned position history.
// It is the sole mutable source of truth between session load and save.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/pptracker/recorder/pkg/core"
)

// PositionStore maps calendar-day keys to append-ordered position records.
// Appends and reads may come from different goroutines, so every path takes
// the bucket lock; reads hand out copies so callers never iterate a bucket
// while the sampler appends to it.
type PositionStore struct {
	mu      sync.RWMutex
	buckets map[string][]core.PositionRecord
}

// New creates an empty store.
func New() *PositionStore {
	return &PositionStore{
		buckets: make(map[string][]core.PositionRecord),
	}
}

// RecordBatch appends one tick's snapshots to the bucket for now's calendar
// day, creating the bucket if absent. Snapshots with an empty UID are dropped
// individually; the rest of the batch is still recorded. Never fails.
func (s *PositionStore) RecordBatch(now time.Time, players []core.PlayerSnapshot) int {
	if len(players) == 0 {
		return 0
	}

	dateKey := core.DateKey(now)
	records := make([]core.PositionRecord, 0, len(players))
	for _, p := range players {
		if p.UID == "" {
			continue
		}
		records = append(records, core.NewPositionRecord(now, p))
	}
	if len(records) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[dateKey] = append(s.buckets[dateKey], records...)
	return len(records)
}

// AvailableDates returns every known date key in ascending order.
// Lexical order equals chronological order for the yyyy-MM-dd format.
func (s *PositionStore) AvailableDates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.buckets))
	for k := range s.buckets {
		dates = append(dates, k)
	}
	sort.Strings(dates)
	return dates
}

// Records returns a copy of the bucket for dateKey in insertion order.
// An unknown date yields an empty slice, not an error.
func (s *PositionStore) Records(dateKey string) []core.PositionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.buckets[dateKey]
	out := make([]core.PositionRecord, len(bucket))
	copy(out, bucket)
	return out
}

// Len returns the total number of records across all buckets.
func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

// Snapshot returns a deep copy of all buckets, safe to persist while
// sampling continues.
func (s *PositionStore) Snapshot() map[string][]core.PositionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]core.PositionRecord, len(s.buckets))
	for k, bucket := range s.buckets {
		cp := make([]core.PositionRecord, len(bucket))
		copy(cp, bucket)
		out[k] = cp
	}
	return out
}

// Replace swaps the entire bucket map for the one loaded from persistence.
// A nil map resets the store to empty.
func (s *PositionStore) Replace(buckets map[string][]core.PositionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[string][]core.PositionRecord, len(buckets))
	for k, bucket := range buckets {
		cp := make([]core.PositionRecord, len(bucket))
		copy(cp, bucket)
		s.buckets[k] = cp
	}
}
