// Package core defines the domain types shared between the recorder and the
// host plugin.
package core

import (
	"math"
	"time"
)

// TimestampFormat is the wire and on-disk format for record timestamps (UTC).
const TimestampFormat = time.RFC3339Nano

// DateKeyFormat is the calendar-day key used to partition position history.
// Lexical order of keys in this format equals chronological order.
const DateKeyFormat = "2006-01-02"

// PositionRecord is one player's position and orientation captured at one
// sampling tick. Records are immutable once created.
// Yaw was added after the first release; older persisted files omit it and
// it decodes as zero.
type PositionRecord struct {
	Timestamp string  `json:"timestamp"`
	PlayerUID string  `json:"playerUid"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Yaw       float64 `json:"yaw,omitempty"`
}

// PlayerSnapshot is one online player's live state as reported by the host.
type PlayerSnapshot struct {
	UID  string  `json:"uid"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Yaw  float64 `json:"yaw"`
}

// SampleBatch is the set of player snapshots taken at one tick.
type SampleBatch struct {
	Time    time.Time
	Players []PlayerSnapshot
}

// DateKey derives the bucket key for an instant.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateKeyFormat)
}

// RoundCoord rounds a world coordinate to one fractional digit, the
// precision recorded on capture.
func RoundCoord(v float64) float64 {
	return math.Round(v*10) / 10
}

// NewPositionRecord builds a record from a live snapshot, applying capture
// rounding and UTC timestamp formatting.
func NewPositionRecord(now time.Time, p PlayerSnapshot) PositionRecord {
	return PositionRecord{
		Timestamp: now.UTC().Format(TimestampFormat),
		PlayerUID: p.UID,
		X:         RoundCoord(p.X),
		Y:         RoundCoord(p.Y),
		Z:         RoundCoord(p.Z),
		Yaw:       p.Yaw,
	}
}
