// Package geo derives movement statistics from recorded positions.
package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/pptracker/recorder/pkg/core"
)

// PathLength returns the length of the horizontal path traced by the records,
// in world units. Fewer than two points trace no path. Vertical movement is
// ignored; the map overlay this feeds is top-down.
func PathLength(records []core.PositionRecord) float64 {
	if len(records) < 2 {
		return 0
	}

	flatCoords := make([]float64, 0, len(records)*2)
	for _, r := range records {
		flatCoords = append(flatCoords, r.X, r.Z)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return 0
	}
	return ls.Length()
}

// TravelDistances returns the path length per player for one date bucket,
// walking the bucket in insertion order.
func TravelDistances(records []core.PositionRecord) map[string]float64 {
	byPlayer := make(map[string][]core.PositionRecord)
	for _, r := range records {
		byPlayer[r.PlayerUID] = append(byPlayer[r.PlayerUID], r)
	}

	distances := make(map[string]float64, len(byPlayer))
	for uid, path := range byPlayer {
		distances[uid] = PathLength(path)
	}
	return distances
}
