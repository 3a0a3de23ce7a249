package domain

import (
	"encoding/json"
	"math"
	"time"
)

// CoverageTile is the stored per-coarse-cell coverage state. Counters are
// written by the external coverage-ingest path; this core only folds them.
type CoverageTile struct {
	Cell         string     // coarse geocell, identity
	Time         time.Time  // most recent contributing event
	LastObserved *time.Time
	LastHeard    *time.Time
	Observed     int // non-negative event counter
	Heard        int
	Lost         int // semantics owned by the coverage-ingest path
	RSSI         *float64
	SNR          *float64
	Repeaters    []string
	Entries      []json.RawMessage // free-form, passed through untouched
}

// CoverageStat is one tile of the derived coverage projection.
type CoverageStat struct {
	Observed int     `json:"o"` // 1 if the tile was ever observed
	Heard    int     `json:"h"` // 1 if a repeater was ever heard in the tile
	AgeDays  float64 `json:"a"` // days since the freshest contributing event
}

// AddCoverageItem folds one contributing event into the accumulator. The fold
// keeps the most positive flags ever seen and the smallest age, so folding
// events from either source in any order produces the same aggregate.
func AddCoverageItem(acc map[string]CoverageStat, coarseCell string, observed, heard bool, t time.Time) {
	age := ageDays(t)
	stat, ok := acc[coarseCell]
	if !ok {
		acc[coarseCell] = CoverageStat{Observed: boolInt(observed), Heard: boolInt(heard), AgeDays: age}
		return
	}
	stat.Observed = max(stat.Observed, boolInt(observed))
	stat.Heard = max(stat.Heard, boolInt(heard))
	stat.AgeDays = math.Min(stat.AgeDays, age)
	acc[coarseCell] = stat
}

// FoldCoverage builds the coverage projection from both stores. It is a
// read-time projection: nothing is persisted and the inputs are not mutated.
// Tiles contribute their counters; samples contribute their observed flag
// and whether at least one repeater was heard, truncated to the coarse cell.
func FoldCoverage(tiles []CoverageTile, samples []Sample) map[string]CoverageStat {
	acc := make(map[string]CoverageStat, len(tiles))
	for _, t := range tiles {
		AddCoverageItem(acc, t.Cell, t.Observed > 0, t.Heard > 0, t.Time)
	}
	for _, s := range samples {
		AddCoverageItem(acc, CoarseOf(s.Cell), s.Observed, len(s.Repeaters) > 0, s.Time)
	}
	return acc
}

// ageDays returns days elapsed since t, rounded to one decimal place.
func ageDays(t time.Time) float64 {
	days := Now().Sub(t).Hours() / 24
	return math.Round(days*10) / 10
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
