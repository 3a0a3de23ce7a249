package domain

import (
	"context"
	"time"
)

// Repeater is the most recent sighting of a named repeater at a fine geocell.
// Writes replace the whole record; elevation is the only sticky field (a
// stored value is never overwritten by a later null).
type Repeater struct {
	ID        string // repeater identifier, identity together with Cell
	Cell      string // fine geocell of the sighting
	Time      time.Time
	Name      string
	Elevation *float64 // metres, nil until resolved
}

// ElevationLookup resolves terrain elevation for a coordinate. Implementations
// are best-effort: a failure or timeout must not fail the repeater write, it
// only leaves elevation null until the next sighting retries.
type ElevationLookup interface {
	Lookup(ctx context.Context, lat, lon float64) (float64, error)
}
