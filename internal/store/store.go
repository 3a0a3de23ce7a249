// Package store declares the persistence contracts the coverage service
// depends on. Implementations must provide atomic per-key merge semantics:
// concurrent writers to the same cell serialize so the merge combinator is
// applied against a consistent prior value, while writers to different cells
// do not block each other.
package store

import (
	"context"
	"time"

	"github.com/radiowatch/coverage-map/internal/domain"
)

// SampleStore holds merged observations keyed by fine geocell.
type SampleStore interface {
	// UpsertSample atomically folds the incoming sample into the cell's
	// existing state using domain.MergeSamples. An absent cell is created
	// with the incoming values as initial state.
	UpsertSample(ctx context.Context, incoming domain.Sample) error

	// SamplesByPrefix returns all samples whose fine cell starts with prefix,
	// ordered by cell.
	SamplesByPrefix(ctx context.Context, prefix string) ([]domain.Sample, error)

	// ListSamples returns every stored sample, ordered by cell.
	ListSamples(ctx context.Context) ([]domain.Sample, error)
}

// TileStore holds coverage tiles keyed by coarse geocell. Tiles are written
// by the external coverage-ingest path; this service only lists them for the
// read-time fold, plus accepts whole-tile puts for seeding and tests.
type TileStore interface {
	PutTile(ctx context.Context, tile domain.CoverageTile) error
	ListTiles(ctx context.Context) ([]domain.CoverageTile, error)
}

// RepeaterStore holds repeater sightings keyed by (id, fine geocell).
type RepeaterStore interface {
	GetRepeater(ctx context.Context, id, cell string) (domain.Repeater, bool, error)

	// PutRepeater replaces the record outright. Elevation stickiness is
	// resolved by the caller before the write.
	PutRepeater(ctx context.Context, r domain.Repeater) error

	ListRepeaters(ctx context.Context) ([]domain.Repeater, error)
}

// SenderStore holds per-day sender activity keyed by (cell, name, day).
type SenderStore interface {
	// RecordSender inserts if absent; duplicates are silent no-ops.
	RecordSender(ctx context.Context, rec domain.SenderRecord) error

	// RankSendersSince orders senders by distinct-cell count descending,
	// ties broken by name ascending.
	RankSendersSince(ctx context.Context, cutoff time.Time) ([]domain.SenderRank, error)
}

// RxSampleStore accumulates raw per-packet tuples keyed by fine geocell.
type RxSampleStore interface {
	AppendRxTuple(ctx context.Context, cell string, t time.Time, tuple domain.RxTuple) error
	RxRollup(ctx context.Context) ([]domain.RxRollup, error)
}

// Store bundles every persistence concern of the service.
type Store interface {
	SampleStore
	TileStore
	RepeaterStore
	SenderStore
	RxSampleStore

	// Ping reports whether the underlying storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}
