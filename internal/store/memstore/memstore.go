// Package memstore is the in-memory store implementation. Sample cells are
// sharded across striped locks so writers to different cells proceed in
// parallel while writers to the same cell serialize on its shard.
package memstore

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/radiowatch/coverage-map/internal/domain"
)

const sampleShards = 64

type sampleShard struct {
	mu      sync.Mutex
	samples map[string]domain.Sample
}

type rxShard struct {
	mu   sync.Mutex
	sets map[string]*domain.RxSampleSet
}

// Store implements store.Store entirely in memory. It is the default backend
// and the test double for the SQL-backed store.
type Store struct {
	shards [sampleShards]*sampleShard
	rx     [sampleShards]*rxShard

	tilesMu sync.RWMutex
	tiles   map[string]domain.CoverageTile

	repeatersMu sync.RWMutex
	repeaters   map[string]domain.Repeater // key: id + "\x00" + cell

	sendersMu sync.RWMutex
	senders   map[domain.SenderRecord]struct{}
}

// New creates an empty in-memory store.
func New() *Store {
	s := &Store{
		tiles:     make(map[string]domain.CoverageTile),
		repeaters: make(map[string]domain.Repeater),
		senders:   make(map[domain.SenderRecord]struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &sampleShard{samples: make(map[string]domain.Sample)}
		s.rx[i] = &rxShard{sets: make(map[string]*domain.RxSampleSet)}
	}
	return s
}

func shardIndex(cell string) int {
	h := fnv.New32a()
	h.Write([]byte(cell)) //nolint:errcheck // fnv never fails
	return int(h.Sum32() % sampleShards)
}

// UpsertSample folds the incoming sample into the cell's state under the
// shard lock, so the merge reads a consistent prior value.
func (s *Store) UpsertSample(_ context.Context, incoming domain.Sample) error {
	shard := s.shards[shardIndex(incoming.Cell)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if existing, ok := shard.samples[incoming.Cell]; ok {
		shard.samples[incoming.Cell] = domain.MergeSamples(&existing, incoming)
		return nil
	}
	shard.samples[incoming.Cell] = domain.MergeSamples(nil, incoming)
	return nil
}

func (s *Store) SamplesByPrefix(_ context.Context, prefix string) ([]domain.Sample, error) {
	var out []domain.Sample
	for _, shard := range s.shards {
		shard.mu.Lock()
		for cell, sample := range shard.samples {
			if strings.HasPrefix(cell, prefix) {
				out = append(out, sample)
			}
		}
		shard.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out, nil
}

func (s *Store) ListSamples(ctx context.Context) ([]domain.Sample, error) {
	return s.SamplesByPrefix(ctx, "")
}

func (s *Store) PutTile(_ context.Context, tile domain.CoverageTile) error {
	s.tilesMu.Lock()
	defer s.tilesMu.Unlock()
	s.tiles[tile.Cell] = tile
	return nil
}

func (s *Store) ListTiles(_ context.Context) ([]domain.CoverageTile, error) {
	s.tilesMu.RLock()
	defer s.tilesMu.RUnlock()
	out := make([]domain.CoverageTile, 0, len(s.tiles))
	for _, t := range s.tiles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out, nil
}

func repeaterKey(id, cell string) string { return id + "\x00" + cell }

func (s *Store) GetRepeater(_ context.Context, id, cell string) (domain.Repeater, bool, error) {
	s.repeatersMu.RLock()
	defer s.repeatersMu.RUnlock()
	r, ok := s.repeaters[repeaterKey(id, cell)]
	return r, ok, nil
}

func (s *Store) PutRepeater(_ context.Context, r domain.Repeater) error {
	s.repeatersMu.Lock()
	defer s.repeatersMu.Unlock()
	s.repeaters[repeaterKey(r.ID, r.Cell)] = r
	return nil
}

func (s *Store) ListRepeaters(_ context.Context) ([]domain.Repeater, error) {
	s.repeatersMu.RLock()
	defer s.repeatersMu.RUnlock()
	out := make([]domain.Repeater, 0, len(s.repeaters))
	for _, r := range s.repeaters {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Cell < out[j].Cell
	})
	return out, nil
}

func (s *Store) RecordSender(_ context.Context, rec domain.SenderRecord) error {
	s.sendersMu.Lock()
	defer s.sendersMu.Unlock()
	s.senders[rec] = struct{}{}
	return nil
}

func (s *Store) RankSendersSince(_ context.Context, cutoff time.Time) ([]domain.SenderRank, error) {
	s.sendersMu.RLock()
	cells := make(map[string]map[string]struct{})
	for rec := range s.senders {
		if rec.Day.Before(cutoff) {
			continue
		}
		if cells[rec.Name] == nil {
			cells[rec.Name] = make(map[string]struct{})
		}
		cells[rec.Name][rec.Cell] = struct{}{}
	}
	s.sendersMu.RUnlock()

	out := make([]domain.SenderRank, 0, len(cells))
	for name, set := range cells {
		out = append(out, domain.SenderRank{Name: name, Cells: len(set)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cells != out[j].Cells {
			return out[i].Cells > out[j].Cells
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) AppendRxTuple(_ context.Context, cell string, t time.Time, tuple domain.RxTuple) error {
	shard := s.rx[shardIndex(cell)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	set, ok := shard.sets[cell]
	if !ok {
		set = &domain.RxSampleSet{Cell: cell}
		shard.sets[cell] = set
	}
	set.Time = t
	set.Tuples = append(set.Tuples, tuple)
	return nil
}

func (s *Store) RxRollup(_ context.Context) ([]domain.RxRollup, error) {
	var out []domain.RxRollup
	for _, shard := range s.rx {
		shard.mu.Lock()
		for _, set := range shard.sets {
			out = append(out, domain.RollupRxSet(*set))
		}
		shard.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
