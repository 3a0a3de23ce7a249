// Package coverage wires the stores, the elevation lookup, and the clock into
// the service operations exposed over HTTP and fed by the broker ingest loop.
package coverage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/radiowatch/coverage-map/internal/domain"
	"github.com/radiowatch/coverage-map/internal/observability"
	"github.com/radiowatch/coverage-map/internal/store"
)

// Service owns the store bundle and applies the merge-on-write rules for
// every inbound observation. All reads are pure projections over current
// store state.
type Service struct {
	store     store.Store
	elevation domain.ElevationLookup // nil when lookup is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics

	elevationTimeout time.Duration
}

// New creates a Service. elevation may be nil to disable lookups.
func New(st store.Store, elevation domain.ElevationLookup, elevationTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:            st,
		elevation:        elevation,
		elevationTimeout: elevationTimeout,
		logger:           logger,
		metrics:          metrics,
	}
}

// CheckReadiness reports whether the underlying storage is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SubmitSample merges one observation into its fine cell and records the
// side effects: sender roster activity and the raw rx tuple. The merge itself
// is atomic per cell; a validation failure rejects the write before any
// store mutation.
func (s *Service) SubmitSample(ctx context.Context, source string, obs domain.Observation) (domain.Sample, error) {
	fine, err := domain.FineCell(obs.Lat, obs.Lon)
	if err != nil {
		return domain.Sample{}, err
	}

	now := domain.Now()
	repeaters := domain.NormalizeRepeaterPath(obs.RepeaterPath)
	sample := domain.Sample{
		Cell:      fine,
		Time:      now,
		RSSI:      obs.RSSI,
		SNR:       obs.SNR,
		Observed:  obs.Observed,
		Repeaters: repeaters,
	}

	if err := s.store.UpsertSample(ctx, sample); err != nil {
		s.metrics.StorageErrors.Inc()
		return domain.Sample{}, err
	}
	s.metrics.MergeWrites.Inc()
	s.metrics.ObservationsIngested.WithLabelValues(source, "sample").Inc()

	if obs.Sender != "" {
		rec := domain.SenderRecord{
			Cell: domain.CoarseOf(fine),
			Name: obs.Sender,
			Day:  domain.DayStart(now),
		}
		if err := s.store.RecordSender(ctx, rec); err != nil {
			s.metrics.StorageErrors.Inc()
			return domain.Sample{}, err
		}
	}

	if obs.RSSI != nil || obs.SNR != nil {
		tuple := domain.RxTuple{
			RSSI:     obs.RSSI,
			SNR:      obs.SNR,
			Repeater: joinPath(repeaters),
		}
		if err := s.store.AppendRxTuple(ctx, fine, now, tuple); err != nil {
			s.metrics.StorageErrors.Inc()
			return domain.Sample{}, err
		}
	}

	return sample, nil
}

// SubmitRepeater records a repeater sighting. The record is replaced outright
// except for elevation, which is sticky: a prior stored value survives a
// write without one, and only a write still lacking elevation triggers the
// external lookup. A failed lookup leaves elevation null and never fails
// the write.
func (s *Service) SubmitRepeater(ctx context.Context, source string, sighting domain.RepeaterSighting) (domain.Repeater, error) {
	if sighting.ID == "" {
		return domain.Repeater{}, fmt.Errorf("%w: repeater id is required", domain.ErrMalformedInput)
	}
	fine, err := domain.FineCell(sighting.Lat, sighting.Lon)
	if err != nil {
		return domain.Repeater{}, err
	}

	elev := sighting.Elevation
	if elev == nil {
		prior, ok, err := s.store.GetRepeater(ctx, sighting.ID, fine)
		if err != nil {
			s.metrics.StorageErrors.Inc()
			return domain.Repeater{}, err
		}
		if ok && prior.Elevation != nil {
			elev = prior.Elevation
		} else {
			elev = s.lookupElevation(ctx, sighting.ID, sighting.Lat, sighting.Lon)
		}
	}

	r := domain.Repeater{
		ID:        sighting.ID,
		Cell:      fine,
		Time:      domain.Now(),
		Name:      sighting.Name,
		Elevation: elev,
	}
	if err := s.store.PutRepeater(ctx, r); err != nil {
		s.metrics.StorageErrors.Inc()
		return domain.Repeater{}, err
	}
	s.metrics.ObservationsIngested.WithLabelValues(source, "repeater").Inc()
	return r, nil
}

// lookupElevation resolves elevation best-effort. Failures are logged and
// swallowed; the returned pointer is nil when no value could be resolved.
func (s *Service) lookupElevation(ctx context.Context, id string, lat, lon float64) *float64 {
	if s.elevation == nil {
		return nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.elevationTimeout)
	defer cancel()

	v, err := s.elevation.Lookup(lookupCtx, lat, lon)
	if err != nil {
		s.logger.Warn("elevation lookup failed",
			"repeater_id", id,
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		return nil
	}
	return &v
}

// Coverage folds the tile and sample stores into the per-coarse-cell
// projection. The fold is read-time and commutative, so store order does not
// matter.
func (s *Service) Coverage(ctx context.Context) (map[string]domain.CoverageStat, error) {
	tiles, err := s.store.ListTiles(ctx)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return nil, err
	}
	samples, err := s.store.ListSamples(ctx)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return nil, err
	}
	return domain.FoldCoverage(tiles, samples), nil
}

// SamplesByPrefix lists samples under a fine-cell prefix.
func (s *Service) SamplesByPrefix(ctx context.Context, prefix string) ([]domain.SampleView, error) {
	samples, err := s.store.SamplesByPrefix(ctx, prefix)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return nil, err
	}
	return domain.SampleViews(samples), nil
}

// State assembles the full current-state projection.
func (s *Service) State(ctx context.Context) (domain.StateView, error) {
	cov, err := s.Coverage(ctx)
	if err != nil {
		return domain.StateView{}, err
	}
	samples, err := s.store.ListSamples(ctx)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return domain.StateView{}, err
	}
	repeaters, err := s.store.ListRepeaters(ctx)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return domain.StateView{}, err
	}
	return domain.BuildState(cov, samples, repeaters), nil
}

// RankSenders returns the sender leaderboard since the cutoff.
func (s *Service) RankSenders(ctx context.Context, since time.Time) ([]domain.SenderRank, error) {
	ranks, err := s.store.RankSendersSince(ctx, since)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return nil, err
	}
	return ranks, nil
}

// RxRollup returns the per-cell receive-sample statistics.
func (s *Service) RxRollup(ctx context.Context) ([]domain.RxRollup, error) {
	rollup, err := s.store.RxRollup(ctx)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return nil, err
	}
	return rollup, nil
}

// Repeaters returns the raw repeater list.
func (s *Service) Repeaters(ctx context.Context) ([]domain.RepeaterView, error) {
	repeaters, err := s.store.ListRepeaters(ctx)
	if err != nil {
		s.metrics.StorageErrors.Inc()
		return nil, err
	}
	return domain.RepeaterViews(repeaters), nil
}

// IsClientError reports whether err should map to a 4xx response.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidLocation) || errors.Is(err, domain.ErrMalformedInput)
}

func joinPath(repeaters []string) string {
	return strings.Join(repeaters, ",")
}
