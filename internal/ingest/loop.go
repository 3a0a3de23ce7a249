// Package ingest runs the broker consume loop: extract a batch of decoded
// observations, record each through the coverage service, commit offsets.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/radiowatch/coverage-map/internal/domain"
	"github.com/radiowatch/coverage-map/internal/observability"
)

// BatchExtractor reads up to batchSize raw observations from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawObservation, error)
}

// Recorder merges a decoded observation into the stores.
type Recorder interface {
	SubmitSample(ctx context.Context, source string, obs domain.Observation) (domain.Sample, error)
}

// Loop orchestrates the extract-record-commit cycle.
type Loop struct {
	extractor BatchExtractor
	recorder  Recorder
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// New creates a Loop with the given stages and observability.
func New(e BatchExtractor, r Recorder, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Loop {
	return &Loop{
		extractor: e,
		recorder:  r,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Run executes the consume loop until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("ingest loop started", "batch_size", l.batchSize)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("ingest loop stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !l.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-record-commit cycle. Returns false if the
// loop should stop.
func (l *Loop) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	batch, err := l.extractor.ExtractBatch(ctx, l.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		l.logger.Error("extract batch failed", "error", err)
		return l.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	l.metrics.IngestBatchSize.Observe(float64(len(batch)))
	*backoff = 200 * time.Millisecond

	for _, raw := range batch {
		obs, err := domain.ParseRawObservation(raw)
		if err != nil {
			// Poison pill: skip and commit so it is not redelivered forever.
			l.logger.Warn("decode failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			l.metrics.IngestDecodeErrors.Inc()
			l.commitOffset(ctx, raw)
			continue
		}

		if _, err := l.recorder.SubmitSample(ctx, "kafka", obs); err != nil {
			if errors.Is(err, domain.ErrInvalidLocation) || errors.Is(err, domain.ErrMalformedInput) {
				// Invalid coordinates are a bad message, not a transient
				// failure: skip and commit like a decode error.
				l.logger.Warn("observation rejected, skipping message",
					"error", err,
					"offset", raw.Offset,
				)
				l.metrics.IngestDecodeErrors.Inc()
				l.commitOffset(ctx, raw)
				continue
			}
			// Storage failure: leave the offset uncommitted so the message
			// is retried after backoff.
			l.logger.Error("record observation failed", "error", err, "offset", raw.Offset)
			return l.backoffOrStop(ctx, backoff, maxBackoff)
		}
		l.commitOffset(ctx, raw)
	}

	l.metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the loop should stop.
func (l *Loop) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (l *Loop) commitOffset(ctx context.Context, raw domain.RawObservation) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		l.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
