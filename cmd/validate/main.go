// Command validate replays an observation fixture through the in-memory
// store in several shuffled orders and verifies the projections converge to
// the same state. It is a data-integrity check for the merge rules: the
// sample merge and the coverage fold are commutative, so submission order
// must never change the final aggregates.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/mock/observations.json -shuffles 5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/radiowatch/coverage-map/internal/coverage"
	"github.com/radiowatch/coverage-map/internal/domain"
	"github.com/radiowatch/coverage-map/internal/observability"
	"github.com/radiowatch/coverage-map/internal/store/memstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	fixture := flag.String("fixture", "", "path to an observation fixture produced by cmd/seed")
	shuffles := flag.Int("shuffles", 5, "number of shuffled replays to compare")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -fixture")
	}

	observations, err := loadFixture(*fixture)
	if err != nil {
		return err
	}

	// Freeze the clock so every replay stamps identical times and ages.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	reference, err := replay(observations)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < *shuffles; i++ {
		shuffled := make([]domain.Observation, len(observations))
		copy(shuffled, observations)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		state, err := replay(shuffled)
		if err != nil {
			return err
		}
		if diff := cmp.Diff(reference, state); diff != "" {
			return fmt.Errorf("replay %d diverged from reference (-want +got):\n%s", i+1, diff)
		}
	}

	fmt.Printf("ok: %d observations, %d shuffled replays, all projections identical\n",
		len(observations), *shuffles)
	return nil
}

// replay submits every observation into a fresh in-memory store and returns
// the full state projection.
func replay(observations []domain.Observation) (domain.StateView, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := coverage.New(memstore.New(), nil, time.Second, logger, observability.NewMetricsForTesting())

	ctx := context.Background()
	for _, obs := range observations {
		if _, err := svc.SubmitSample(ctx, "replay", obs); err != nil {
			return domain.StateView{}, fmt.Errorf("submit observation: %w", err)
		}
	}
	return svc.State(ctx)
}

func loadFixture(path string) ([]domain.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var records []struct {
		Lat          float64  `json:"lat"`
		Lon          float64  `json:"lon"`
		RSSI         *float64 `json:"rssi"`
		SNR          *float64 `json:"snr"`
		Observed     bool     `json:"observed"`
		RepeaterPath string   `json:"repeater_path"`
		Sender       string   `json:"sender"`
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	observations := make([]domain.Observation, len(records))
	for i, rec := range records {
		observations[i] = domain.Observation{
			Lat:          rec.Lat,
			Lon:          rec.Lon,
			RSSI:         rec.RSSI,
			SNR:          rec.SNR,
			Observed:     rec.Observed,
			RepeaterPath: rec.RepeaterPath,
			Sender:       rec.Sender,
		}
	}
	return observations, nil
}
