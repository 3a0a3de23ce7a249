// Command seed generates a deterministic set of mock observations for local
// development and testing. It writes them to a JSON fixture file and/or
// publishes them to the observation topic.
//
// Usage:
//
//	go run ./cmd/seed -count 500 -out data/mock/observations.json
//	go run ./cmd/seed -count 500 -brokers localhost:9092 -topic decoded-observations
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
	"strings"
	"time"

	kafkaadapter "github.com/radiowatch/coverage-map/internal/adapter/kafka"
	"github.com/radiowatch/coverage-map/internal/domain"
)

// Fixed RNG seed so repeated runs produce identical fixtures.
const rngSeed = 20240426

var repeaterIDs = []string{"r-alder", "r-birch", "r-cedar", "r-denny", "r-ever"}

var senders = []string{"KI7ABC", "N7XYZ", "W7QRP", "KD7MNO", ""}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	count := flag.Int("count", 200, "number of observations to generate")
	centerLat := flag.Float64("center-lat", 47.6062, "center latitude of the mock area")
	centerLon := flag.Float64("center-lon", -122.3321, "center longitude of the mock area")
	out := flag.String("out", "", "output path for the JSON fixture")
	brokers := flag.String("brokers", "", "comma-separated broker list to publish to")
	topic := flag.String("topic", "decoded-observations", "topic to publish to")
	flag.Parse()

	if *out == "" && *brokers == "" {
		flag.Usage()
		return fmt.Errorf("at least one of -out or -brokers is required")
	}

	observations := generate(*count, *centerLat, *centerLon)

	if *out != "" {
		if err := writeFixture(*out, observations); err != nil {
			return err
		}
		fmt.Printf("wrote %d observations to %s\n", len(observations), *out)
	}

	if *brokers != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		writer := kafkaadapter.NewWriter(strings.Split(*brokers, ","), *topic, logger)
		defer writer.Close() //nolint:errcheck

		if err := writer.PublishBatch(ctx, observations); err != nil {
			return fmt.Errorf("publish observations: %w", err)
		}
		fmt.Printf("published %d observations to %s\n", len(observations), *topic)
	}

	return nil
}

// generate spreads observations over a ~5 km box around the center so the
// fixture covers many fine cells but collides often enough to exercise the
// merge path.
func generate(count int, centerLat, centerLon float64) []domain.Observation {
	rng := rand.New(rand.NewSource(rngSeed))

	observations := make([]domain.Observation, 0, count)
	for i := 0; i < count; i++ {
		obs := domain.Observation{
			Lat:      centerLat + (rng.Float64()-0.5)*0.05,
			Lon:      centerLon + (rng.Float64()-0.5)*0.05,
			Observed: rng.Intn(3) > 0,
			Sender:   senders[rng.Intn(len(senders))],
		}
		if rng.Intn(4) > 0 {
			rssi := -120 + rng.Float64()*60
			obs.RSSI = &rssi
		}
		if rng.Intn(4) > 0 {
			snr := -20 + rng.Float64()*30
			obs.SNR = &snr
		}
		if n := rng.Intn(3); n > 0 {
			hops := make([]string, n)
			for j := range hops {
				hops[j] = repeaterIDs[rng.Intn(len(repeaterIDs))]
			}
			obs.RepeaterPath = strings.Join(hops, ",")
		}
		observations = append(observations, obs)
	}
	return observations
}

func writeFixture(path string, observations []domain.Observation) error {
	type wire struct {
		Lat          float64  `json:"lat"`
		Lon          float64  `json:"lon"`
		RSSI         *float64 `json:"rssi,omitempty"`
		SNR          *float64 `json:"snr,omitempty"`
		Observed     bool     `json:"observed"`
		RepeaterPath string   `json:"repeater_path,omitempty"`
		Sender       string   `json:"sender,omitempty"`
	}
	records := make([]wire, len(observations))
	for i, obs := range observations {
		records[i] = wire{
			Lat:          obs.Lat,
			Lon:          obs.Lon,
			RSSI:         obs.RSSI,
			SNR:          obs.SNR,
			Observed:     obs.Observed,
			RepeaterPath: obs.RepeaterPath,
			Sender:       obs.Sender,
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}
