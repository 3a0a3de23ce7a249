package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Observation is a decoded sample submission from a field device. The ingest
// process has already stripped radio framing; only the fields the core
// consumes remain.
type Observation struct {
	Lat          float64
	Lon          float64
	RSSI         *float64
	SNR          *float64
	Observed     bool
	RepeaterPath string // raw comma-separated digipeater path
	Sender       string // optional sender name for the roster
}

// RepeaterSighting is a decoded repeater report.
type RepeaterSighting struct {
	Lat       float64
	Lon       float64
	ID        string
	Name      string
	Elevation *float64 // metres, nil requests a lookup
}

// RawObservation is an unprocessed message from the observation topic.
type RawObservation struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// wireObservation is the JSON shape published by the ingest process.
// Lat/lon are pointers so a missing coordinate is distinguishable from 0.
type wireObservation struct {
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	RSSI         *float64 `json:"rssi"`
	SNR          *float64 `json:"snr"`
	Observed     bool     `json:"observed"`
	RepeaterPath string   `json:"repeater_path"`
	Sender       string   `json:"sender"`
}

// ParseRawObservation deserializes a broker message into an Observation.
func ParseRawObservation(raw RawObservation) (Observation, error) {
	var w wireObservation
	if err := json.Unmarshal(raw.Value, &w); err != nil {
		return Observation{}, fmt.Errorf("%w: decode observation: %v", ErrMalformedInput, err)
	}
	if w.Lat == nil || w.Lon == nil {
		return Observation{}, fmt.Errorf("%w: observation missing coordinates", ErrMalformedInput)
	}
	return Observation{
		Lat:          *w.Lat,
		Lon:          *w.Lon,
		RSSI:         w.RSSI,
		SNR:          w.SNR,
		Observed:     w.Observed,
		RepeaterPath: w.RepeaterPath,
		Sender:       w.Sender,
	}, nil
}
