package domain

import "math"

// Projection views are the externally consumed payload shapes. Presentation
// rules: null/empty fields are omitted (a zero reading is significant and
// kept, a missing one is not), elevation is rounded to whole metres, and
// timestamps are truncated to whole seconds for payload compactness.

// SampleView is the emitted form of a merged sample.
type SampleView struct {
	Cell      string   `json:"hash"`
	Time      int64    `json:"time"`
	RSSI      *float64 `json:"rssi,omitempty"`
	SNR       *float64 `json:"snr,omitempty"`
	Observed  bool     `json:"observed"`
	Repeaters []string `json:"repeaters,omitempty"`
}

// RepeaterView is the emitted form of a repeater sighting.
type RepeaterView struct {
	ID        string `json:"id"`
	Cell      string `json:"hash"`
	Time      int64  `json:"time"`
	Name      string `json:"name,omitempty"`
	Elevation *int   `json:"elevation,omitempty"`
}

// StateView is the full current-state projection.
type StateView struct {
	Coverage  map[string]CoverageStat `json:"coverage"`
	Samples   []SampleView            `json:"samples"`
	Repeaters []RepeaterView          `json:"repeaters"`
}

// SampleViews trims stored samples for emission. The input is not mutated.
func SampleViews(samples []Sample) []SampleView {
	views := make([]SampleView, len(samples))
	for i, s := range samples {
		views[i] = SampleView{
			Cell:      s.Cell,
			Time:      s.Time.Unix(),
			RSSI:      s.RSSI,
			SNR:       s.SNR,
			Observed:  s.Observed,
			Repeaters: s.Repeaters,
		}
	}
	return views
}

// RepeaterViews trims stored repeaters for emission.
func RepeaterViews(repeaters []Repeater) []RepeaterView {
	views := make([]RepeaterView, len(repeaters))
	for i, r := range repeaters {
		v := RepeaterView{
			ID:   r.ID,
			Cell: r.Cell,
			Time: r.Time.Unix(),
			Name: r.Name,
		}
		if r.Elevation != nil {
			rounded := int(math.Round(*r.Elevation))
			v.Elevation = &rounded
		}
		views[i] = v
	}
	return views
}

// BuildState assembles the full projection from the current store state.
func BuildState(coverage map[string]CoverageStat, samples []Sample, repeaters []Repeater) StateView {
	return StateView{
		Coverage:  coverage,
		Samples:   SampleViews(samples),
		Repeaters: RepeaterViews(repeaters),
	}
}
