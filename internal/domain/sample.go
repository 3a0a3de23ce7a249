package domain

import (
	"sort"
	"strings"
	"time"
)

// Sample is the merged observation state for one fine geocell. One row per
// cell, last-write-merge: every ingest to the same cell folds into the
// existing row rather than appending.
type Sample struct {
	Cell      string     // fine geocell, identity
	Time      time.Time  // last update (server clock)
	RSSI      *float64   // best signal strength seen, nil = never reported
	SNR       *float64   // best signal-to-noise seen, nil = never reported
	Observed  bool       // monotonic: once true, never reverts
	Repeaters []string   // sorted lowercase set, monotonic union
}

// MergeSamples folds an incoming sample into the existing state for the same
// cell. The combinator is commutative and associative in everything except
// Time, which always takes the incoming value (the store does not reorder
// late-arriving data). A nil existing sample yields the incoming values as
// initial state.
func MergeSamples(existing *Sample, incoming Sample) Sample {
	if existing == nil {
		incoming.Repeaters = dedupSorted(incoming.Repeaters)
		return incoming
	}
	return Sample{
		Cell:      incoming.Cell,
		Time:      incoming.Time,
		RSSI:      maxFloat(existing.RSSI, incoming.RSSI),
		SNR:       maxFloat(existing.SNR, incoming.SNR),
		Observed:  existing.Observed || incoming.Observed,
		Repeaters: unionSets(existing.Repeaters, incoming.Repeaters),
	}
}

// maxFloat is a null-aware max: nil means "absent", so the non-nil side wins
// and two non-nil values take the greater (higher RSSI is a stronger signal).
func maxFloat(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	default:
		return a
	}
}

// unionSets merges two sorted string sets into a new sorted set.
func unionSets(a, b []string) []string {
	if len(a) == 0 {
		return dedupSorted(b)
	}
	if len(b) == 0 {
		return dedupSorted(a)
	}
	merged := make([]string, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return dedupSorted(merged)
}

func dedupSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

// NormalizeRepeaterPath splits a device-reported digipeater path into a
// lowercase sorted set of repeater identifiers. Empty segments are dropped;
// an empty result means the packet was heard directly.
func NormalizeRepeaterPath(path string) []string {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	parts := strings.Split(path, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return dedupSorted(cleaned)
}
