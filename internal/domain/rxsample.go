package domain

import "time"

// RxTuple is one raw per-packet measurement. Tuples are never merged, only
// appended, until the set is archived externally.
type RxTuple struct {
	RSSI     *float64
	SNR      *float64
	Repeater string // normalized repeater path of the packet, "" if direct
}

// RxSampleSet is the growing tuple list for one fine geocell.
type RxSampleSet struct {
	Cell   string
	Time   time.Time // advanced on every append
	Tuples []RxTuple
}

// RxRollup is the per-cell statistical summary of an RxSampleSet.
type RxRollup struct {
	Cell      string   `json:"hash"`
	Time      int64    `json:"time"` // unix seconds of the last append
	Count     int      `json:"count"`
	MeanRSSI  *float64 `json:"rssi,omitempty"`
	MeanSNR   *float64 `json:"snr,omitempty"`
	Repeaters int      `json:"repeaters"` // distinct repeater paths seen
}

// RollupRxSet aggregates one cell's tuples. Nulls are excluded from the means
// but still counted in Count; a cell with only null readings reports nil means.
func RollupRxSet(set RxSampleSet) RxRollup {
	var (
		rssiSum, snrSum float64
		rssiN, snrN     int
	)
	paths := make(map[string]struct{})
	for _, tup := range set.Tuples {
		if tup.RSSI != nil {
			rssiSum += *tup.RSSI
			rssiN++
		}
		if tup.SNR != nil {
			snrSum += *tup.SNR
			snrN++
		}
		if tup.Repeater != "" {
			paths[tup.Repeater] = struct{}{}
		}
	}
	r := RxRollup{
		Cell:      set.Cell,
		Time:      set.Time.Unix(),
		Count:     len(set.Tuples),
		Repeaters: len(paths),
	}
	if rssiN > 0 {
		mean := rssiSum / float64(rssiN)
		r.MeanRSSI = &mean
	}
	if snrN > 0 {
		mean := snrSum / float64(snrN)
		r.MeanSNR = &mean
	}
	return r
}
