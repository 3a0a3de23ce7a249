package domain

import (
	"fmt"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// Geocell precisions. A coarse cell is always the prefix of its fine cell,
// which is what makes tile-level prefix aggregation correct.
const (
	FineCellLen   = 8
	CoarseCellLen = 6
)

// FineCell maps a coordinate pair to its node-level geohash cell.
// Equal inputs always produce equal cells; nearby points share a longer
// common prefix than distant ones.
func FineCell(lat, lon float64) (string, error) {
	if err := validateLocation(lat, lon); err != nil {
		return "", err
	}
	return geohash.EncodeWithPrecision(lat, lon, FineCellLen), nil
}

// CoarseCell maps a coordinate pair to its tile-level geohash cell.
func CoarseCell(lat, lon float64) (string, error) {
	fine, err := FineCell(lat, lon)
	if err != nil {
		return "", err
	}
	return CoarseOf(fine), nil
}

// CoarseOf truncates a fine cell to its enclosing coarse cell.
func CoarseOf(fineCell string) string {
	if len(fineCell) <= CoarseCellLen {
		return fineCell
	}
	return fineCell[:CoarseCellLen]
}

func validateLocation(lat, lon float64) error {
	// NaN fails every comparison, so the bounds checks also reject it.
	if !(lat >= -90 && lat <= 90) {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidLocation, lat)
	}
	if !(lon >= -180 && lon <= 180) {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidLocation, lon)
	}
	return nil
}
