package domain

import "time"

// SenderRecord marks a named sender as active in a coarse geocell on a given
// day. Identity is the full triple; duplicate inserts are no-ops.
type SenderRecord struct {
	Cell string
	Name string
	Day  time.Time // day-truncated (UTC midnight)
}

// SenderRank is one row of the sender leaderboard.
type SenderRank struct {
	Name  string `json:"name"`
	Cells int    `json:"cells"` // distinct coarse cells since the cutoff
}

// DayStart truncates a timestamp to UTC midnight, the roster's day key.
func DayStart(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
