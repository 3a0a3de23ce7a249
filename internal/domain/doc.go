// Package domain models radio-propagation observations collected from field
// devices on a LoRa mesh network.
//
// # Geocells
//
// Every observation is bucketed by geohash. Two precisions are used:
//
//	fine   8 characters (~19 m cell):  node-level dedup key
//	coarse 6 characters (~0.6 km tile): tile-level aggregation key
//
// The coarse cell of a point is by construction the 6-character prefix of its
// fine cell, so coarse tiles exactly partition their child cells and prefix
// queries ("all samples under tile X") are correct. Geohash encoding is
// locality-monotonic: nearby points share a longer common prefix than
// distant ones.
//
// # Merge semantics
//
// Samples are merged per fine cell, not appended. The merge is a commutative,
// associative combinator so replays and out-of-order delivery converge to the
// same state:
//
//	time      := newest write (server clock, device clocks are never trusted)
//	rssi/snr  := null-aware max (higher is a stronger signal)
//	observed  := boolean OR (once observed, always observed)
//	repeaters := lowercased set union
//
// The coverage projection folds stored tiles and samples at read time with
// the same order-independence guarantee: per coarse cell it keeps the most
// positive observed/heard flags and the smallest age in days.
//
// # Repeater paths
//
// Devices report the digipeater path of a packet as a comma-separated list of
// repeater identifiers. Paths are trimmed, lowercased, and deduplicated
// before set union; an empty path means the packet was heard directly.
package domain
