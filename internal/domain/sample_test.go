package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestMergeSamples_InitialState(t *testing.T) {
	now := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
	incoming := Sample{
		Cell:      "c23nb62w",
		Time:      now,
		RSSI:      f(-80),
		Observed:  true,
		Repeaters: []string{"r2", "r1", "r2"},
	}

	merged := MergeSamples(nil, incoming)

	assert.Equal(t, "c23nb62w", merged.Cell)
	assert.Equal(t, now, merged.Time)
	assert.Equal(t, f(-80), merged.RSSI)
	assert.Nil(t, merged.SNR)
	assert.True(t, merged.Observed)
	assert.Equal(t, []string{"r1", "r2"}, merged.Repeaters, "initial state is deduped and sorted")
}

func TestMergeSamples_MaxOrUnionRules(t *testing.T) {
	t0 := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	existing := Sample{Cell: "c23nb62w", Time: t0, RSSI: f(-80), SNR: nil, Observed: false, Repeaters: []string{"r1"}}
	incoming := Sample{Cell: "c23nb62w", Time: t1, RSSI: f(-60), SNR: f(5.5), Observed: true, Repeaters: []string{"r2"}}

	merged := MergeSamples(&existing, incoming)

	assert.Equal(t, t1, merged.Time, "time always advances to the incoming value")
	assert.Equal(t, f(-60), merged.RSSI, "max of non-null values")
	assert.Equal(t, f(5.5), merged.SNR, "null existing yields the incoming value")
	assert.True(t, merged.Observed)
	assert.Equal(t, []string{"r1", "r2"}, merged.Repeaters)
}

func TestMergeSamples_ObservedNeverReverts(t *testing.T) {
	existing := Sample{Cell: "c23nb62w", Observed: true}
	merged := MergeSamples(&existing, Sample{Cell: "c23nb62w", Observed: false})
	assert.True(t, merged.Observed)
}

func TestMergeSamples_NullDoesNotEraseReading(t *testing.T) {
	existing := Sample{Cell: "c23nb62w", RSSI: f(-70), SNR: f(3)}
	merged := MergeSamples(&existing, Sample{Cell: "c23nb62w"})
	assert.Equal(t, f(-70), merged.RSSI)
	assert.Equal(t, f(3), merged.SNR)
}

// Folding the same set of writes in any order must converge to the same
// terminal state (ignoring Time, which tracks arrival order).
func TestMergeSamples_OrderIndependent(t *testing.T) {
	now := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
	writes := []Sample{
		{Cell: "c23nb62w", Time: now, RSSI: f(-90), Repeaters: []string{"r3"}},
		{Cell: "c23nb62w", Time: now, RSSI: f(-60), SNR: f(-2), Observed: true},
		{Cell: "c23nb62w", Time: now, SNR: f(8), Repeaters: []string{"r1", "r3"}},
		{Cell: "c23nb62w", Time: now},
	}

	permutations := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	var states []Sample
	for _, perm := range permutations {
		var acc *Sample
		for _, i := range perm {
			next := MergeSamples(acc, writes[i])
			acc = &next
		}
		states = append(states, *acc)
	}

	for i := 1; i < len(states); i++ {
		require.Empty(t, cmp.Diff(states[0], states[i]),
			"permutation %d diverged from reference", i)
	}
	assert.Equal(t, f(-60), states[0].RSSI)
	assert.Equal(t, f(8), states[0].SNR)
	assert.True(t, states[0].Observed)
	assert.Equal(t, []string{"r1", "r3"}, states[0].Repeaters)
}

func TestNormalizeRepeaterPath(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"single", "R1", []string{"r1"}},
		{"mixed case and spaces", " R1 , r2,R1 ", []string{"r1", "r2"}},
		{"empty segments dropped", "r1,,r2,", []string{"r1", "r2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeRepeaterPath(tc.in))
		})
	}
}
