package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawObservation(t *testing.T) {
	raw := RawObservation{
		Value: []byte(`{"lat":47.6205,"lon":-122.3493,"rssi":-74.5,"observed":true,"repeater_path":"WIDE1-1,Relay","sender":"KD7ABC"}`),
	}

	obs, err := ParseRawObservation(raw)
	require.NoError(t, err)

	assert.Equal(t, 47.6205, obs.Lat)
	assert.Equal(t, -122.3493, obs.Lon)
	require.NotNil(t, obs.RSSI)
	assert.Equal(t, -74.5, *obs.RSSI)
	assert.Nil(t, obs.SNR)
	assert.True(t, obs.Observed)
	assert.Equal(t, "WIDE1-1,Relay", obs.RepeaterPath)
	assert.Equal(t, "KD7ABC", obs.Sender)
}

func TestParseRawObservation_Malformed(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{name: "invalid json", value: `{"lat":`},
		{name: "missing lat", value: `{"lon":-122.3}`},
		{name: "missing lon", value: `{"lat":47.6}`},
		{name: "empty body", value: ``},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRawObservation(RawObservation{Value: []byte(tc.value)})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestParseRawObservation_ZeroCoordinatesAreValid(t *testing.T) {
	obs, err := ParseRawObservation(RawObservation{Value: []byte(`{"lat":0,"lon":0}`)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, obs.Lat)
	assert.Equal(t, 0.0, obs.Lon)
}
