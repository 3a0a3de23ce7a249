package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiowatch/coverage-map/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestSerializeToMessage(t *testing.T) {
	obs := domain.Observation{
		Lat:          47.6205,
		Lon:          -122.3493,
		RSSI:         f(-74.5),
		Observed:     true,
		RepeaterPath: "WIDE1-1,Relay",
		Sender:       "KD7ABC",
	}

	msg, err := serializeToMessage(obs)
	require.NoError(t, err)

	cell, err := domain.FineCell(obs.Lat, obs.Lon)
	require.NoError(t, err)
	assert.Equal(t, cell, string(msg.Key), "messages are keyed by fine cell")

	parsed, err := domain.ParseRawObservation(domain.RawObservation{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, obs, parsed, "published shape matches what the ingest loop decodes")

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "published_at", msg.Headers[0].Key)
	_, err = time.Parse(time.RFC3339, string(msg.Headers[0].Value))
	assert.NoError(t, err)
}

func TestSerializeToMessage_InvalidLocation(t *testing.T) {
	_, err := serializeToMessage(domain.Observation{Lat: 95, Lon: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidLocation)
}

func TestMapMessage(t *testing.T) {
	r := &Reader{}
	now := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)

	raw := r.mapMessage(kafkago.Message{
		Key:       []byte("c23nb62w"),
		Value:     []byte(`{"lat":47.6,"lon":-122.3}`),
		Topic:     "observations",
		Partition: 2,
		Offset:    41,
		Time:      now,
	})

	assert.Equal(t, "c23nb62w", string(raw.Key))
	assert.Equal(t, "observations", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(41), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.NotNil(t, raw.Commit)
}
