package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/radiowatch/coverage-map/internal/domain"
)

// Writer produces observation messages to a topic. It is used by the seeding
// tool and the integration tests; the service itself only consumes.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes and publishes observations in a single
// WriteMessages call.
func (w *Writer) PublishBatch(ctx context.Context, observations []domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(observations))
	for i := range observations {
		msg, err := serializeToMessage(observations[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message keyed by
// its fine geocell so per-cell ordering is preserved across partitions.
func serializeToMessage(obs domain.Observation) (kafkago.Message, error) {
	cell, err := domain.FineCell(obs.Lat, obs.Lon)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	data, err := json.Marshal(map[string]any{
		"lat":           obs.Lat,
		"lon":           obs.Lon,
		"rssi":          obs.RSSI,
		"snr":           obs.SNR,
		"observed":      obs.Observed,
		"repeater_path": obs.RepeaterPath,
		"sender":        obs.Sender,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(cell),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "published_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
