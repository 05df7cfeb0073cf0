package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// RecordWriter publishes written status records to a changelog topic so
// downstream consumers can follow the store without scanning it.
// It implements pipeline.RecordSink.
type RecordWriter struct {
	writer *kafkago.Writer
	mode   domain.KeyMode
	logger *slog.Logger
}

// NewRecordWriter creates a Kafka producer for the record topic. Messages
// are keyed by the record store key.
func NewRecordWriter(brokers []string, topic string, mode domain.KeyMode, logger *slog.Logger) *RecordWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &RecordWriter{writer: w, mode: mode, logger: logger}
}

// LoadBatch serializes and publishes the records in a single WriteMessages
// call.
func (w *RecordWriter) LoadBatch(ctx context.Context, records []domain.StatusRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], w.mode)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d records to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("records published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *RecordWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StatusRecord into a Kafka message.
func serializeToMessage(rec domain.StatusRecord, mode domain.KeyMode) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize status record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Key(mode)),
		Value: data,
		Time:  rec.Time(),
		Headers: []kafkago.Header{
			{Key: "status_id", Value: []byte(rec.StatusID)},
			{Key: "observed_at", Value: []byte(rec.Time().Format(time.RFC3339))},
		},
	}, nil
}
