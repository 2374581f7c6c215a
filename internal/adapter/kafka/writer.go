package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// RecordStore is the store being decorated.
type RecordStore interface {
	Put(ctx context.Context, rec domain.EarthquakeRecord) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a Kafka producer for topic. Messages with the same key
// always land on the same partition, so a compacted topic keeps the latest
// version of each record.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// PublishingStore saves records to the wrapped store and then publishes each
// saved record to Kafka.
type PublishingStore struct {
	next    RecordStore
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublishingStore wraps next so that every successful Put is also
// published through w.
func NewPublishingStore(next RecordStore, w messageWriter, logger *slog.Logger, metrics *observability.Metrics) *PublishingStore {
	return &PublishingStore{next: next, writer: w, logger: logger, metrics: metrics}
}

// Put stores rec and publishes it. A publish failure is logged and counted
// but does not fail the Put; the record is already saved.
func (s *PublishingStore) Put(ctx context.Context, rec domain.EarthquakeRecord) error {
	if err := s.next.Put(ctx, rec); err != nil {
		return err
	}

	msg, err := serializeToMessage(rec)
	if err == nil {
		err = s.writer.WriteMessages(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("publish record failed", "record_id", rec.ID, "error", err)
		s.metrics.PublishErrors.Inc()
	}
	return nil
}

// Close flushes and closes the Kafka writer.
func (s *PublishingStore) Close() error {
	return s.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message keyed by its ID.
func serializeToMessage(rec domain.EarthquakeRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize earthquake record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "magnitude", Value: []byte(strconv.FormatFloat(rec.Magnitude, 'f', -1, 64))},
			{Key: "scraped_at", Value: []byte(rec.ScrapedAt.Format(time.RFC3339))},
		},
	}, nil
}
