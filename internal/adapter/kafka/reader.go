// Package kafka adapts the source topic to the pipeline's Extractor interface.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/incident-tracker/internal/config"
	"github.com/couchcryptid/incident-tracker/internal/domain"
)

// Reader consumes raw observation messages from the source topic.
// It implements pipeline.Extractor.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger}
}

// Extract blocks until the next message arrives or the context is cancelled.
// Offsets are committed by the caller through RawMessage.Commit, so a message
// that fails at the store is redelivered after a restart.
func (r *Reader) Extract(ctx context.Context) (domain.RawMessage, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RawMessage{}, fmt.Errorf("fetch message: %w", err)
	}
	return mapMessage(msg, func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}), nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into the transport-neutral RawMessage.
func mapMessage(msg kafkago.Message, commit func(ctx context.Context) error) domain.RawMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit:    commit,
	}
}
