package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/eas-mesh-relay/internal/config"
	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes decoder output lines from a Kafka topic, one line per
// message. It implements pipeline.Source. Offsets are committed only after
// the pipeline has finished with a message.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaSourceTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: 0,
		StartOffset:    kafkago.LastOffset,
	})
	return &Reader{reader: r, logger: logger}
}

// Next blocks until a message is available. It returns io.EOF once the
// reader has been closed.
func (r *Reader) Next(ctx context.Context) (domain.RawHeader, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RawHeader{}, fmt.Errorf("fetch message: %w", err)
	}
	raw := mapMessageToRawHeader(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	r.logger.Debug("message received",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
	return raw, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawHeader converts a Kafka message into a RawHeader. The
// message time is used as the receive time when the producer set one.
func mapMessageToRawHeader(msg kafkago.Message) domain.RawHeader {
	receivedAt := msg.Time
	if receivedAt.IsZero() {
		receivedAt = domain.Now()
	}
	return domain.RawHeader{
		Text:       strings.TrimRight(string(msg.Value), "\r\n"),
		Source:     fmt.Sprintf("kafka:%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
		ReceivedAt: receivedAt,
	}
}
