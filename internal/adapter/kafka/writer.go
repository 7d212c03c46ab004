package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/config"
	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes mesh fragments to a topic consumed by a radio gateway.
// It implements delivery.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// OutboundMessage is the JSON value of each published fragment.
type OutboundMessage struct {
	Channel int       `json:"channel"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Deliver publishes one fragment. Fragments are keyed by channel so a
// gateway sees them in order.
func (w *Writer) Deliver(ctx context.Context, text string, channel domain.Channel) error {
	msg, err := serializeToMessage(OutboundMessage{
		Channel: int(channel),
		Text:    text,
		SentAt:  domain.Now(),
	})
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish mesh message: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an OutboundMessage into a Kafka message.
func serializeToMessage(out OutboundMessage) (kafkago.Message, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize mesh message: %w", err)
	}
	ch := domain.Channel(out.Channel).String()
	return kafkago.Message{
		Key:   []byte(ch),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "channel", Value: []byte(ch)},
			{Key: "sent_at", Value: []byte(out.SentAt.Format(time.RFC3339))},
		},
	}, nil
}
