package mesh

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
)

// LogSink logs fragments instead of transmitting them. Useful for dry runs.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(_ context.Context, text string, channel domain.Channel) error {
	s.logger.Info("mesh message (dry run)", "channel", int(channel), "text", text, "bytes", len(text))
	return nil
}
