package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/eas-mesh-relay/internal/adapter/decoder"
	kafkaadapter "github.com/couchcryptid/eas-mesh-relay/internal/adapter/kafka"
	"github.com/couchcryptid/eas-mesh-relay/internal/adapter/mesh"
	"github.com/couchcryptid/eas-mesh-relay/internal/config"
	"github.com/couchcryptid/eas-mesh-relay/internal/delivery"
	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/couchcryptid/eas-mesh-relay/internal/pipeline"
)

var errNoInput = errors.New("no input available on stdin: pipe decoder output or audio into the relay")

// closingSource is a pipeline.Source that holds resources until closed.
type closingSource interface {
	pipeline.Source
	io.Closer
}

// closingSink is a delivery.Sink that holds resources until closed.
type closingSink interface {
	delivery.Sink
	io.Closer
}

// nopCloser adapts sinks without resources.
type nopCloser struct{ delivery.Sink }

func (nopCloser) Close() error { return nil }

func loadLocations(cfg *config.Config) (*domain.LocationTable, error) {
	if cfg.LocationsFile == "" {
		return domain.LoadBundledLocations()
	}
	f, err := os.Open(cfg.LocationsFile)
	if err != nil {
		return nil, fmt.Errorf("open LOCATIONS_FILE: %w", err)
	}
	defer f.Close()
	return domain.LoadLocations(f)
}

func newSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (closingSource, error) {
	switch cfg.AlertSource {
	case config.SourceKafka:
		logger.Info("reading SAME headers from kafka", "topic", cfg.KafkaSourceTopic, "brokers", cfg.KafkaBrokers)
		return kafkaadapter.NewReader(cfg, logger), nil
	default:
		if decoder.StdinIsTerminal() {
			return nil, errNoInput
		}
		if cfg.DecoderCommand == "" {
			logger.Info("reading decoder output from stdin")
			return decoder.NewSource(os.Stdin, "stdin", logger), nil
		}
		logger.Info("decoding audio from stdin", "sample_rate", cfg.SampleRate)
		return decoder.StartCommand(ctx, cfg.DecoderCommand, cfg.DecoderArgv(), os.Stdin, logger)
	}
}

func newSink(cfg *config.Config, logger *slog.Logger) (closingSink, error) {
	switch cfg.MeshSink {
	case config.SinkWebhook:
		s := mesh.NewWebhookSink(cfg.MeshWebhookURL, cfg.MeshWebhookTimeout, cfg.MeshWantAck)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return nopCloser{s}, nil
	case config.SinkKafka:
		return kafkaadapter.NewWriter(cfg, logger), nil
	case config.SinkLog:
		return nopCloser{mesh.NewLogSink(logger)}, nil
	default:
		s := mesh.NewCLISink(cfg.MeshCLIPath, cfg.MeshPort, cfg.MeshHost, cfg.MeshWantAck)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return nopCloser{s}, nil
	}
}

func engineOptions(cfg *config.Config) delivery.Options {
	return delivery.Options{
		Split:           cfg.SplitMessages,
		FragmentBytes:   cfg.FragmentBytes,
		MaxMessageBytes: cfg.MaxMessageBytes,
		MinInterval:     cfg.SendInterval,
		Retries:         cfg.SendRetries,
		RetryDelay:      cfg.RetryDelay,
		AttemptTimeout:  cfg.SendTimeout,
	}
}
