package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/joho/godotenv"
)

// Alert sources.
const (
	SourceStdin = "stdin"
	SourceKafka = "kafka"
)

// Mesh sink backends.
const (
	SinkCLI     = "cli"
	SinkWebhook = "webhook"
	SinkKafka   = "kafka"
	SinkLog     = "log"
)

// RatePlaceholder in DECODER_ARGS is replaced by SAMPLE_RATE.
const RatePlaceholder = "{rate}"

// Config holds all relay settings, populated from environment variables.
type Config struct {
	AlertChannel       domain.Channel
	TestChannel        domain.Channel
	TestChannelEnabled bool
	LocationFilter     []string
	LocationsFile      string

	AlertSource    string
	SampleRate     int
	DecoderCommand string
	DecoderArgs    []string
	DedupeWindow   time.Duration
	DedupeSize     int

	MeshSink           string
	MeshCLIPath        string
	MeshPort           string
	MeshHost           string
	MeshWantAck        bool
	MeshWebhookURL     string
	MeshWebhookTimeout time.Duration

	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	// Delivery tuning.
	SplitMessages   bool
	FragmentBytes   int
	MaxMessageBytes int
	SendInterval    time.Duration
	SendRetries     int
	RetryDelay      time.Duration
	SendTimeout     time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment (and a .env file when
// present), applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LocationFilter: parseList(os.Getenv("LOCATION_FILTER")),
		LocationsFile:  os.Getenv("LOCATIONS_FILE"),

		AlertSource:    strings.ToLower(envOrDefault("ALERT_SOURCE", SourceStdin)),
		DecoderCommand: os.Getenv("DECODER_COMMAND"),
		DecoderArgs:    strings.Fields(os.Getenv("DECODER_ARGS")),

		MeshSink:       strings.ToLower(envOrDefault("MESH_SINK", SinkCLI)),
		MeshCLIPath:    envOrDefault("MESH_CLI_PATH", "meshtastic"),
		MeshPort:       os.Getenv("MESH_PORT"),
		MeshHost:       os.Getenv("MESH_HOST"),
		MeshWebhookURL: os.Getenv("MESH_WEBHOOK_URL"),

		KafkaBrokers:     parseList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "same-headers"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "mesh-outbound"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "eas-mesh-relay"),

		HTTPAddr:  os.Getenv("HTTP_ADDR"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}
	if _, ok := os.LookupEnv("HTTP_ADDR"); !ok {
		cfg.HTTPAddr = ":8080"
	}

	if err := loadChannels(cfg); err != nil {
		return nil, err
	}
	if err := loadNumbers(cfg); err != nil {
		return nil, err
	}
	if err := loadDurations(cfg); err != nil {
		return nil, err
	}
	if err := loadFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ChannelPolicy returns the channel assignment used by the classifier.
func (c *Config) ChannelPolicy() domain.ChannelPolicy {
	return domain.ChannelPolicy{
		Alert:       c.AlertChannel,
		Test:        c.TestChannel,
		TestEnabled: c.TestChannelEnabled,
	}
}

// DecoderArgv returns DECODER_ARGS with the sample rate substituted.
func (c *Config) DecoderArgv() []string {
	rate := strconv.Itoa(c.SampleRate)
	out := make([]string, len(c.DecoderArgs))
	for i, a := range c.DecoderArgs {
		out[i] = strings.ReplaceAll(a, RatePlaceholder, rate)
	}
	return out
}

func loadChannels(cfg *Config) error {
	if v := os.Getenv("ALERT_CHANNEL"); v != "" {
		ch, err := domain.ParseChannel(v)
		if err != nil {
			return fmt.Errorf("invalid ALERT_CHANNEL: %w", err)
		}
		cfg.AlertChannel = ch
	}
	if v := os.Getenv("TEST_CHANNEL"); v != "" {
		ch, err := domain.ParseChannel(v)
		if err != nil {
			return fmt.Errorf("invalid TEST_CHANNEL: %w", err)
		}
		cfg.TestChannel = ch
		cfg.TestChannelEnabled = true
	}
	return nil
}

func loadNumbers(cfg *Config) error {
	var err error
	if cfg.SampleRate, err = positiveInt("SAMPLE_RATE", 48000); err != nil {
		return err
	}
	if cfg.DedupeSize, err = positiveInt("DEDUPE_SIZE", 256); err != nil {
		return err
	}
	if cfg.FragmentBytes, err = positiveInt("FRAGMENT_BYTES", 75); err != nil {
		return err
	}
	if cfg.MaxMessageBytes, err = positiveInt("MAX_MESSAGE_BYTES", 228); err != nil {
		return err
	}

	retries := envOrDefault("SEND_RETRIES", "3")
	n, err := strconv.Atoi(retries)
	if err != nil || n < 0 {
		return errors.New("invalid SEND_RETRIES")
	}
	cfg.SendRetries = n
	return nil
}

func loadDurations(cfg *Config) error {
	var err error
	if cfg.DedupeWindow, err = duration("DEDUPE_WINDOW", "2m", true); err != nil {
		return err
	}
	if cfg.MeshWebhookTimeout, err = duration("MESH_WEBHOOK_TIMEOUT", "10s", false); err != nil {
		return err
	}
	if cfg.SendInterval, err = duration("SEND_INTERVAL", "20s", true); err != nil {
		return err
	}
	if cfg.RetryDelay, err = duration("RETRY_DELAY", "5s", true); err != nil {
		return err
	}
	if cfg.SendTimeout, err = duration("SEND_TIMEOUT", "30s", true); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", "10s", false); err != nil {
		return err
	}
	return nil
}

func loadFlags(cfg *Config) error {
	var err error
	if cfg.MeshWantAck, err = boolean("MESH_WANT_ACK", true); err != nil {
		return err
	}
	if cfg.SplitMessages, err = boolean("SPLIT_MESSAGES", true); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	switch c.AlertSource {
	case SourceStdin:
	case SourceKafka:
		if c.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required when ALERT_SOURCE is kafka")
		}
	default:
		return fmt.Errorf("invalid ALERT_SOURCE %q", c.AlertSource)
	}

	switch c.MeshSink {
	case SinkCLI:
		if c.MeshPort != "" && c.MeshHost != "" {
			return errors.New("MESH_PORT and MESH_HOST are mutually exclusive")
		}
		if c.MeshPort == "" && c.MeshHost == "" {
			return errors.New("MESH_PORT or MESH_HOST is required when MESH_SINK is cli")
		}
	case SinkWebhook:
		if c.MeshWebhookURL == "" {
			return errors.New("MESH_WEBHOOK_URL is required when MESH_SINK is webhook")
		}
	case SinkKafka:
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required when MESH_SINK is kafka")
		}
	case SinkLog:
	default:
		return fmt.Errorf("invalid MESH_SINK %q", c.MeshSink)
	}

	if (c.AlertSource == SourceKafka || c.MeshSink == SinkKafka) && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func duration(key, fallback string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d < 0 || (!allowZero && d == 0) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func boolean(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
