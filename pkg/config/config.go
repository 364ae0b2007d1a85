package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the archiver worker.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Feed    FeedConfig
	Archive ArchiveConfig
	Storage StorageConfig
	Kafka   KafkaConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"geostream-archiver"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

// FeedConfig describes the upstream streaming subscription. The four
// credential values are opaque to the worker and forwarded as-is.
type FeedConfig struct {
	StreamURL         string        `env:"FEED_STREAM_URL" envDefault:"https://stream.example.com/1.1/statuses/filter.json"`
	ConsumerKey       string        `env:"FEED_CONSUMER_KEY"`
	ConsumerSecret    string        `env:"FEED_CONSUMER_SECRET"`
	AccessToken       string        `env:"FEED_ACCESS_TOKEN"`
	AccessTokenSecret string        `env:"FEED_ACCESS_TOKEN_SECRET"`
	BoundingBox       []float64     `env:"FEED_BOUNDING_BOX" envSeparator:"," envDefault:"-125.0,24.94,-66.93,49.59"`
	ReconnectBackoff  time.Duration `env:"FEED_RECONNECT_BACKOFF" envDefault:"1s"`
	ReconnectMax      time.Duration `env:"FEED_RECONNECT_MAX_BACKOFF" envDefault:"2m"`
	ReconnectAttempts int           `env:"FEED_MAX_RECONNECT_ATTEMPTS" envDefault:"0"`
}

// ArchiveConfig controls staging and upload behavior. KeyPrefix defaults to
// StagingDir so remote keys mirror local staging paths.
type ArchiveConfig struct {
	StagingDir      string        `env:"ARCHIVE_STAGING_DIR" envDefault:"staged_events"`
	Container       string        `env:"ARCHIVE_CONTAINER" envDefault:"earthlab-geolocated-tweets"`
	KeyPrefix       string        `env:"ARCHIVE_KEY_PREFIX"`
	InterEventDelay time.Duration `env:"ARCHIVE_INTER_EVENT_DELAY" envDefault:"5s"`
	UploadTimeout   time.Duration `env:"ARCHIVE_UPLOAD_TIMEOUT" envDefault:"30s"`
	SweepOnStart    bool          `env:"ARCHIVE_SWEEP_ON_START" envDefault:"true"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

// KafkaConfig configures the optional post-archive notification topic.
// Notifications are disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:","`
	NotifyTopic      string        `env:"KAFKA_NOTIFY_TOPIC" envDefault:"geostream.archived"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=geostream"`
}

// Load parses environment variables into Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Archive.KeyPrefix == "" {
		cfg.Archive.KeyPrefix = cfg.Archive.StagingDir
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Feed.BoundingBox) != 4 {
		return fmt.Errorf("FEED_BOUNDING_BOX must contain exactly 4 values (west,south,east,north), got %d", len(c.Feed.BoundingBox))
	}
	west, south, east, north := c.Feed.BoundingBox[0], c.Feed.BoundingBox[1], c.Feed.BoundingBox[2], c.Feed.BoundingBox[3]
	if west >= east || south >= north {
		return fmt.Errorf("FEED_BOUNDING_BOX is degenerate: west=%v south=%v east=%v north=%v", west, south, east, north)
	}
	if c.Archive.StagingDir == "" {
		return fmt.Errorf("ARCHIVE_STAGING_DIR must not be empty")
	}
	if c.Archive.Container == "" {
		return fmt.Errorf("ARCHIVE_CONTAINER must not be empty")
	}
	if c.Archive.InterEventDelay < 0 {
		return fmt.Errorf("ARCHIVE_INTER_EVENT_DELAY must not be negative")
	}
	return nil
}
