package kafka

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default timeout values for the partition source
const (
	DefaultReadTimeout      = 2 * time.Second
	DefaultWatermarkTimeout = 5 * time.Second
	DefaultSessionTimeout   = 240 * time.Second
)

// SourceConfig holds the configuration for a single-partition source.
type SourceConfig struct {
	Topic            string         `env:"KAFKA_TOPIC"             envDefault:"blocks"`         // Topic to page through
	Partition        int32          `env:"KAFKA_PARTITION"         envDefault:"0"`              // Partition within the topic
	BootstrapServers string         `env:"KAFKA_BOOTSTRAP_SERVERS" envDefault:"localhost:9092"` // Kafka broker addresses
	GroupID          string         `env:"KAFKA_GROUP_ID"          envDefault:"windowctl"`      // Group ID; offsets are never committed
	ReadTimeout      *time.Duration `env:"KAFKA_READ_TIMEOUT"`                                  // Per-message read timeout; a timeout ends a read early
	WatermarkTimeout *time.Duration `env:"KAFKA_WATERMARK_TIMEOUT"`                             // Timeout for watermark queries
	SessionTimeout   *time.Duration `env:"KAFKA_SESSION_TIMEOUT"`                               // Session timeout for the consumer
	EnableLogs       bool           `env:"KAFKA_ENABLE_LOGS"       envDefault:"false"`          // Enable librdkafka client logs
	SASL             SASLConfig
}

// LoadSourceConfig loads Kafka source configuration from environment variables.
func LoadSourceConfig() (SourceConfig, error) {
	var cfg SourceConfig
	if err := env.Parse(&cfg); err != nil {
		return SourceConfig{}, fmt.Errorf("failed to parse kafka source config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// WithDefaults returns a copy of the config with default values filled in for any nil pointer fields.
// This method does not mutate the original config.
func (c SourceConfig) WithDefaults() SourceConfig {
	if c.ReadTimeout == nil {
		timeout := DefaultReadTimeout
		c.ReadTimeout = &timeout
	}
	if c.WatermarkTimeout == nil {
		timeout := DefaultWatermarkTimeout
		c.WatermarkTimeout = &timeout
	}
	if c.SessionTimeout == nil {
		timeout := DefaultSessionTimeout
		c.SessionTimeout = &timeout
	}
	return c
}
