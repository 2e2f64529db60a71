package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ava-labs/avalanche-window/pkg/clickhouse"
	"github.com/ava-labs/avalanche-window/pkg/data/clickhouse/blocksource"
	"github.com/ava-labs/avalanche-window/pkg/kafka"
)

const (
	// minBlockBufferSize is the minimum valid value for BlockBufferSize (uint8: 0)
	minBlockBufferSize = 0
	// maxBlockBufferSize is the maximum valid value for BlockBufferSize (uint8: 255)
	maxBlockBufferSize = 255
)

var (
	ErrInvalidCapacity = errors.New("capacity must be at least 1")
	ErrInvalidPageSize = errors.New("page-size must be at least 1")
)

// Config holds the settings shared by every windowctl command
type Config struct {
	// Application settings
	Verbose bool
	LogFile string

	// Window settings
	Capacity int
	Start    int64
	StartSet bool
	PageSize int

	// Metrics settings
	MetricsHost   string
	MetricsPort   int
	Environment   string
	Region        string
	CloudProvider string
}

// MetricsAddr returns the formatted metrics address
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// buildConfig builds a Config from CLI context flags
func buildConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Verbose:       c.Bool("verbose"),
		LogFile:       c.String("log-file"),
		Capacity:      c.Int("capacity"),
		Start:         c.Int64("start"),
		StartSet:      c.IsSet("start"),
		PageSize:      c.Int("page-size"),
		MetricsHost:   c.String("metrics-host"),
		MetricsPort:   c.Int("metrics-port"),
		Environment:   c.String("environment"),
		Region:        c.String("region"),
		CloudProvider: c.String("cloud-provider"),
	}
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCapacity, cfg.Capacity)
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPageSize, cfg.PageSize)
	}
	return cfg, nil
}

// buildBlockSourceConfig builds a blocksource.Config from CLI context flags
func buildBlockSourceConfig(c *cli.Context) blocksource.Config {
	return blocksource.Config{
		Database:     c.String("clickhouse-database"),
		Table:        c.String("blocks-table"),
		BlockchainID: c.String("bc-id"),
	}
}

// buildClickHouseConfig builds a clickhouse.Config from CLI context flags
func buildClickHouseConfig(c *cli.Context) (clickhouse.Config, error) {
	// Handle hosts - StringSliceFlag returns []string, but we need to handle comma-separated values
	hosts := c.StringSlice("clickhouse-hosts")
	if len(hosts) == 1 && strings.Contains(hosts[0], ",") {
		hosts = strings.Split(hosts[0], ",")
		for i, host := range hosts {
			hosts[i] = strings.TrimSpace(host)
		}
	}

	blockBufferSize := c.Int("clickhouse-block-buffer-size")
	if err := validateBlockBufferSize(blockBufferSize); err != nil {
		return clickhouse.Config{}, err
	}

	return clickhouse.Config{
		Hosts:                hosts,
		Database:             c.String("clickhouse-database"),
		Username:             c.String("clickhouse-username"),
		Password:             c.String("clickhouse-password"),
		Debug:                c.Bool("clickhouse-debug"),
		Secure:               c.Bool("clickhouse-secure"),
		InsecureSkipVerify:   c.Bool("clickhouse-insecure-skip-verify"),
		MaxExecutionTime:     c.Int("clickhouse-max-execution-time"),
		DialTimeout:          c.Int("clickhouse-dial-timeout"),
		MaxOpenConns:         c.Int("clickhouse-max-open-conns"),
		MaxIdleConns:         c.Int("clickhouse-max-idle-conns"),
		ConnMaxLifetime:      c.Int("clickhouse-conn-max-lifetime"),
		BlockBufferSize:      blockBufferSize,
		MaxBlockSize:         c.Int("clickhouse-max-block-size"),
		MaxCompressionBuffer: c.Int("clickhouse-max-compression-buffer"),
		ClientName:           c.String("clickhouse-client-name"),
		ClientVersion:        c.String("clickhouse-client-version"),
	}, nil
}

// validateBlockBufferSize validates that the block buffer size is within uint8 range (0-255)
func validateBlockBufferSize(size int) error {
	if size < minBlockBufferSize || size > maxBlockBufferSize {
		return fmt.Errorf(
			"clickhouse-block-buffer-size must be between %d and %d, got %d",
			minBlockBufferSize, maxBlockBufferSize, size,
		)
	}
	return nil
}

// buildKafkaConfig builds a kafka.SourceConfig from CLI context flags
func buildKafkaConfig(c *cli.Context) kafka.SourceConfig {
	readTimeout := c.Duration("kafka-read-timeout")
	watermarkTimeout := c.Duration("kafka-watermark-timeout")
	sessionTimeout := c.Duration("kafka-session-timeout")

	return kafka.SourceConfig{
		Topic:            c.String("kafka-topic"),
		Partition:        int32(c.Int("kafka-partition")), //nolint:gosec // partition numbers fit in int32
		BootstrapServers: c.String("kafka-brokers"),
		GroupID:          c.String("kafka-group-id"),
		ReadTimeout:      &readTimeout,
		WatermarkTimeout: &watermarkTimeout,
		SessionTimeout:   &sessionTimeout,
		EnableLogs:       c.Bool("kafka-enable-logs"),
		SASL: kafka.SASLConfig{
			Username:         c.String("kafka-sasl-username"),
			Password:         c.String("kafka-sasl-password"),
			Mechanism:        c.String("kafka-sasl-mechanism"),
			SecurityProtocol: c.String("kafka-security-protocol"),
		},
	}
}
