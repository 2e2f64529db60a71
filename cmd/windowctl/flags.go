package main

import (
	"github.com/urfave/cli/v2"

	"github.com/ava-labs/avalanche-window/pkg/kafka"
	"github.com/ava-labs/avalanche-window/pkg/slidingwindow"
)

// commonFlags returns the flags shared by every source command
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "Write logs to this file instead of stderr",
			EnvVars: []string{"LOG_FILE"},
			Value:   "windowctl.log",
		},
		&cli.IntFlag{
			Name:    "capacity",
			Aliases: []string{"c"},
			Usage:   "The maximum number of items held in the window",
			EnvVars: []string{"WINDOW_CAPACITY"},
			Value:   slidingwindow.DefaultCapacity,
		},
		&cli.Int64Flag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "The logical index the window starts at",
			EnvVars: []string{"WINDOW_START"},
		},
		&cli.IntFlag{
			Name:    "page-size",
			Aliases: []string{"n"},
			Usage:   "The number of items fetched by next and prev without an argument",
			EnvVars: []string{"PAGE_SIZE"},
			Value:   10,
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "Host for Prometheus metrics server (empty for all interfaces)",
			EnvVars: []string{"METRICS_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Aliases: []string{"m"},
			Usage:   "Port for Prometheus metrics server",
			EnvVars: []string{"METRICS_PORT"},
			Value:   9090,
		},
		&cli.StringFlag{
			Name:    "environment",
			Aliases: []string{"E"},
			Usage:   "Deployment environment for metrics labels (e.g., 'production', 'staging')",
			EnvVars: []string{"ENVIRONMENT"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"R"},
			Usage:   "Cloud region for metrics labels (e.g., 'us-east-1')",
			EnvVars: []string{"REGION"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "cloud-provider",
			Aliases: []string{"P"},
			Usage:   "Cloud provider for metrics labels (e.g., 'aws', 'oci', 'gcp')",
			EnvVars: []string{"CLOUD_PROVIDER"},
			Value:   "",
		},
	}
}

// blocksFlags returns all CLI flags for the blocks command
func blocksFlags() []cli.Flag {
	flags := commonFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:     "bc-id",
			Usage:    "The blockchain ID whose blocks are paged through",
			EnvVars:  []string{"BLOCKCHAIN_ID"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "blocks-table",
			Aliases: []string{"t"},
			Usage:   "The ClickHouse table holding raw blocks",
			EnvVars: []string{"BLOCKS_TABLE"},
			Value:   "raw_blocks",
		},
	)
	return append(flags, clickhouseFlags()...)
}

// clickhouseFlags returns the ClickHouse connection flags
func clickhouseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "clickhouse-hosts",
			Usage:   "ClickHouse server addresses (comma-separated)",
			EnvVars: []string{"CLICKHOUSE_HOSTS"},
			Value:   cli.NewStringSlice("localhost:9000"),
		},
		&cli.StringFlag{
			Name:    "clickhouse-database",
			Usage:   "ClickHouse database name",
			EnvVars: []string{"CLICKHOUSE_DATABASE"},
			Value:   "default",
		},
		&cli.StringFlag{
			Name:    "clickhouse-username",
			Usage:   "ClickHouse username",
			EnvVars: []string{"CLICKHOUSE_USERNAME"},
			Value:   "default",
		},
		&cli.StringFlag{
			Name:    "clickhouse-password",
			Usage:   "ClickHouse password",
			EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			Value:   "",
		},
		&cli.BoolFlag{
			Name:    "clickhouse-debug",
			Usage:   "Enable ClickHouse debug logging",
			EnvVars: []string{"CLICKHOUSE_DEBUG"},
		},
		&cli.BoolFlag{
			Name:    "clickhouse-secure",
			Usage:   "Connect to ClickHouse over TLS",
			EnvVars: []string{"CLICKHOUSE_SECURE"},
		},
		&cli.BoolFlag{
			Name:    "clickhouse-insecure-skip-verify",
			Usage:   "Skip TLS certificate verification",
			EnvVars: []string{"CLICKHOUSE_INSECURE_SKIP_VERIFY"},
			Value:   true,
		},
		&cli.IntFlag{
			Name:    "clickhouse-max-execution-time",
			Usage:   "Maximum query execution time in seconds",
			EnvVars: []string{"CLICKHOUSE_MAX_EXECUTION_TIME"},
			Value:   60,
		},
		&cli.IntFlag{
			Name:    "clickhouse-dial-timeout",
			Usage:   "Dial timeout in seconds",
			EnvVars: []string{"CLICKHOUSE_DIAL_TIMEOUT"},
			Value:   30,
		},
		&cli.IntFlag{
			Name:    "clickhouse-max-open-conns",
			Usage:   "Maximum number of open connections",
			EnvVars: []string{"CLICKHOUSE_MAX_OPEN_CONNS"},
			Value:   5,
		},
		&cli.IntFlag{
			Name:    "clickhouse-max-idle-conns",
			Usage:   "Maximum number of idle connections",
			EnvVars: []string{"CLICKHOUSE_MAX_IDLE_CONNS"},
			Value:   5,
		},
		&cli.IntFlag{
			Name:    "clickhouse-conn-max-lifetime",
			Usage:   "Maximum connection lifetime in minutes",
			EnvVars: []string{"CLICKHOUSE_CONN_MAX_LIFETIME"},
			Value:   10,
		},
		&cli.IntFlag{
			Name:    "clickhouse-block-buffer-size",
			Usage:   "Block buffer size",
			EnvVars: []string{"CLICKHOUSE_BLOCK_BUFFER_SIZE"},
			Value:   10,
		},
		&cli.IntFlag{
			Name:    "clickhouse-max-block-size",
			Usage:   "Recommended maximum number of rows in a single block",
			EnvVars: []string{"CLICKHOUSE_MAX_BLOCK_SIZE"},
			Value:   1000,
		},
		&cli.IntFlag{
			Name:    "clickhouse-max-compression-buffer",
			Usage:   "Maximum compression buffer size in bytes",
			EnvVars: []string{"CLICKHOUSE_MAX_COMPRESSION_BUFFER"},
			Value:   10240,
		},
		&cli.StringFlag{
			Name:    "clickhouse-client-name",
			Usage:   "Client name reported in ClickHouse ClientInfo",
			EnvVars: []string{"CLICKHOUSE_CLIENT_NAME"},
			Value:   "windowctl",
		},
		&cli.StringFlag{
			Name:    "clickhouse-client-version",
			Usage:   "Client version reported in ClickHouse ClientInfo",
			EnvVars: []string{"CLICKHOUSE_CLIENT_VERSION"},
			Value:   "1.0",
		},
	}
}

// kafkaFlags returns all CLI flags for the kafka command
func kafkaFlags() []cli.Flag {
	flags := commonFlags()
	return append(flags,
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "The Kafka brokers to use (comma-separated list)",
			EnvVars: []string{"KAFKA_BROKERS"},
			Value:   "localhost:9092",
		},
		&cli.StringFlag{
			Name:     "kafka-topic",
			Aliases:  []string{"t"},
			Usage:    "The Kafka topic to page through",
			EnvVars:  []string{"KAFKA_TOPIC"},
			Required: true,
		},
		&cli.IntFlag{
			Name:    "kafka-partition",
			Usage:   "The partition of the topic to page through",
			EnvVars: []string{"KAFKA_PARTITION"},
			Value:   0,
		},
		&cli.StringFlag{
			Name:    "kafka-group-id",
			Usage:   "The Kafka consumer group ID (offsets are never committed)",
			EnvVars: []string{"KAFKA_GROUP_ID"},
			Value:   "windowctl",
		},
		&cli.DurationFlag{
			Name:    "kafka-read-timeout",
			Usage:   "How long to wait for each message before ending a read early",
			EnvVars: []string{"KAFKA_READ_TIMEOUT"},
			Value:   kafka.DefaultReadTimeout,
		},
		&cli.DurationFlag{
			Name:    "kafka-watermark-timeout",
			Usage:   "Timeout for partition watermark queries",
			EnvVars: []string{"KAFKA_WATERMARK_TIMEOUT"},
			Value:   kafka.DefaultWatermarkTimeout,
		},
		&cli.DurationFlag{
			Name:    "kafka-session-timeout",
			Usage:   "Session timeout for the Kafka consumer",
			EnvVars: []string{"KAFKA_SESSION_TIMEOUT"},
			Value:   kafka.DefaultSessionTimeout,
		},
		&cli.BoolFlag{
			Name:    "kafka-enable-logs",
			Aliases: []string{"l"},
			Usage:   "Enable Kafka client logs",
			EnvVars: []string{"KAFKA_ENABLE_LOGS"},
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-username",
			Usage:   "SASL username for Kafka authentication",
			EnvVars: []string{"KAFKA_SASL_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-password",
			Usage:   "SASL password for Kafka authentication",
			EnvVars: []string{"KAFKA_SASL_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-mechanism",
			Usage:   "SASL mechanism (SCRAM-SHA-256, SCRAM-SHA-512, or PLAIN)",
			EnvVars: []string{"KAFKA_SASL_MECHANISM"},
			Value:   "SCRAM-SHA-512",
		},
		&cli.StringFlag{
			Name:    "kafka-security-protocol",
			Usage:   "Security protocol (SASL_SSL or SASL_PLAINTEXT)",
			EnvVars: []string{"KAFKA_SECURITY_PROTOCOL"},
			Value:   "SASL_SSL",
		},
	)
}
