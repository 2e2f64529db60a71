package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/avalanche-window/pkg/clickhouse"
	"github.com/ava-labs/avalanche-window/pkg/data/clickhouse/blocksource"
	"github.com/ava-labs/avalanche-window/pkg/kafka"
	"github.com/ava-labs/avalanche-window/pkg/metrics"
	"github.com/ava-labs/avalanche-window/pkg/slidingwindow"
	"github.com/ava-labs/avalanche-window/pkg/utils"
)

const metricsShutdownTimeout = 5 * time.Second

func runBlocks(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}
	chCfg, err := buildClickHouseConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build ClickHouse config: %w", err)
	}
	srcCfg := buildBlockSourceConfig(c)

	sugar, err := utils.NewSugaredLogger(cfg.Verbose, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	logConfig(sugar, cfg, "blocks",
		"bcID", srcCfg.BlockchainID,
		"blocksTable", srcCfg.Table,
		"clickhouseHosts", chCfg.Hosts,
		"clickhouseDatabase", chCfg.Database,
	)

	registry, m, err := newMetrics(cfg, "blocks")
	if err != nil {
		return err
	}

	chClient, err := clickhouse.New(chCfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to create ClickHouse client: %w", err)
	}
	defer chClient.Close()

	src, err := blocksource.NewSource(chClient, srcCfg, sugar, m)
	if err != nil {
		return fmt.Errorf("failed to create block source: %w", err)
	}
	win, err := slidingwindow.New[blocksource.Block](src, windowOptions(cfg, cfg.Start, sugar, m)...)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	return serve(cfg, sugar, registry, win, chClient.Ping)
}

func runKafka(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}
	srcCfg := buildKafkaConfig(c)

	sugar, err := utils.NewSugaredLogger(cfg.Verbose, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	logConfig(sugar, cfg, "kafka",
		"kafkaBrokers", srcCfg.BootstrapServers,
		"kafkaTopic", srcCfg.Topic,
		"kafkaPartition", srcCfg.Partition,
		"kafkaReadTimeout", *srcCfg.ReadTimeout,
		"kafkaSASL", srcCfg.SASL.Enabled(),
	)

	registry, m, err := newMetrics(cfg, "kafka")
	if err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(srcCfg)
	if err != nil {
		return err
	}
	defer consumer.Close()

	src := kafka.NewPartitionSource(consumer, srcCfg, sugar, m)

	start := cfg.Start
	if !cfg.StartSet {
		low, high, err := src.Watermarks(c.Context)
		if err != nil {
			return err
		}
		start = low
		sugar.Infow("start offset not specified, starting at the low watermark",
			"low", low,
			"high", high,
		)
	}
	win, err := slidingwindow.New[kafka.Record](src, windowOptions(cfg, start, sugar, m)...)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	health := func(ctx context.Context) error {
		_, _, err := src.Watermarks(ctx)
		return err
	}
	var background []func(context.Context) error
	if srcCfg.EnableLogs {
		background = append(background, func(ctx context.Context) error {
			kafka.PrintLogs(ctx, consumer, sugar)
			return nil
		})
	}
	return serve(cfg, sugar, registry, win, health, background...)
}

func logConfig(sugar *zap.SugaredLogger, cfg *Config, source string, extra ...any) {
	kv := []any{
		"source", source,
		"verbose", cfg.Verbose,
		"logFile", cfg.LogFile,
		"capacity", cfg.Capacity,
		"start", cfg.Start,
		"pageSize", cfg.PageSize,
		"metricsHost", cfg.MetricsHost,
		"metricsPort", cfg.MetricsPort,
		"environment", cfg.Environment,
		"region", cfg.Region,
		"cloudProvider", cfg.CloudProvider,
	}
	sugar.Infow("config", append(kv, extra...)...)
}

// newMetrics initializes Prometheus metrics with labels for multi-instance filtering
func newMetrics(cfg *Config, window string) (*prometheus.Registry, *metrics.Metrics, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		Window:        window,
		Environment:   cfg.Environment,
		Region:        cfg.Region,
		CloudProvider: cfg.CloudProvider,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	return registry, m, nil
}

func windowOptions(cfg *Config, start int64, sugar *zap.SugaredLogger, m *metrics.Metrics) []slidingwindow.Option {
	return []slidingwindow.Option{
		slidingwindow.WithStart(start),
		slidingwindow.WithCapacity(cfg.Capacity),
		slidingwindow.WithLogger(sugar),
		slidingwindow.WithMetrics(m),
	}
}

// serve runs the interactive session alongside the metrics server until the
// session ends or a signal arrives.
func serve[T any](
	cfg *Config,
	sugar *zap.SugaredLogger,
	registry *prometheus.Registry,
	win *slidingwindow.Window[T],
	check metrics.HealthCheck,
	background ...func(context.Context) error,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := metrics.NewServer(cfg.MetricsAddr(), registry, check)
	metricsErrCh := metricsServer.Start()
	if cfg.MetricsHost == "" {
		sugar.Infof("metrics server listening on http://0.0.0.0:%d/metrics", cfg.MetricsPort)
	} else {
		sugar.Infof("metrics server listening on http://%s/metrics", cfg.MetricsAddr())
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}

	sess := newSession(win, rl, rl.Stdout(), cfg.PageSize, sugar)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The session ending ends the program.
		defer stop()
		return sess.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return rl.Close()
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-metricsErrCh:
			if err != nil {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		}
	})
	for _, fn := range background {
		g.Go(func() error {
			return fn(gctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		sugar.Infow("exiting due to context cancellation")
		err = nil
	} else if err != nil {
		sugar.Errorw("run failed", "error", err)
	}

	// Gracefully shutdown metrics server
	sugar.Info("shutting down metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("metrics server shutdown error", "error", err)
	}

	sugar.Info("shutdown complete")
	return err
}

// historyFile returns the readline history path, or "" when there is no home directory.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".windowctl_history")
}
