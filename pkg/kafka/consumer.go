package kafka

import (
	"context"
	"fmt"

	cKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// NewConsumer creates a consumer suited to a PartitionSource: partitions are
// assigned manually and offsets are never committed.
func NewConsumer(cfg SourceConfig) (*cKafka.Consumer, error) {
	cfg = cfg.WithDefaults()
	consumerConfig := cKafka.ConfigMap{
		"bootstrap.servers":        cfg.BootstrapServers,
		"group.id":                 cfg.GroupID,
		"auto.offset.reset":        "earliest",
		"enable.auto.commit":       false,
		"enable.auto.offset.store": false,
		"session.timeout.ms":       int(cfg.SessionTimeout.Milliseconds()),
		"go.logs.channel.enable":   cfg.EnableLogs,
	}
	cfg.SASL.ApplyToConfigMap(&consumerConfig)

	consumer, err := cKafka.NewConsumer(&consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return consumer, nil
}

// LogSource is satisfied by clients created with go.logs.channel.enable.
type LogSource interface {
	Logs() chan cKafka.LogEvent
}

// PrintLogs forwards librdkafka log events to log until ctx is done or the
// channel is closed.
func PrintLogs(ctx context.Context, src LogSource, log *zap.SugaredLogger) {
	for {
		select {
		case <-ctx.Done():
			log.Info("stopping kafka logs printing for consumer")
			return
		case ev, ok := <-src.Logs():
			if !ok {
				log.Info("kafka logs printing for consumer, event channel closed")
				return
			}
			log.Debugf("consumer level: %d tag: %s message: %s ", ev.Level, ev.Tag, ev.Message)
		}
	}
}
