package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	cKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/ava-labs/avalanche-window/pkg/metrics"
	"github.com/ava-labs/avalanche-window/pkg/slidingwindow"
)

// SourceName labels partition source metrics.
const SourceName = "kafka"

var (
	ErrOffsetOutOfRange = errors.New("offset below the partition low watermark")
	ErrOffsetGap        = errors.New("partition skipped an offset")
	ErrIncompleteRead   = errors.New("read timed out before reaching the range end")
)

// PartitionReader is the subset of *kafka.Consumer a PartitionSource needs.
type PartitionReader interface {
	Assign(partitions []cKafka.TopicPartition) error
	ReadMessage(timeout time.Duration) (*cKafka.Message, error)
	QueryWatermarkOffsets(topic string, partition int32, timeoutMs int) (low, high int64, err error)
}

var _ PartitionReader = (*cKafka.Consumer)(nil)

// Record is one message of the partition.
type Record struct {
	Topic     string    `json:"topic"`
	Partition int32     `json:"partition"`
	Offset    int64     `json:"offset"`
	Key       string    `json:"key,omitempty"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// LogicalIndex returns the record's offset.
func (r Record) LogicalIndex() int64 {
	return r.Offset
}

var _ slidingwindow.Source[Record] = (*PartitionSource)(nil)

// PartitionSource serves the records of one topic partition by offset. Reads
// are bounded by the partition's watermarks at the time of the call.
type PartitionSource struct {
	reader  PartitionReader
	cfg     SourceConfig
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewPartitionSource(
	reader PartitionReader,
	cfg SourceConfig,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) *PartitionSource {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PartitionSource{
		reader:  reader,
		cfg:     cfg.WithDefaults(),
		log:     log,
		metrics: m,
	}
}

// Watermarks returns the partition's low (oldest retained) and high (next to
// be written) offsets.
func (s *PartitionSource) Watermarks(ctx context.Context) (low, high int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	low, high, err = s.reader.QueryWatermarkOffsets(
		s.cfg.Topic,
		s.cfg.Partition,
		int(s.cfg.WatermarkTimeout.Milliseconds()),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query watermarks for %s[%d]: %w", s.cfg.Topic, s.cfg.Partition, err)
	}
	return low, high, nil
}

// FetchForward returns up to count records starting at offset from.
func (s *PartitionSource) FetchForward(ctx context.Context, from int64, count int) ([]Record, error) {
	if count <= 0 {
		return nil, nil
	}
	low, high, err := s.Watermarks(ctx)
	if err != nil {
		return nil, err
	}
	if from < low {
		return nil, fmt.Errorf("%w: offset %d, low watermark %d", ErrOffsetOutOfRange, from, low)
	}
	return s.read(ctx, from, min(from+int64(count), high), true)
}

// FetchBackward returns up to count records ending just before offset from,
// in ascending order. A read timeout fails the fetch with ErrIncompleteRead,
// since the records read so far are not adjacent to from.
func (s *PartitionSource) FetchBackward(ctx context.Context, from int64, count int) ([]Record, error) {
	if count <= 0 {
		return nil, nil
	}
	low, high, err := s.Watermarks(ctx)
	if err != nil {
		return nil, err
	}
	if from > high {
		// Offsets between high and from do not exist yet.
		return nil, nil
	}
	return s.read(ctx, max(low, from-int64(count)), from, false)
}

// read returns the records in [lo, hi). A read timeout ends the read early
// when partial is set and fails it with ErrIncompleteRead otherwise.
func (s *PartitionSource) read(ctx context.Context, lo, hi int64, partial bool) (out []Record, err error) {
	if lo >= hi {
		return nil, nil
	}
	began := time.Now()
	defer func() {
		s.metrics.RecordSourceQuery(SourceName, err, time.Since(began).Seconds())
	}()

	topic := s.cfg.Topic
	if err := s.reader.Assign([]cKafka.TopicPartition{{
		Topic:     &topic,
		Partition: s.cfg.Partition,
		Offset:    cKafka.Offset(lo),
	}}); err != nil {
		return nil, fmt.Errorf("failed to assign %s[%d] at offset %d: %w", topic, s.cfg.Partition, lo, err)
	}

	out = make([]Record, 0, hi-lo)
	for next := lo; next < hi; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := s.reader.ReadMessage(*s.cfg.ReadTimeout)
		if err != nil {
			var kErr cKafka.Error
			if errors.As(err, &kErr) && kErr.IsTimeout() {
				if !partial {
					return nil, fmt.Errorf("%w: %s[%d] [%d, %d) stopped at %d",
						ErrIncompleteRead, topic, s.cfg.Partition, lo, hi, next)
				}
				s.log.Warnw("read timed out, returning partial range",
					"topic", topic,
					"partition", s.cfg.Partition,
					"lo", lo,
					"hi", hi,
					"next", next,
				)
				break
			}
			return nil, fmt.Errorf("failed to read %s[%d] at offset %d: %w", topic, s.cfg.Partition, next, err)
		}

		offset := int64(msg.TopicPartition.Offset)
		if msg.TopicPartition.Partition != s.cfg.Partition || offset < next {
			// Left over from an earlier assignment.
			s.log.Debugw("skipping stale message",
				"partition", msg.TopicPartition.Partition,
				"offset", offset,
				"next", next,
			)
			continue
		}
		if offset > next {
			s.metrics.IncSourceGaps(SourceName)
			return nil, fmt.Errorf("%w: want %d, got %d", ErrOffsetGap, next, offset)
		}

		out = append(out, toRecord(msg))
		next++
	}

	s.log.Debugw("read partition range",
		"topic", topic,
		"partition", s.cfg.Partition,
		"lo", lo,
		"hi", hi,
		"records", len(out),
	)
	return out, nil
}

func toRecord(msg *cKafka.Message) Record {
	r := Record{
		Partition: msg.TopicPartition.Partition,
		Offset:    int64(msg.TopicPartition.Offset),
		Key:       string(msg.Key),
		Value:     string(msg.Value),
		Timestamp: msg.Timestamp,
	}
	if msg.TopicPartition.Topic != nil {
		r.Topic = *msg.TopicPartition.Topic
	}
	return r
}
