package blocksource

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ava-labs/avalanche-window/pkg/clickhouse"
	"github.com/ava-labs/avalanche-window/pkg/metrics"
	"github.com/ava-labs/avalanche-window/pkg/slidingwindow"
)

// SourceName labels block source metrics.
const SourceName = "clickhouse"

//go:embed queries/fetch-forward.sql
var fetchForwardQuery string

//go:embed queries/fetch-backward.sql
var fetchBackwardQuery string

var _ slidingwindow.Source[Block] = (*Source)(nil)

// Source serves blocks of one chain from a ClickHouse blocks table. The
// logical index of a block is its number; negative indices hold no blocks.
// A missing height ends a read, so callers only ever see the run of blocks
// adjacent to the requested position.
type Source struct {
	client  clickhouse.Client
	cfg     Config
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	forwardQuery  string
	backwardQuery string
}

func NewSource(
	client clickhouse.Client,
	cfg Config,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Source{
		client:        client,
		cfg:           cfg,
		log:           log,
		metrics:       m,
		forwardQuery:  fmt.Sprintf(fetchForwardQuery, cfg.Database, cfg.Table),
		backwardQuery: fmt.Sprintf(fetchBackwardQuery, cfg.Database, cfg.Table),
	}, nil
}

// FetchForward returns up to count consecutive blocks starting at block from.
func (s *Source) FetchForward(ctx context.Context, from int64, count int) ([]Block, error) {
	if count <= 0 || from < 0 {
		return nil, nil
	}
	rows, err := s.query(ctx, s.forwardQuery, from, from+int64(count), count)
	if err != nil {
		return nil, err
	}

	out, gap := contiguousRun(rows, from, 1)
	if gap {
		s.reportGap(from, count, len(out), len(rows))
	}
	return out, nil
}

// FetchBackward returns up to count consecutive blocks ending just before
// block from, in ascending order.
func (s *Source) FetchBackward(ctx context.Context, from int64, count int) ([]Block, error) {
	if count <= 0 || from <= 0 {
		return nil, nil
	}
	lo := max(0, from-int64(count))
	rows, err := s.query(ctx, s.backwardQuery, lo, from, count)
	if err != nil {
		return nil, err
	}

	// Rows arrive newest first.
	out, gap := contiguousRun(rows, from-1, -1)
	if gap {
		s.reportGap(from, count, len(out), len(rows))
	}
	slices.Reverse(out)
	return out, nil
}

// contiguousRun keeps the leading rows numbered first, first+step, ... and
// reports whether a missing height ended the run. Repeated rows for a height
// already kept are dropped; the blocks table is a plain MergeTree, so
// redelivered blocks can appear more than once.
func contiguousRun(rows []Block, first, step int64) ([]Block, bool) {
	out := rows[:0]
	want := first
	for _, row := range rows {
		switch row.LogicalIndex() {
		case want:
			out = append(out, row)
			want += step
		case want - step:
			if len(out) == 0 {
				return out, true
			}
		default:
			return out, true
		}
	}
	return out, false
}

func (s *Source) query(ctx context.Context, query string, lo, hi int64, limit int) ([]Block, error) {
	began := time.Now()
	var rows []Block
	err := s.client.Conn().Select(ctx, &rows, query, s.cfg.BlockchainID, uint64(lo), uint64(hi), limit)
	s.metrics.RecordSourceQuery(SourceName, err, time.Since(began).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks [%d, %d): %w", lo, hi, err)
	}
	s.log.Debugw("queried blocks",
		"blockchainID", s.cfg.BlockchainID,
		"lo", lo,
		"hi", hi,
		"rows", len(rows),
	)
	return rows, nil
}

func (s *Source) reportGap(from int64, count, kept, got int) {
	s.metrics.IncSourceGaps(SourceName)
	s.log.Warnw("missing blocks in range, returning contiguous run",
		"blockchainID", s.cfg.BlockchainID,
		"from", from,
		"count", count,
		"kept", kept,
		"rows", got,
	)
}
