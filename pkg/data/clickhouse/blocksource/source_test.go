package blocksource

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ava-labs/avalanche-window/pkg/clickhouse/testutils"
	"github.com/ava-labs/avalanche-window/pkg/metrics"
	"github.com/ava-labs/avalanche-window/pkg/slidingwindow"
)

const testChain = "2q9e4r6Mu3U68nU1fYjgbR6JvwrRx36CohpAX5UQxse55x1Q5"

func testConfig() Config {
	return Config{Database: "default", Table: "raw_blocks", BlockchainID: testChain}
}

func blocks(numbers ...uint64) []Block {
	out := make([]Block, 0, len(numbers))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, n := range numbers {
		out = append(out, Block{
			BlockNumber: n,
			Hash:        "0xhash",
			BlockTime:   base.Add(time.Duration(n) * 2 * time.Second),
			GasLimit:    15_000_000,
		})
	}
	return out
}

func numbers(bs []Block) []uint64 {
	out := make([]uint64, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.BlockNumber)
	}
	return out
}

func ordered(direction string) any {
	return mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "FROM default.raw_blocks") &&
			strings.Contains(q, "ORDER BY block_number "+direction)
	})
}

// expectSelect fills the Select destination with rows.
func expectSelect(conn *testutils.MockConn, direction string, lo, hi uint64, limit int, rows []Block) *mock.Call {
	return conn.
		On("Select", mock.Anything, mock.AnythingOfType("*[]blocksource.Block"), ordered(direction),
			testChain, lo, hi, limit).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*[]Block)
			*dest = rows
		}).
		Return(nil)
}

func requireGaps(t *testing.T, reg *prometheus.Registry, want int) {
	t.Helper()
	if want == 0 {
		count, err := testutil.GatherAndCount(reg, "window_source_gaps_total")
		require.NoError(t, err)
		require.Zero(t, count)
		return
	}
	expected := fmt.Sprintf(`
# HELP window_source_gaps_total Total reads cut short by a missing logical index
# TYPE window_source_gaps_total counter
window_source_gaps_total{source="clickhouse"} %d
`, want)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "window_source_gaps_total"))
}

func newTestSource(t *testing.T, conn *testutils.MockConn, m *metrics.Metrics) *Source {
	t.Helper()
	src, err := NewSource(testutils.NewTestClient(conn), testConfig(), zaptest.NewLogger(t).Sugar(), m)
	require.NoError(t, err)
	return src
}

func TestNewSource_InvalidConfig(t *testing.T) {
	t.Parallel()
	conn := &testutils.MockConn{}

	_, err := NewSource(testutils.NewTestClient(conn), Config{Table: "raw_blocks"}, nil, nil)
	require.ErrorIs(t, err, ErrBlockchainIDRequired)

	_, err = NewSource(testutils.NewTestClient(conn), Config{BlockchainID: testChain}, nil, nil)
	require.ErrorIs(t, err, ErrTableRequired)
}

func TestFetchForward(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		rows  []Block
		want  []uint64
		gaps  int
		count int
	}{
		{
			name:  "full range",
			rows:  blocks(10, 11, 12, 13),
			want:  []uint64{10, 11, 12, 13},
			count: 4,
		},
		{
			name:  "end of table",
			rows:  blocks(10, 11),
			want:  []uint64{10, 11},
			count: 4,
		},
		{
			name:  "gap cuts run",
			rows:  blocks(10, 11, 13),
			want:  []uint64{10, 11},
			gaps:  1,
			count: 4,
		},
		{
			name:  "duplicate rows are collapsed",
			rows:  blocks(10, 11, 11, 12, 13),
			want:  []uint64{10, 11, 12, 13},
			count: 4,
		},
		{
			name:  "duplicate before gap",
			rows:  blocks(10, 10, 11, 13),
			want:  []uint64{10, 11},
			gaps:  1,
			count: 4,
		},
		{
			name:  "first height missing",
			rows:  blocks(11, 12),
			want:  []uint64{},
			gaps:  1,
			count: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := prometheus.NewRegistry()
			m, err := metrics.New(reg)
			require.NoError(t, err)
			conn := &testutils.MockConn{}
			expectSelect(conn, "ASC", 10, 14, tt.count, tt.rows)

			src := newTestSource(t, conn, m)
			got, err := src.FetchForward(t.Context(), 10, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, numbers(got))
			requireGaps(t, reg, tt.gaps)
			conn.AssertExpectations(t)
		})
	}
}

func TestFetchBackward(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		from   int64
		lo, hi uint64
		rows   []Block
		want   []uint64
	}{
		{
			name: "full range reversed to ascending",
			from: 10, lo: 6, hi: 10,
			rows: blocks(9, 8, 7, 6),
			want: []uint64{6, 7, 8, 9},
		},
		{
			name: "clamped at genesis",
			from: 2, lo: 0, hi: 2,
			rows: blocks(1, 0),
			want: []uint64{0, 1},
		},
		{
			name: "gap keeps adjacent suffix",
			from: 10, lo: 6, hi: 10,
			rows: blocks(9, 8, 6),
			want: []uint64{8, 9},
		},
		{
			name: "duplicate rows are collapsed",
			from: 10, lo: 6, hi: 10,
			rows: blocks(9, 9, 8, 7, 7, 6),
			want: []uint64{6, 7, 8, 9},
		},
		{
			name: "previous height missing",
			from: 10, lo: 6, hi: 10,
			rows: blocks(8, 7),
			want: []uint64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			conn := &testutils.MockConn{}
			expectSelect(conn, "DESC", tt.lo, tt.hi, 4, tt.rows)

			src := newTestSource(t, conn, nil)
			got, err := src.FetchBackward(t.Context(), tt.from, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, numbers(got))
			conn.AssertExpectations(t)
		})
	}
}

func TestFetch_DuplicatesAreNotGaps(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)
	conn := &testutils.MockConn{}
	expectSelect(conn, "ASC", 10, 15, 5, blocks(10, 11, 11, 12, 13))
	expectSelect(conn, "DESC", 5, 10, 5, blocks(9, 8, 8, 7, 6, 5))

	src, err := NewSource(testutils.NewTestClient(conn), testConfig(), zap.New(core).Sugar(), m)
	require.NoError(t, err)

	fwd, err := src.FetchForward(t.Context(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 11, 12, 13}, numbers(fwd))

	back, err := src.FetchBackward(t.Context(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6, 7, 8, 9}, numbers(back))

	assert.Zero(t, logs.Len())
	requireGaps(t, reg, 0)
	conn.AssertExpectations(t)
}

func TestQueries_DeduplicateByBlockNumber(t *testing.T) {
	t.Parallel()
	for _, q := range []string{fetchForwardQuery, fetchBackwardQuery} {
		assert.Contains(t, q, "LIMIT 1 BY block_number")
	}
}

func TestFetch_NegativeIndicesHoldNoBlocks(t *testing.T) {
	t.Parallel()
	conn := &testutils.MockConn{}
	src := newTestSource(t, conn, nil)

	got, err := src.FetchForward(t.Context(), -5, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = src.FetchBackward(t.Context(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	conn.AssertNotCalled(t, "Select", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetch_QueryError(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	queryErr := errors.New("code: 159, message: Timeout exceeded")
	conn := &testutils.MockConn{}
	conn.
		On("Select", mock.Anything, mock.Anything, ordered("ASC"), testChain, uint64(0), uint64(3), 3).
		Return(queryErr)

	src := newTestSource(t, conn, m)
	_, err = src.FetchForward(t.Context(), 0, 3)
	require.ErrorIs(t, err, queryErr)
	require.ErrorContains(t, err, "failed to query blocks [0, 3)")
	expected := `
# HELP window_source_queries_total Total source queries by source and status
# TYPE window_source_queries_total counter
window_source_queries_total{source="clickhouse",status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "window_source_queries_total"))
}

func TestSource_DrivesWindow(t *testing.T) {
	t.Parallel()
	conn := &testutils.MockConn{}
	expectSelect(conn, "ASC", 100, 105, 5, blocks(100, 101, 102, 103, 104))
	expectSelect(conn, "DESC", 97, 100, 3, blocks(99, 98, 97))

	src := newTestSource(t, conn, nil)
	w, err := slidingwindow.New[Block](src, slidingwindow.WithStart(100), slidingwindow.WithCapacity(6))
	require.NoError(t, err)

	_, err = w.ExtendForward(t.Context(), 5)
	require.NoError(t, err)
	_, err = w.ExtendBackward(t.Context(), 3)
	require.NoError(t, err)

	assert.Equal(t, int64(97), w.Start())
	assert.Equal(t, []uint64{97, 98, 99, 100, 101, 102}, numbers(w.Items()))
	conn.AssertExpectations(t)
}
