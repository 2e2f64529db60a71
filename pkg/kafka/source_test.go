package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	cKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ava-labs/avalanche-window/pkg/kafka/testutils"
	"github.com/ava-labs/avalanche-window/pkg/metrics"
	"github.com/ava-labs/avalanche-window/pkg/slidingwindow"
)

const testTopic = "blocks"

func testSourceConfig() SourceConfig {
	return SourceConfig{Topic: testTopic, Partition: 1}.WithDefaults()
}

func newTestSource(t *testing.T, reader *testutils.MockPartitionReader, m *metrics.Metrics) *PartitionSource {
	t.Helper()
	return NewPartitionSource(reader, testSourceConfig(), testutils.NewTestLogger(t), m)
}

func expectWatermarks(reader *testutils.MockPartitionReader, low, high int64) {
	reader.On("QueryWatermarkOffsets", testTopic, int32(1), 5000).Return(low, high, nil)
}

func expectAssign(reader *testutils.MockPartitionReader, offset int64) {
	reader.
		On("Assign", mock.MatchedBy(func(tps []cKafka.TopicPartition) bool {
			return len(tps) == 1 &&
				*tps[0].Topic == testTopic &&
				tps[0].Partition == 1 &&
				tps[0].Offset == cKafka.Offset(offset)
		})).
		Return(nil).
		Once()
}

func expectMessages(reader *testutils.MockPartitionReader, partition int32, offsets ...int64) {
	for _, offset := range offsets {
		msg := testutils.NewTestMessage(testTopic, partition, offset, []byte("key"), []byte(`{"n":1}`))
		reader.On("ReadMessage", DefaultReadTimeout).Return(msg, nil).Once()
	}
}

func offsets(records []Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.Offset)
	}
	return out
}

func TestFetchForward(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		low, high int64
		from      int64
		count     int
		assign    int64
		messages  []int64
		want      []int64
	}{
		{
			name: "full range",
			low:  0, high: 100,
			from: 10, count: 3,
			assign:   10,
			messages: []int64{10, 11, 12},
			want:     []int64{10, 11, 12},
		},
		{
			name: "clamped at high watermark",
			low:  0, high: 12,
			from: 10, count: 5,
			assign:   10,
			messages: []int64{10, 11},
			want:     []int64{10, 11},
		},
		{
			name: "stale message skipped",
			low:  0, high: 100,
			from: 10, count: 2,
			assign:   10,
			messages: []int64{8, 10, 11},
			want:     []int64{10, 11},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader := &testutils.MockPartitionReader{}
			expectWatermarks(reader, tt.low, tt.high)
			expectAssign(reader, tt.assign)
			expectMessages(reader, 1, tt.messages...)

			got, err := newTestSource(t, reader, nil).FetchForward(t.Context(), tt.from, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, offsets(got))
			reader.AssertExpectations(t)
		})
	}
}

func TestFetchForward_AtHighWatermark(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 0, 10)

	got, err := newTestSource(t, reader, nil).FetchForward(t.Context(), 10, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	reader.AssertNotCalled(t, "Assign", mock.Anything)
}

func TestFetchForward_BelowLowWatermark(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 5, 100)

	_, err := newTestSource(t, reader, nil).FetchForward(t.Context(), 2, 5)
	require.ErrorIs(t, err, ErrOffsetOutOfRange)
	reader.AssertNotCalled(t, "Assign", mock.Anything)
}

func TestFetchForward_TimeoutEndsReadEarly(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 0, 100)
	expectAssign(reader, 10)
	expectMessages(reader, 1, 10)
	reader.On("ReadMessage", DefaultReadTimeout).Return(nil, testutils.NewTimeoutError()).Once()

	src := NewPartitionSource(reader, testSourceConfig(), zap.New(core).Sugar(), nil)
	got, err := src.FetchForward(t.Context(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, offsets(got))
	require.Equal(t, 1, logs.FilterMessage("read timed out, returning partial range").Len())
	reader.AssertExpectations(t)
}

func TestFetchForward_OffsetGap(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 0, 100)
	expectAssign(reader, 10)
	expectMessages(reader, 1, 10, 12)

	_, err = newTestSource(t, reader, m).FetchForward(t.Context(), 10, 5)
	require.ErrorIs(t, err, ErrOffsetGap)

	expected := `
# HELP window_source_gaps_total Total reads cut short by a missing logical index
# TYPE window_source_gaps_total counter
window_source_gaps_total{source="kafka"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "window_source_gaps_total"))
}

func TestFetchForward_ReadError(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 0, 100)
	expectAssign(reader, 10)
	brokerErr := cKafka.NewError(cKafka.ErrAllBrokersDown, "all brokers down", false)
	reader.On("ReadMessage", DefaultReadTimeout).Return(nil, brokerErr).Once()

	_, err := newTestSource(t, reader, nil).FetchForward(t.Context(), 10, 5)
	require.ErrorContains(t, err, "failed to read blocks[1] at offset 10")

	var kErr cKafka.Error
	require.ErrorAs(t, err, &kErr)
	assert.Equal(t, cKafka.ErrAllBrokersDown, kErr.Code())
}

func TestFetchForward_AssignError(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 0, 100)
	assignErr := errors.New("unknown partition")
	reader.On("Assign", mock.Anything).Return(assignErr)

	_, err := newTestSource(t, reader, nil).FetchForward(t.Context(), 10, 5)
	require.ErrorIs(t, err, assignErr)
}

func TestFetchForward_ContextCanceled(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newTestSource(t, reader, nil).FetchForward(ctx, 10, 5)
	require.ErrorIs(t, err, context.Canceled)
	reader.AssertNotCalled(t, "QueryWatermarkOffsets", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchBackward(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		low, high int64
		from      int64
		count     int
		assign    int64
		messages  []int64
		want      []int64
	}{
		{
			name: "full range",
			low:  0, high: 100,
			from: 10, count: 3,
			assign:   7,
			messages: []int64{7, 8, 9},
			want:     []int64{7, 8, 9},
		},
		{
			name: "clamped at low watermark",
			low:  5, high: 100,
			from: 7, count: 5,
			assign:   5,
			messages: []int64{5, 6},
			want:     []int64{5, 6},
		},
		{
			name: "ending at high watermark",
			low:  0, high: 10,
			from: 10, count: 2,
			assign:   8,
			messages: []int64{8, 9},
			want:     []int64{8, 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader := &testutils.MockPartitionReader{}
			expectWatermarks(reader, tt.low, tt.high)
			expectAssign(reader, tt.assign)
			expectMessages(reader, 1, tt.messages...)

			got, err := newTestSource(t, reader, nil).FetchBackward(t.Context(), tt.from, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, offsets(got))
			reader.AssertExpectations(t)
		})
	}
}

func TestFetchBackward_TimeoutMidRead(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 0, 100)
	expectAssign(reader, 45)
	expectMessages(reader, 1, 45, 46)
	reader.On("ReadMessage", DefaultReadTimeout).Return(nil, testutils.NewTimeoutError()).Once()

	src := newTestSource(t, reader, nil)
	got, err := src.FetchBackward(t.Context(), 50, 5)
	require.ErrorIs(t, err, ErrIncompleteRead)
	assert.Empty(t, got)
	reader.AssertExpectations(t)

	// The window keeps its state and can retry.
	reader = &testutils.MockPartitionReader{}
	expectWatermarks(reader, 0, 100)
	expectAssign(reader, 45)
	expectMessages(reader, 1, 45, 46)
	reader.On("ReadMessage", DefaultReadTimeout).Return(nil, testutils.NewTimeoutError()).Once()

	w, err := slidingwindow.New[Record](newTestSource(t, reader, nil), slidingwindow.WithStart(50))
	require.NoError(t, err)
	_, err = w.ExtendBackward(t.Context(), 5)
	require.ErrorIs(t, err, ErrIncompleteRead)
	assert.True(t, w.IsEmpty())
	assert.Equal(t, int64(50), w.Start())
	reader.AssertExpectations(t)
}

func TestFetchBackward_NothingAvailable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		low, high int64
		from      int64
	}{
		{name: "at low watermark", low: 5, high: 100, from: 5},
		{name: "beyond high watermark", low: 0, high: 10, from: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader := &testutils.MockPartitionReader{}
			expectWatermarks(reader, tt.low, tt.high)

			got, err := newTestSource(t, reader, nil).FetchBackward(t.Context(), tt.from, 3)
			require.NoError(t, err)
			assert.Empty(t, got)
			reader.AssertNotCalled(t, "Assign", mock.Anything)
		})
	}
}

func TestWatermarks_Error(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	queryErr := cKafka.NewError(cKafka.ErrTimedOut, "watermark query timed out", false)
	reader.On("QueryWatermarkOffsets", testTopic, int32(1), 5000).Return(int64(0), int64(0), queryErr)

	_, _, err := newTestSource(t, reader, nil).Watermarks(t.Context())
	require.ErrorContains(t, err, "failed to query watermarks for blocks[1]")
}

func TestRecord_FromMessage(t *testing.T) {
	t.Parallel()
	msg := testutils.NewTestMessage(testTopic, 1, 42, []byte("0xabc"), []byte(`{"number":42}`))

	r := toRecord(msg)
	assert.Equal(t, testTopic, r.Topic)
	assert.Equal(t, int32(1), r.Partition)
	assert.Equal(t, int64(42), r.Offset)
	assert.Equal(t, int64(42), r.LogicalIndex())
	assert.Equal(t, "0xabc", r.Key)
	assert.JSONEq(t, `{"number":42}`, r.Value)
	assert.Equal(t, msg.Timestamp, r.Timestamp)
}

func TestPartitionSource_DrivesWindow(t *testing.T) {
	t.Parallel()
	reader := &testutils.MockPartitionReader{}
	expectWatermarks(reader, 100, 200)
	expectAssign(reader, 100)
	expectMessages(reader, 1, 100, 101, 102, 103, 104, 105)
	expectAssign(reader, 100)
	expectMessages(reader, 1, 100, 101)

	src := newTestSource(t, reader, nil)
	low, _, err := src.Watermarks(t.Context())
	require.NoError(t, err)

	w, err := slidingwindow.New[Record](src, slidingwindow.WithStart(low), slidingwindow.WithCapacity(4))
	require.NoError(t, err)

	_, err = w.ExtendForward(t.Context(), 6)
	require.NoError(t, err)
	assert.Equal(t, []int64{102, 103, 104, 105}, offsets(w.Items()))

	_, err = w.ExtendBackward(t.Context(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(100), w.Start())
	assert.Equal(t, []int64{100, 101, 102, 103}, offsets(w.Items()))
}

type fakeLogSource struct {
	ch chan cKafka.LogEvent
}

func (f fakeLogSource) Logs() chan cKafka.LogEvent {
	return f.ch
}

func TestPrintLogs(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	src := fakeLogSource{ch: make(chan cKafka.LogEvent, 1)}
	src.ch <- cKafka.LogEvent{Level: 7, Tag: "FETCH", Message: "fetching partition"}
	close(src.ch)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		PrintLogs(t.Context(), src, zap.New(core).Sugar())
	}()
	wg.Wait()

	require.Equal(t, 1, logs.FilterMessageSnippet("tag: FETCH").Len())
	require.Equal(t, 1, logs.FilterMessage("kafka logs printing for consumer, event channel closed").Len())
}

func TestPrintLogs_StopsOnContextDone(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	PrintLogs(ctx, fakeLogSource{ch: make(chan cKafka.LogEvent)}, zap.NewNop().Sugar())
}
