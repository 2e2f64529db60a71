package slidingwindow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ava-labs/avalanche-window/pkg/metrics"
)

var (
	ErrNilSource       = errors.New("nil source")
	ErrInvalidCapacity = errors.New("invalid capacity: must be at least 1")
	ErrInvalidCount    = errors.New("invalid count: must not be negative")
	ErrSourceOverflow  = errors.New("source returned more items than requested")
	ErrNonContiguous   = errors.New("source returned items outside the requested range")
)

// Window is a bounded in-memory run of items over a Source.
// Start is the logical index of the first resident item and capacity bounds
// the number of resident items. Window is not safe for concurrent use.
type Window[T any] struct {
	start    int64
	capacity int
	items    []T
	source   Source[T]

	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// New creates an empty window bound to source.
func New[T any](source Source[T], opts ...Option) (*Window[T], error) {
	if source == nil {
		return nil, ErrNilSource
	}
	cfg := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.capacity)
	}
	log := cfg.log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	w := &Window[T]{
		start:    cfg.start,
		capacity: cfg.capacity,
		source:   source,
		log:      log,
		metrics:  cfg.metrics,
	}
	w.metrics.UpdateWindowMetrics(w.start, 0, w.capacity)
	return w, nil
}

// Start returns the logical index of the first resident item.
func (w *Window[T]) Start() int64 {
	return w.start
}

// End returns the logical index one past the last resident item.
func (w *Window[T]) End() int64 {
	return w.start + int64(len(w.items))
}

// Len returns the number of resident items.
func (w *Window[T]) Len() int {
	return len(w.items)
}

// Capacity returns the maximum number of resident items.
func (w *Window[T]) Capacity() int {
	return w.capacity
}

// IsEmpty reports whether the window holds no items.
func (w *Window[T]) IsEmpty() bool {
	return len(w.items) == 0
}

// Items returns a copy of the resident items in ascending logical order.
func (w *Window[T]) Items() []T {
	return slices.Clone(w.items)
}

// Contains reports whether the item at logical index is resident.
func (w *Window[T]) Contains(index int64) bool {
	return index >= w.start && index < w.End()
}

// At returns the resident item at logical index.
func (w *Window[T]) At(index int64) (T, bool) {
	if !w.Contains(index) {
		var zero T
		return zero, false
	}
	return w.items[index-w.start], true
}

// Reset drops every resident item and moves the window to start.
func (w *Window[T]) Reset(start int64) {
	dropped := len(w.items)
	clear(w.items)
	w.items = w.items[:0]
	w.start = start
	w.log.Debugw("window reset", "start", start, "dropped", dropped)
	w.metrics.UpdateWindowMetrics(w.start, 0, w.capacity)
}

// ExtendForward fetches up to n items following End() and appends them,
// evicting overflow from the front. It returns the number of items the source
// returned. A count of zero is a no-op that does not call the source.
func (w *Window[T]) ExtendForward(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if n == 0 {
		return 0, nil
	}

	began := time.Now()
	from := w.End()
	fetched, err := w.fetch(ctx, w.source.FetchForward, metrics.DirectionForward, from, n)
	w.metrics.RecordFetch(metrics.DirectionForward, n, len(fetched), err, time.Since(began).Seconds())
	if err != nil {
		return 0, err
	}
	returned := len(fetched)
	if returned == 0 {
		return 0, nil
	}

	if overflow := len(w.items) + returned - w.capacity; overflow > 0 {
		resident := min(overflow, len(w.items))
		w.items = dropFront(w.items, resident)
		fetched = fetched[overflow-resident:]
		w.start += int64(overflow)
		w.metrics.AddEvicted(metrics.EndFront, overflow)
		w.log.Debugw("evicted from front",
			"evicted", overflow,
			"fromFetched", overflow-resident,
			"start", w.start,
		)
	}
	w.items = append(w.items, fetched...)

	w.log.Debugw("extended forward",
		"from", from,
		"requested", n,
		"returned", returned,
		"start", w.start,
		"len", len(w.items),
	)
	w.metrics.UpdateWindowMetrics(w.start, len(w.items), w.capacity)
	return returned, nil
}

// ExtendBackward fetches up to n items preceding Start() and prepends them,
// moving Start back by the number returned. Items beyond the capacity are
// dropped from the tail; Start is unaffected by that truncation. It returns the
// number of items the source returned. A count of zero is a no-op that does not
// call the source.
func (w *Window[T]) ExtendBackward(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if n == 0 {
		return 0, nil
	}

	began := time.Now()
	from := w.start
	fetched, err := w.fetch(ctx, w.source.FetchBackward, metrics.DirectionBackward, from, n)
	w.metrics.RecordFetch(metrics.DirectionBackward, n, len(fetched), err, time.Since(began).Seconds())
	if err != nil {
		return 0, err
	}
	returned := len(fetched)
	if returned == 0 {
		return 0, nil
	}

	merged := make([]T, 0, min(returned+len(w.items), w.capacity))
	merged = append(merged, fetched[:min(returned, w.capacity)]...)
	merged = append(merged, w.items[:min(len(w.items), w.capacity-len(merged))]...)
	dropped := returned + len(w.items) - len(merged)

	clear(w.items)
	w.items = merged
	w.start -= int64(returned)

	if dropped > 0 {
		w.metrics.AddEvicted(metrics.EndBack, dropped)
		w.log.Debugw("truncated tail",
			"evicted", dropped,
			"end", w.End(),
		)
	}
	w.log.Debugw("extended backward",
		"from", from,
		"requested", n,
		"returned", returned,
		"start", w.start,
		"len", len(w.items),
	)
	w.metrics.UpdateWindowMetrics(w.start, len(w.items), w.capacity)
	return returned, nil
}

// fetch calls the source and validates its result. For forward fetches the
// first expected index is from; for backward fetches it is from minus the number
// of returned items.
func (w *Window[T]) fetch(
	ctx context.Context,
	call FetchFunc[T],
	direction string,
	from int64,
	n int,
) ([]T, error) {
	fetched, err := call(ctx, from, n)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %d: %w", direction, from, err)
	}
	if len(fetched) > n {
		return nil, fmt.Errorf("%w: requested %d, got %d", ErrSourceOverflow, n, len(fetched))
	}
	first := from
	if direction == metrics.DirectionBackward {
		first = from - int64(len(fetched))
	}
	if err := checkContiguous(fetched, first); err != nil {
		return nil, err
	}
	return fetched, nil
}

// checkContiguous verifies that items carry logical indices first, first+1, ...
// Each item is checked on its own, so items that do not implement Indexed are
// accepted while the rest of the batch is still validated.
func checkContiguous[T any](items []T, first int64) error {
	for i, item := range items {
		indexed, ok := any(item).(Indexed)
		if !ok {
			continue
		}
		if got, want := indexed.LogicalIndex(), first+int64(i); got != want {
			return fmt.Errorf("%w: item %d has index %d, want %d", ErrNonContiguous, i, got, want)
		}
	}
	return nil
}

// dropFront removes the first k items in place and zeroes the vacated tail so
// evicted items can be collected.
func dropFront[T any](s []T, k int) []T {
	n := copy(s, s[k:])
	clear(s[n:])
	return s[:n]
}
