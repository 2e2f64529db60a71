package slidingwindow

import "context"

// Source supplies items for requested logical ranges.
//
// Both methods return items in ascending logical order. They may return fewer
// than count items, which signals exhaustion in that direction and is not an
// error.
type Source[T any] interface {
	// FetchForward returns up to count items with logical indices from, from+1, ...
	FetchForward(ctx context.Context, from int64, count int) ([]T, error)

	// FetchBackward returns up to count items immediately preceding from,
	// covering [from-k, from) for some k <= count.
	FetchBackward(ctx context.Context, from int64, count int) ([]T, error)
}

// Indexed is implemented by items that know their own logical index. When the
// window's items implement it, every fetched item is checked against the
// position it would occupy. Items that do not implement it are not checked.
type Indexed interface {
	LogicalIndex() int64
}

// FetchFunc fetches count items relative to from.
type FetchFunc[T any] func(ctx context.Context, from int64, count int) ([]T, error)

// SourceFuncs adapts a pair of functions to the Source interface.
type SourceFuncs[T any] struct {
	Forward  FetchFunc[T]
	Backward FetchFunc[T]
}

var _ Source[int] = SourceFuncs[int]{}

// FetchForward calls s.Forward. A nil Forward yields no items.
func (s SourceFuncs[T]) FetchForward(ctx context.Context, from int64, count int) ([]T, error) {
	if s.Forward == nil {
		return nil, nil
	}
	return s.Forward(ctx, from, count)
}

// FetchBackward calls s.Backward. A nil Backward yields no items.
func (s SourceFuncs[T]) FetchBackward(ctx context.Context, from int64, count int) ([]T, error) {
	if s.Backward == nil {
		return nil, nil
	}
	return s.Backward(ctx, from, count)
}
