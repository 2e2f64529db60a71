// Package slidingwindow implements a bounded, bidirectionally scrollable window
// over a logically unbounded sequence of items supplied by a Source. It is meant
// for consumers that page forward and backward through a feed, a block table or a
// Kafka partition while holding at most a fixed number of items in memory.
//
// Terminology
//   - Logical index: the position of an item in the source's total ordering,
//     independent of where it sits in the resident buffer.
//   - Start: the logical index of the first resident item. It stays meaningful
//     when the window is empty, where it is the index the next forward item
//     would occupy.
//   - End: Start plus the number of resident items (exclusive).
//
// Invariants
//   - 0 <= Len() <= Capacity() after every operation.
//   - The resident item at position i has logical index Start()+i.
//   - A failed extension leaves the window exactly as it was.
//
// Growth and eviction
//   - ExtendForward asks the source for items starting at End(). If the merged
//     run exceeds the capacity, the overflow is evicted from the front and Start
//     advances by the overflow. When the overflow is larger than the resident
//     run, the front of the fetched batch is evicted as well, so the window ends
//     up holding the last Capacity() items of the batch.
//   - ExtendBackward asks the source for items ending just before Start(),
//     prepends them, moves Start back by the number returned, and truncates the
//     tail (the highest logical indices) to the capacity. Truncating the tail
//     does not move Start.
//
// Source validation
// The window rejects results that would corrupt its state: a batch longer than
// requested fails with ErrSourceOverflow, and when items implement Indexed a
// batch that is not contiguous with the window fails with ErrNonContiguous.
//
// Concurrency
// A Window is not safe for concurrent use. Both extensions call the source
// synchronously and block until it returns or the context is cancelled.
//
// Usage
//  1. Implement Source (or wrap two functions with SourceFuncs).
//  2. Construct a Window with New(source, WithStart(s), WithCapacity(k)).
//  3. Call ExtendForward / ExtendBackward as the consumer scrolls.
//  4. Read the resident run with Items, At, Start and End.
package slidingwindow
