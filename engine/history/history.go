// Package history wraps a ring.Ring of timestamped samples with
// binary-searchable lookups by timestamp, for the telemetry map's
// per-metric scalar history.
package history

import (
	"log/slog"

	"github.com/lattice-gfx/frameipc/engine/ring"
)

// Sample pairs a value with the timestamp it was observed at. T is one of
// the scalar wire types carried by a metric: float64, uint64, or bool.
type Sample[T float64 | uint64 | bool] struct {
	Value     T
	Timestamp uint64
}

// Ring composes ring.Ring[Sample[T]] with timestamp-ordered search.
// Callers are responsible for pushing samples in non-decreasing
// timestamp order (I-history-sorted); search behavior is undefined, but
// never crashes, if that invariant is violated.
type Ring[T float64 | uint64 | bool] struct {
	r *ring.Ring[Sample[T]]
}

// New constructs a HistoryRing with the given backing capacity.
func New[T float64 | uint64 | bool](capacity int, backpressured bool, logger *slog.Logger) (*Ring[T], error) {
	r, err := ring.New[Sample[T]](capacity, backpressured, logger)
	if err != nil {
		return nil, err
	}
	return &Ring[T]{r: r}, nil
}

// Push records a new sample.
func (h *Ring[T]) Push(value T, timestamp uint64) bool {
	return h.r.Push(Sample[T]{Value: value, Timestamp: timestamp}, 0)
}

// GetSerialRange delegates to the underlying ring.
func (h *Ring[T]) GetSerialRange() (first, last uint64) { return h.r.GetSerialRange() }

// Empty delegates to the underlying ring.
func (h *Ring[T]) Empty() bool { return h.r.Empty() }

// At returns the sample stored at serial.
func (h *Ring[T]) At(serial uint64) Sample[T] { return h.r.At(serial) }

// Newest returns the most recently pushed sample. Panics if empty — a
// programmer error, matching the original's assertion on an empty ring.
func (h *Ring[T]) Newest() Sample[T] {
	_, last := h.r.GetSerialRange()
	if last == 0 {
		panic("history: newest on empty ring")
	}
	return h.r.At(last - 1)
}

// LowerBoundSerial returns the first serial whose timestamp is >= ts, or
// last if none qualifies. Binary search over [first, last).
func (h *Ring[T]) LowerBoundSerial(ts uint64) uint64 {
	first, last := h.r.GetSerialRange()
	lo, hi := first, last
	for lo < hi {
		mid := lo + (hi-lo)/2
		if h.r.At(mid).Timestamp < ts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// UpperBoundSerial returns the first serial whose timestamp is > ts, or
// last if none qualifies.
func (h *Ring[T]) UpperBoundSerial(ts uint64) uint64 {
	first, last := h.r.GetSerialRange()
	lo, hi := first, last
	for lo < hi {
		mid := lo + (hi-lo)/2
		if h.r.At(mid).Timestamp <= ts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// NearestSerial returns the serial whose timestamp is closest to ts,
// clamped to [first, last-1]. Ties break toward the smaller serial.
// Panics if the ring is empty.
func (h *Ring[T]) NearestSerial(ts uint64) uint64 {
	first, last := h.r.GetSerialRange()
	if last == first {
		panic("history: nearest_serial on empty ring")
	}
	lb := h.LowerBoundSerial(ts)
	if lb == first {
		return first
	}
	if lb == last {
		return last - 1
	}
	before := lb - 1
	beforeDelta := ts - h.r.At(before).Timestamp
	atDelta := h.r.At(lb).Timestamp - ts
	if beforeDelta <= atDelta {
		return before
	}
	return lb
}

// ForEachInTimestampRange invokes f on every sample whose timestamp lies
// in [start, end], in ascending serial (and therefore timestamp) order.
// Returns the count of samples visited.
func (h *Ring[T]) ForEachInTimestampRange(start, end uint64, f func(serial uint64, s Sample[T])) int {
	lo := h.LowerBoundSerial(start)
	_, last := h.r.GetSerialRange()
	visited := 0
	for serial := lo; serial < last; serial++ {
		s := h.r.At(serial)
		if s.Timestamp > end {
			break
		}
		f(serial, s)
		visited++
	}
	return visited
}
