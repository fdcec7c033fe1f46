// Package fixedvec provides an inline, value-semantic bounded sequence.
//
// It is the Go analogue of the original's cnr::FixedVector<T, N>
// (CommonUtilities/cnr/FixedVector.h): a fixed-capacity array plus a size
// counter, used for short per-record collections (displayed-instance
// vectors bounded by the graphics pipeline) where heap traffic and pointer
// indirection are unwanted. Go generics can't parametrize the backing
// array length itself, so Vec holds a backing array sized to MaxCap and a
// runtime capacity no larger than that, checked once at construction.
package fixedvec

import "github.com/lattice-gfx/frameipc/engine/apperr"

// MaxCap is the largest capacity any Vec in this module may request. It is
// sized to the widest use in the wire format: the per-frame displayed
// vector (§6.3), which is bounded at 10 entries by the graphics pipeline.
const MaxCap = 10

// ErrCapacityExceeded is returned when a mutation would grow the sequence
// past its configured capacity.
var ErrCapacityExceeded = apperr.New(apperr.CapacityExceeded, "fixedvec: capacity exceeded")

// ErrIndexOutOfRange is returned by checked accessors given an invalid index.
var ErrIndexOutOfRange = apperr.New(apperr.IndexOutOfRange, "fixedvec: index out of range")

// Vec is an inline bounded sequence of T with capacity at most MaxCap.
// The zero value is not usable; construct with New or NewFromSlice.
type Vec[T any] struct {
	data [MaxCap]T
	size int
	cap  int
}

// New returns an empty Vec with the given capacity. Panics (a programmer
// error, per the contract) if capacity is out of [0, MaxCap].
func New[T any](capacity int) Vec[T] {
	if capacity < 0 || capacity > MaxCap {
		panic("fixedvec: capacity out of range")
	}
	return Vec[T]{cap: capacity}
}

// NewFromSlice copies up to capacity elements from src into a new Vec.
// Returns ErrCapacityExceeded if len(src) > capacity.
func NewFromSlice[T any](capacity int, src []T) (Vec[T], error) {
	v := New[T](capacity)
	for _, e := range src {
		if err := v.PushBack(e); err != nil {
			return Vec[T]{}, err
		}
	}
	return v, nil
}

// Len returns the current number of elements.
func (v *Vec[T]) Len() int { return v.size }

// Cap returns the configured capacity.
func (v *Vec[T]) Cap() int { return v.cap }

// Empty reports whether the sequence has no elements.
func (v *Vec[T]) Empty() bool { return v.size == 0 }

// PushBack appends value, failing with ErrCapacityExceeded if full.
func (v *Vec[T]) PushBack(value T) error {
	if v.size >= v.cap {
		return ErrCapacityExceeded
	}
	v.data[v.size] = value
	v.size++
	return nil
}

// PopBack removes and returns the last element. It is a programmer error
// (assertion) to call this on an empty Vec.
func (v *Vec[T]) PopBack() T {
	if v.size == 0 {
		panic("fixedvec: pop_back on empty vec")
	}
	v.size--
	var zero T
	out := v.data[v.size]
	v.data[v.size] = zero
	return out
}

// Clear empties the sequence, zeroing freed slots.
func (v *Vec[T]) Clear() {
	var zero T
	for i := 0; i < v.size; i++ {
		v.data[i] = zero
	}
	v.size = 0
}

// Resize grows or shrinks the sequence to n elements. Growing
// default-constructs the new tail; shrinking destroys the tail in
// reverse order (here: zeroes it). Fails with ErrCapacityExceeded if n
// exceeds capacity.
func (v *Vec[T]) Resize(n int) error {
	var zero T
	return v.ResizeWith(n, zero)
}

// ResizeWith is Resize but fills any newly-grown tail with val instead of
// the zero value.
func (v *Vec[T]) ResizeWith(n int, val T) error {
	if n > v.cap {
		return ErrCapacityExceeded
	}
	if n < v.size {
		var zero T
		for i := n; i < v.size; i++ {
			v.data[i] = zero
		}
	} else {
		for i := v.size; i < n; i++ {
			v.data[i] = val
		}
	}
	v.size = n
	return nil
}

// At returns a pointer to the element at index i. It is a programmer
// error (assertion) to call this out of range.
func (v *Vec[T]) At(i int) *T {
	if i < 0 || i >= v.size {
		panic("fixedvec: index out of range")
	}
	return &v.data[i]
}

// CheckedAt returns a pointer to the element at index i, or
// ErrIndexOutOfRange if i is out of bounds.
func (v *Vec[T]) CheckedAt(i int) (*T, error) {
	if i < 0 || i >= v.size {
		return nil, ErrIndexOutOfRange
	}
	return &v.data[i], nil
}

// Reserve is a no-op given the inline backing array already holds Cap()
// elements; it only validates that k does not exceed the configured
// capacity.
func (v *Vec[T]) Reserve(k int) error {
	if k > v.cap {
		return ErrCapacityExceeded
	}
	return nil
}

// Front returns a pointer to the first element (programmer error if empty).
func (v *Vec[T]) Front() *T { return v.At(0) }

// Back returns a pointer to the last element (programmer error if empty).
func (v *Vec[T]) Back() *T { return v.At(v.size - 1) }

// Slice returns the valid prefix of the backing array as a slice. The
// slice aliases Vec's storage; callers must not retain it past further
// mutation of v.
func (v *Vec[T]) Slice() []T { return v.data[:v.size] }

// Each calls f for every element in forward order.
func (v *Vec[T]) Each(f func(int, T)) {
	for i := 0; i < v.size; i++ {
		f(i, v.data[i])
	}
}

// EachReverse calls f for every element in reverse order.
func (v *Vec[T]) EachReverse(f func(int, T)) {
	for i := v.size - 1; i >= 0; i-- {
		f(i, v.data[i])
	}
}
