package ring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsSmallCapacity(t *testing.T) {
	_, err := New[int](2*ReadMargin-1, false, nil)
	require.ErrorIs(t, err, ErrCapacityTooSmall)
}

func TestEmptyBeforeAnyPush(t *testing.T) {
	r, err := New[int](16, false, nil)
	require.NoError(t, err)
	assert.True(t, r.Empty())
	first, last := r.GetSerialRange()
	assert.Equal(t, uint64(0), first)
	assert.Equal(t, uint64(0), last)
}

// S2: wrap, no missed frames. Capacity 16, push 10, consume all, push 10
// more; verify the safe range and per-serial values.
func TestWrapNoMissedFrames(t *testing.T) {
	r, err := New[int](16, false, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.True(t, r.Push(i, 0))
	}
	r.MarkNextRead(10)
	for i := 10; i < 20; i++ {
		require.True(t, r.Push(i, 0))
	}
	first, last := r.GetSerialRange()
	assert.Equal(t, uint64(8), first)
	assert.Equal(t, uint64(20), last)
	for serial := first; serial < last; serial++ {
		assert.Equal(t, int(serial), r.At(serial))
	}
}

// S3: wrap with missed frames. Capacity 16, push 20 without consuming;
// verify the safe range and per-serial values are still retrievable.
func TestWrapWithMissedFrames(t *testing.T) {
	r, err := New[int](16, false, nil)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.True(t, r.Push(3000+10*i, 0))
	}
	first, last := r.GetSerialRange()
	assert.Equal(t, uint64(8), first)
	assert.Equal(t, uint64(20), last)
	for serial := first; serial < last; serial++ {
		assert.Equal(t, 3000+10*int(serial), r.At(serial))
	}
}

// S4: backpressure. Capacity 8, 12 attempted pushes with a short timeout
// each; the first 8 succeed, the 9th blocks and times out, and a
// mark_next_read unblocks the next push.
func TestBackpressureBlocksAndUnblocks(t *testing.T) {
	r, err := New[int](8, true, nil)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.True(t, r.Push(i, 30*time.Millisecond))
	}
	first, last := r.GetSerialRange()
	assert.Equal(t, uint64(0), first)
	assert.Equal(t, uint64(8), last)

	ok := r.Push(8, 30*time.Millisecond)
	assert.False(t, ok)

	r.MarkNextRead(8)
	ok = r.Push(9, 30*time.Millisecond)
	assert.True(t, ok)
	_, last = r.GetSerialRange()
	assert.Equal(t, uint64(9), last)
}

func TestGetSerialRangeMatchesNextWriteAfterEveryOp(t *testing.T) {
	r, err := New[int](16, false, nil)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.True(t, r.Push(i, 0))
		_, last := r.GetSerialRange()
		assert.Equal(t, uint64(i+1), last)
	}
}

func TestMarkNextReadNeverMovesBackwards(t *testing.T) {
	r, err := New[int](16, false, nil)
	require.NoError(t, err)
	r.MarkNextRead(10)
	r.MarkNextRead(5)
	assert.Equal(t, uint64(10), r.nextRead.Load())
}
