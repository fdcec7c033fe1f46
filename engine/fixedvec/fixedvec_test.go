package fixedvec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushBackCapacityExceeded(t *testing.T) {
	v := New[int](3)
	require.NoError(t, v.PushBack(1))
	require.NoError(t, v.PushBack(2))
	require.NoError(t, v.PushBack(3))
	err := v.PushBack(4)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 3, v.Len())
}

func TestCheckedAtOutOfRange(t *testing.T) {
	v := New[string](2)
	require.NoError(t, v.PushBack("a"))
	_, err := v.CheckedAt(1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	p, err := v.CheckedAt(0)
	require.NoError(t, err)
	assert.Equal(t, "a", *p)
}

func TestResizeGrowShrink(t *testing.T) {
	v := New[int](5)
	require.NoError(t, v.PushBack(1))
	require.NoError(t, v.ResizeWith(4, 9))
	assert.Equal(t, []int{1, 9, 9, 9}, v.Slice())
	require.NoError(t, v.Resize(1))
	assert.Equal(t, []int{1}, v.Slice())
	assert.Equal(t, 1, v.Len())
}

func TestResizeOverCapacity(t *testing.T) {
	v := New[int](2)
	err := v.Resize(3)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestFrontBackAndClear(t *testing.T) {
	v := New[int](4)
	require.NoError(t, v.PushBack(10))
	require.NoError(t, v.PushBack(20))
	require.NoError(t, v.PushBack(30))
	assert.Equal(t, 10, *v.Front())
	assert.Equal(t, 30, *v.Back())
	assert.Equal(t, 30, v.PopBack())
	assert.Equal(t, 2, v.Len())
	v.Clear()
	assert.True(t, v.Empty())
}

func TestReserveRejectsOverCap(t *testing.T) {
	v := New[int](4)
	require.NoError(t, v.Reserve(4))
	require.ErrorIs(t, v.Reserve(5), ErrCapacityExceeded)
}

func TestNewFromSliceOverflow(t *testing.T) {
	_, err := NewFromSlice(2, []int{1, 2, 3})
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestEachOrdering(t *testing.T) {
	v := New[int](4)
	for _, x := range []int{1, 2, 3} {
		require.NoError(t, v.PushBack(x))
	}
	var fwd []int
	v.Each(func(i, val int) { fwd = append(fwd, val) })
	assert.Equal(t, []int{1, 2, 3}, fwd)
	var rev []int
	v.EachReverse(func(i, val int) { rev = append(rev, val) })
	assert.Equal(t, []int{3, 2, 1}, rev)
}
