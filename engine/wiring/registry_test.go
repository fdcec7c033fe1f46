package wiring

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateReturnsSameHandleWhileAlive(t *testing.T) {
	r := NewRegistry()
	created := 0
	makeHandle := func() (*FrameSegmentHandle, error) {
		created++
		return &FrameSegmentHandle{Pid: 42}, nil
	}

	h1, err := r.GetOrCreate(42, makeHandle)
	require.NoError(t, err)
	h2, err := r.GetOrCreate(42, makeHandle)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, created)
	runtime.KeepAlive(h1)
	runtime.KeepAlive(h2)
}

func TestGetOrCreateRecreatesAfterCollection(t *testing.T) {
	r := NewRegistry()
	created := 0
	makeHandle := func() (*FrameSegmentHandle, error) {
		created++
		return &FrameSegmentHandle{Pid: 7}, nil
	}

	h1, err := r.GetOrCreate(7, makeHandle)
	require.NoError(t, err)
	_ = h1
	h1 = nil

	for i := 0; i < 10 && r.Len() > 0; i++ {
		runtime.GC()
	}

	h2, err := r.GetOrCreate(7, makeHandle)
	require.NoError(t, err)
	assert.NotNil(t, h2)
	assert.Equal(t, 2, created)
}

func TestLenReflectsDistinctPids(t *testing.T) {
	r := NewRegistry()
	a, err := r.GetOrCreate(1, func() (*FrameSegmentHandle, error) { return &FrameSegmentHandle{Pid: 1}, nil })
	require.NoError(t, err)
	b, err := r.GetOrCreate(2, func() (*FrameSegmentHandle, error) { return &FrameSegmentHandle{Pid: 2}, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}
