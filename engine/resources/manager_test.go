package resources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	closed bool
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

func TestTrackAndUntrack(t *testing.T) {
	mgr := NewManager(Config{}, nil)
	defer mgr.Close()

	h := &fakeHandle{}
	mgr.Track(1, h)
	assert.Equal(t, 1, mgr.Stats().Tracked)

	require.NoError(t, mgr.Untrack(1))
	assert.True(t, h.closed, "handle should be closed")
	assert.Equal(t, 0, mgr.Stats().Tracked)
}

func TestTrackEvictsOldestWhenOverCapacity(t *testing.T) {
	mgr := NewManager(Config{MaxTracked: 2}, nil)
	defer mgr.Close()

	h1, h2, h3 := &fakeHandle{}, &fakeHandle{}, &fakeHandle{}
	mgr.Track(1, h1)
	mgr.Track(2, h2)
	mgr.Track(3, h3)

	assert.Equal(t, 2, mgr.Stats().Tracked)
	assert.True(t, h1.closed, "least recently touched entry should be evicted")
	assert.False(t, h2.closed)
	assert.False(t, h3.closed)
}

func TestTouchProtectsFromEviction(t *testing.T) {
	mgr := NewManager(Config{MaxTracked: 2}, nil)
	defer mgr.Close()

	h1, h2, h3 := &fakeHandle{}, &fakeHandle{}, &fakeHandle{}
	mgr.Track(1, h1)
	mgr.Track(2, h2)
	mgr.Touch(1)
	mgr.Track(3, h3)

	assert.False(t, h1.closed, "touched entry should survive eviction")
	assert.True(t, h2.closed, "untouched entry should be evicted instead")
}

func TestTrackReplacesHandleForSamePid(t *testing.T) {
	mgr := NewManager(Config{}, nil)
	defer mgr.Close()

	h1, h2 := &fakeHandle{}, &fakeHandle{}
	mgr.Track(1, h1)
	mgr.Track(1, h2)

	assert.Equal(t, 1, mgr.Stats().Tracked)
	require.NoError(t, mgr.Untrack(1))
	assert.True(t, h2.closed)
	assert.False(t, h1.closed, "replaced handle is not itself closed by Track")
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	mgr := NewManager(Config{MaxInFlight: 1}, nil)
	defer mgr.Close()

	ctx := context.Background()
	require.NoError(t, mgr.Acquire(ctx))

	blocked := make(chan error, 1)
	go func() {
		ctx2, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		blocked <- mgr.Acquire(ctx2)
	}()

	assert.ErrorIs(t, <-blocked, context.DeadlineExceeded)

	mgr.Release()
	require.NoError(t, mgr.Acquire(ctx))
}

func TestUntrackUnknownPidIsNoop(t *testing.T) {
	mgr := NewManager(Config{}, nil)
	defer mgr.Close()
	assert.NoError(t, mgr.Untrack(999))
}
