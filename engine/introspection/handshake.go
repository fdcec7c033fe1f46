package introspection

import (
	"sync/atomic"
	"time"

	"github.com/lattice-gfx/frameipc/engine/apperr"
)

// pollInterval matches BoundedRing's backpressured-push cadence, for one
// consistent suspension-point idiom across the module.
const pollInterval = 10 * time.Millisecond

// ErrTimeout is returned by Semaphore.Wait when it expires before a post
// is available to consume.
var ErrTimeout = apperr.New(apperr.IntrospectionTimeout, "introspection: wait timed out")

// Semaphore is a counting semaphore realized as two monotonic counters
// manipulated with sync/atomic, standing in for a named OS semaphore,
// which Go's standard library lacks. It is an ordinary Go value (held
// in ServiceComms), not placed in a segment's mapped bytes, so it only
// synchronizes goroutines of one process. Wait spin-polls at
// pollInterval, the same cadence BoundedRing uses for backpressure.
type Semaphore struct {
	posted   atomic.Uint64
	consumed atomic.Uint64
}

// Post increments the available-unit count by one.
func (s *Semaphore) Post() { s.posted.Add(1) }

// Wait blocks until a posted unit is available to consume, or returns
// ErrTimeout if none arrives within timeout.
func (s *Semaphore) Wait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if s.tryConsume() {
			return nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(pollInterval)
	}
}

func (s *Semaphore) tryConsume() bool {
	for {
		c := s.consumed.Load()
		p := s.posted.Load()
		if c >= p {
			return false
		}
		if s.consumed.CompareAndSwap(c, c+1) {
			return true
		}
	}
}

const (
	sharableWriterBit uint32 = 1 << 31
	sharableReaderMask uint32 = sharableWriterBit - 1
)

// SharableLock is a spinlock-based reader/writer lock, packing a
// writer-held flag into the high bit of a uint32 and the reader count
// into the remaining bits. It stands in for the original's
// boost::interprocess::interprocess_sharable_mutex; like Semaphore it is
// an ordinary Go value, not placed in a segment's mapped bytes.
type SharableLock struct {
	state atomic.Uint32
}

// Lock acquires exclusive access, spin-polling until no readers or
// writer hold the lock.
func (l *SharableLock) Lock() {
	for {
		if l.state.CompareAndSwap(0, sharableWriterBit) {
			return
		}
		time.Sleep(pollInterval)
	}
}

// Unlock releases exclusive access.
func (l *SharableLock) Unlock() { l.state.Store(0) }

// RLock acquires shared access, spin-polling while a writer holds the
// lock.
func (l *SharableLock) RLock() {
	for {
		cur := l.state.Load()
		if cur&sharableWriterBit != 0 {
			time.Sleep(pollInterval)
			continue
		}
		if l.state.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// RUnlock releases shared access.
func (l *SharableLock) RUnlock() {
	for {
		cur := l.state.Load()
		if cur&sharableReaderMask == 0 {
			return
		}
		if l.state.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}
