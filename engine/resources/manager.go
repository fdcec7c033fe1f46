// Package resources bounds the number of concurrently-live per-process
// frame segments: a concurrency-slot gate caps how many segment
// creations can be in flight at once, and an LRU cache caps how many
// open segments are tracked at all, evicting (closing) the least
// recently touched one when a new segment would exceed capacity.
//
// This keeps a misbehaving or crashed-and-respawned client population
// from fork-bombing the host with frame segments: creation blocks
// until a slot frees, and once the tracked set is full, the oldest
// segment is closed to make room rather than growing without bound.
package resources

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handle is anything resources.Manager can evict: a reference to a
// live frame segment plus a way to tear it down.
type Handle interface {
	Close() error
}

// Config controls the manager's capacity and concurrency bounds.
type Config struct {
	// MaxTracked is the maximum number of segments kept open
	// simultaneously. Zero means unbounded.
	MaxTracked int
	// MaxInFlight is the maximum number of concurrent Acquire calls
	// (segment creations) admitted at once. Zero means unbounded.
	MaxInFlight int
	// SweepInterval controls how often Stats are logged. Zero disables
	// the background sweep loop.
	SweepInterval time.Duration
}

type trackedEntry struct {
	pid    int
	handle Handle
}

// Manager coordinates bounded access to per-process frame segments.
type Manager struct {
	cfg   Config
	log   *slog.Logger
	slots chan struct{}

	mu      sync.Mutex
	lru     *list.List
	entries map[int]*list.Element

	done chan struct{}
	wg   sync.WaitGroup
}

// Stats is a lightweight snapshot of manager occupancy.
type Stats struct {
	Tracked  int
	InFlight int
}

// NewManager constructs a resource manager for the given configuration.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:     cfg,
		log:     logger,
		lru:     list.New(),
		entries: make(map[int]*list.Element),
		done:    make(chan struct{}),
	}
	if cfg.MaxInFlight > 0 {
		m.slots = make(chan struct{}, cfg.MaxInFlight)
	}
	if cfg.SweepInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}
	return m
}

// Close stops the background sweep loop. It does not close tracked
// handles; callers own their lifetime independently of Close.
func (m *Manager) Close() error {
	close(m.done)
	m.wg.Wait()
	return nil
}

// Acquire reserves a creation slot, blocking until one is free or ctx
// is done. Every successful Acquire must be paired with a Release.
func (m *Manager) Acquire(ctx context.Context) error {
	if m.slots == nil {
		return nil
	}
	select {
	case m.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a creation slot reserved by Acquire.
func (m *Manager) Release() {
	if m.slots == nil {
		return
	}
	select {
	case <-m.slots:
	default:
	}
}

// Track registers a newly created segment handle under pid, evicting
// (closing) the least recently touched tracked handle if doing so
// would exceed MaxTracked. If pid is already tracked, its handle is
// replaced and it is moved to the front of the LRU.
func (m *Manager) Track(pid int, handle Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if element, ok := m.entries[pid]; ok {
		element.Value.(*trackedEntry).handle = handle
		m.lru.MoveToFront(element)
		return
	}

	element := m.lru.PushFront(&trackedEntry{pid: pid, handle: handle})
	m.entries[pid] = element

	if m.cfg.MaxTracked > 0 {
		for len(m.entries) > m.cfg.MaxTracked {
			m.evictOldestLocked()
		}
	}
}

// Touch moves pid's entry to the front of the LRU, marking it
// recently used. It is a no-op if pid is not tracked.
func (m *Manager) Touch(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if element, ok := m.entries[pid]; ok {
		m.lru.MoveToFront(element)
	}
}

// Untrack removes and closes pid's handle, if tracked.
func (m *Manager) Untrack(pid int) error {
	m.mu.Lock()
	element, ok := m.entries[pid]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.entries, pid)
	m.lru.Remove(element)
	m.mu.Unlock()

	return element.Value.(*trackedEntry).handle.Close()
}

func (m *Manager) evictOldestLocked() {
	back := m.lru.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*trackedEntry)
	delete(m.entries, entry.pid)
	m.lru.Remove(back)
	if err := entry.handle.Close(); err != nil {
		m.log.Warn("resources: evicted segment failed to close cleanly", "pid", entry.pid, "error", err)
	} else {
		m.log.Info("resources: evicted segment to stay within capacity", "pid", entry.pid)
	}
}

// Stats returns a point-in-time snapshot of manager occupancy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	tracked := len(m.entries)
	m.mu.Unlock()
	inFlight := 0
	if m.slots != nil {
		inFlight = len(m.slots)
	}
	return Stats{Tracked: tracked, InFlight: inFlight}
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s := m.Stats()
			m.log.Info("resources: occupancy", "tracked", s.Tracked, "in_flight", s.InFlight)
		case <-m.done:
			return
		}
	}
}
