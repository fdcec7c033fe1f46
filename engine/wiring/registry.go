// Package wiring owns the weak registry of per-target-process frame
// segments. It contains no helpers that translate raw events into ring
// writes.
package wiring

import (
	"sync"
	"weak"
)

// FrameSegmentHandle is a strong, reference-counted-by-Go's-GC handle to
// a target process's frame segment. Registry hands these out and only
// holds weak.Pointer references to them, so its entry for a pid lapses
// once the last strong handle (held by whichever sessions requested
// tracking for that pid) is collected. Registry never calls Close: the
// segment is released only when some holder calls Close.
type FrameSegmentHandle struct {
	Pid   int
	Close func() error
}

// Registry maps pid -> the live FrameSegmentHandle for that pid, using
// weak.Pointer so entries are garbage-collected rather than
// ref-counted. Mutations sweep dead entries, matching "garbage
// collected on next registry mutation" from §4.8.
type Registry struct {
	mu      sync.Mutex
	entries map[int]weak.Pointer[FrameSegmentHandle]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]weak.Pointer[FrameSegmentHandle])}
}

// GetOrCreate returns the live handle for pid if one exists, or calls
// create to make a new one and registers it. Sweeps expired entries
// from the map as a side effect.
func (r *Registry) GetOrCreate(pid int, create func() (*FrameSegmentHandle, error)) (*FrameSegmentHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	if wp, ok := r.entries[pid]; ok {
		if h := wp.Value(); h != nil {
			return h, nil
		}
		delete(r.entries, pid)
	}

	h, err := create()
	if err != nil {
		return nil, err
	}
	r.entries[pid] = weak.Make(h)
	return h, nil
}

// Len reports the number of live (non-expired) entries, after sweeping.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.entries)
}

func (r *Registry) sweepLocked() {
	for pid, wp := range r.entries {
		if wp.Value() == nil {
			delete(r.entries, pid)
		}
	}
}
