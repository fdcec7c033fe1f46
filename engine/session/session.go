// Package session tracks per-client control state (SessionContext) and
// reduces the set of active sessions' requested telemetry/flush
// periods down to the single, tightest values the producer's sampling
// loops should run at.
package session

import (
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests, adapted from the
// sharded rate limiter's testability pattern.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Context is one client's control state: the pids it tracks, its
// requested sampling cadence, and the metrics it actually reads.
type Context struct {
	ID              string
	TrackedPids     map[int]struct{}
	TelemetryPeriod time.Duration
	FlushPeriod     time.Duration
	MetricUse       map[uint32]struct{}
	createdAt       time.Time
}

// Map is the control-mutex-guarded collection of active sessions. A
// single mutex (rather than a sharded table) is appropriate here:
// session churn is client-connect/disconnect rate, orders of magnitude
// below the per-domain request rate a sharded rate limiter is built for.
type Map struct {
	mu       sync.Mutex
	sessions map[string]*Context
	clock    Clock
}

// NewMap returns an empty session Map using the real wall clock.
func NewMap() *Map {
	return &Map{sessions: make(map[string]*Context), clock: realClock{}}
}

// WithClock overrides the clock, for deterministic tests.
func (m *Map) WithClock(c Clock) *Map {
	if c != nil {
		m.clock = c
	}
	return m
}

// Register adds a new session, replacing any existing one with the
// same id.
func (m *Map) Register(ctx *Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx.createdAt = m.clock.Now()
	m.sessions[ctx.ID] = ctx
}

// Teardown removes a session by id, invoking release for every pid it
// was tracking so the caller can drop its strong frame-segment handle.
// Returns false if id was not registered.
func (m *Map) Teardown(id string, release func(pid int)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.sessions[id]
	if !ok {
		return false
	}
	delete(m.sessions, id)
	if release != nil {
		for pid := range ctx.TrackedPids {
			release(pid)
		}
	}
	return true
}

// Len reports the number of active sessions.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ReducedTelemetryPeriod returns the minimum TelemetryPeriod across all
// active sessions, i.e. the cadence the GPU/CPU sampling loops must run
// at to satisfy every session's request. Returns fallback if there are
// no active sessions.
func (m *Map) ReducedTelemetryPeriod(fallback time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return reduceMin(m.sessions, fallback, func(c *Context) time.Duration { return c.TelemetryPeriod })
}

// ReducedFlushPeriod is ReducedTelemetryPeriod's trace-flush-cadence
// counterpart.
func (m *Map) ReducedFlushPeriod(fallback time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return reduceMin(m.sessions, fallback, func(c *Context) time.Duration { return c.FlushPeriod })
}

func reduceMin(sessions map[string]*Context, fallback time.Duration, pick func(*Context) time.Duration) time.Duration {
	best := fallback
	has := false
	for _, ctx := range sessions {
		v := pick(ctx)
		if v <= 0 {
			continue
		}
		if !has || v < best {
			best = v
			has = true
		}
	}
	return best
}

// UnionMetricUse returns the union of every active session's requested
// metric-use set, used to decide which rings the producer must keep
// sampling.
func (m *Map) UnionMetricUse() map[uint32]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint32]struct{})
	for _, ctx := range m.sessions {
		for id := range ctx.MetricUse {
			out[id] = struct{}{}
		}
	}
	return out
}
