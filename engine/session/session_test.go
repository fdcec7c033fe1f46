package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReducedTelemetryPeriodTakesMinimum(t *testing.T) {
	m := NewMap()
	m.Register(&Context{ID: "a", TelemetryPeriod: 100 * time.Millisecond})
	m.Register(&Context{ID: "b", TelemetryPeriod: 16 * time.Millisecond})
	m.Register(&Context{ID: "c", TelemetryPeriod: 50 * time.Millisecond})

	assert.Equal(t, 16*time.Millisecond, m.ReducedTelemetryPeriod(time.Second))
}

func TestReducedPeriodFallsBackWhenNoSessions(t *testing.T) {
	m := NewMap()
	assert.Equal(t, time.Second, m.ReducedTelemetryPeriod(time.Second))
}

func TestReducedPeriodIgnoresZeroOrNegative(t *testing.T) {
	m := NewMap()
	m.Register(&Context{ID: "a", TelemetryPeriod: 0})
	m.Register(&Context{ID: "b", TelemetryPeriod: 30 * time.Millisecond})
	assert.Equal(t, 30*time.Millisecond, m.ReducedTelemetryPeriod(time.Second))
}

func TestTeardownReleasesTrackedPids(t *testing.T) {
	m := NewMap()
	m.Register(&Context{ID: "a", TrackedPids: map[int]struct{}{10: {}, 20: {}}})

	var released []int
	ok := m.Teardown("a", func(pid int) { released = append(released, pid) })
	require.True(t, ok)
	assert.ElementsMatch(t, []int{10, 20}, released)
	assert.Equal(t, 0, m.Len())
}

func TestTeardownUnknownSessionReturnsFalse(t *testing.T) {
	m := NewMap()
	assert.False(t, m.Teardown("nope", nil))
}

func TestUnionMetricUse(t *testing.T) {
	m := NewMap()
	m.Register(&Context{ID: "a", MetricUse: map[uint32]struct{}{1: {}, 2: {}}})
	m.Register(&Context{ID: "b", MetricUse: map[uint32]struct{}{2: {}, 3: {}}})

	union := m.UnionMetricUse()
	assert.Equal(t, map[uint32]struct{}{1: {}, 2: {}, 3: {}}, union)
}

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

func TestWithClockOverride(t *testing.T) {
	m := NewMap().WithClock(fakeClock{t: time.Unix(1000, 0)})
	m.Register(&Context{ID: "a"})
	assert.Equal(t, time.Unix(1000, 0), m.sessions["a"].createdAt)
}
