// Package telemetrymap implements the metric-id-keyed collection of
// scalar history rings that backs a device or process telemetry
// segment's sampled metrics.
package telemetrymap

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/lattice-gfx/frameipc/engine/apperr"
	"github.com/lattice-gfx/frameipc/engine/history"
)

// ValueType selects which scalar arm of the variant a metric is stored
// as. Integer- or enum-typed metrics registered as ValueTypeFloat64 are
// coerced to float64 at push time.
type ValueType int

const (
	ValueTypeFloat64 ValueType = iota
	ValueTypeUint64
	ValueTypeBool
)

// String returns the value type's wire-format name, as recorded in an
// introspection Metric's ValueType field.
func (vt ValueType) String() string {
	switch vt {
	case ValueTypeFloat64:
		return "float64"
	case ValueTypeUint64:
		return "uint64"
	case ValueTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ErrAlreadyPresent is returned by AddRing when metricID is already mapped.
var ErrAlreadyPresent = apperr.New(apperr.AlreadyPresent, "telemetrymap: metric already present")

// ErrNotPresent is returned by lookups that miss.
var ErrNotPresent = apperr.New(apperr.NotPresent, "telemetrymap: metric not present")

// ErrWrongValueType is returned when a typed lookup doesn't match the
// metric's registered arm.
var ErrWrongValueType = errors.New("telemetrymap: value type mismatch")

// entry is the type-erased variant stored per metric id: exactly one of
// the three slices is non-nil, per the registered ValueType.
type entry struct {
	valueType ValueType
	f64Rings  []*history.Ring[float64]
	u64Rings  []*history.Ring[uint64]
	boolRings []*history.Ring[bool]
}

func (e *entry) arrayCount() int {
	switch e.valueType {
	case ValueTypeFloat64:
		return len(e.f64Rings)
	case ValueTypeUint64:
		return len(e.u64Rings)
	default:
		return len(e.boolRings)
	}
}

// Map is the metric-id -> variant collection. The zero value is not
// usable; construct with New.
type Map struct {
	entries map[uint32]*entry
	log     *slog.Logger
}

// New constructs an empty Map.
func New(logger *slog.Logger) *Map {
	if logger == nil {
		logger = slog.Default()
	}
	return &Map{entries: make(map[uint32]*entry), log: logger}
}

// AddRing registers metricID with arrayCount independent history rings,
// each of ringDepth capacity, of the given valueType. Fails with
// ErrAlreadyPresent if metricID is already mapped, leaving the map
// unchanged.
func (m *Map) AddRing(metricID uint32, ringDepth, arrayCount int, valueType ValueType) error {
	if _, exists := m.entries[metricID]; exists {
		return ErrAlreadyPresent
	}
	e := &entry{valueType: valueType}
	switch valueType {
	case ValueTypeFloat64:
		for i := 0; i < arrayCount; i++ {
			r, err := history.New[float64](ringDepth, false, m.log)
			if err != nil {
				return err
			}
			e.f64Rings = append(e.f64Rings, r)
		}
	case ValueTypeUint64:
		for i := 0; i < arrayCount; i++ {
			r, err := history.New[uint64](ringDepth, false, m.log)
			if err != nil {
				return err
			}
			e.u64Rings = append(e.u64Rings, r)
		}
	case ValueTypeBool:
		for i := 0; i < arrayCount; i++ {
			r, err := history.New[bool](ringDepth, false, m.log)
			if err != nil {
				return err
			}
			e.boolRings = append(e.boolRings, r)
		}
	}
	m.entries[metricID] = e
	return nil
}

// FindFloat64Rings returns the ring vector for a float64-typed metric.
func (m *Map) FindFloat64Rings(metricID uint32) ([]*history.Ring[float64], error) {
	e, ok := m.entries[metricID]
	if !ok {
		return nil, ErrNotPresent
	}
	if e.valueType != ValueTypeFloat64 {
		return nil, ErrWrongValueType
	}
	return e.f64Rings, nil
}

// FindUint64Rings returns the ring vector for a uint64-typed metric.
func (m *Map) FindUint64Rings(metricID uint32) ([]*history.Ring[uint64], error) {
	e, ok := m.entries[metricID]
	if !ok {
		return nil, ErrNotPresent
	}
	if e.valueType != ValueTypeUint64 {
		return nil, ErrWrongValueType
	}
	return e.u64Rings, nil
}

// FindBoolRings returns the ring vector for a bool-typed metric.
func (m *Map) FindBoolRings(metricID uint32) ([]*history.Ring[bool], error) {
	e, ok := m.entries[metricID]
	if !ok {
		return nil, ErrNotPresent
	}
	if e.valueType != ValueTypeBool {
		return nil, ErrWrongValueType
	}
	return e.boolRings, nil
}

// ArraySize returns the length of the ring vector for metricID, or 0 if
// the metric is not registered.
func (m *Map) ArraySize(metricID uint32) int {
	e, ok := m.entries[metricID]
	if !ok {
		return 0
	}
	return e.arrayCount()
}

// ValueTypeOf returns the registered value type for metricID.
func (m *Map) ValueTypeOf(metricID uint32) (ValueType, error) {
	e, ok := m.entries[metricID]
	if !ok {
		return 0, ErrNotPresent
	}
	return e.valueType, nil
}

// RingEntry is one (metric_id, value_type, array_count) tuple yielded by
// Rings, for type-erased iteration over the whole map.
type RingEntry struct {
	MetricID   uint32
	ValueType  ValueType
	ArrayCount int
}

// Rings returns a RingEntry (metric id, value type, array count) for
// every registered metric, ordered by metric id for deterministic
// iteration. The rings themselves are fetched with the typed Find*
// lookups.
func (m *Map) Rings() []RingEntry {
	out := make([]RingEntry, 0, len(m.entries))
	for id, e := range m.entries {
		out = append(out, RingEntry{MetricID: id, ValueType: e.valueType, ArrayCount: e.arrayCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricID < out[j].MetricID })
	return out
}
