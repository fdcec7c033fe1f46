// Package introspection implements the service-populated metrics/devices
// tree and the handshake primitives that let middleware clients read a
// consistent snapshot of it without a traditional cross-process lock.
package introspection

import (
	"errors"
	"sort"
)

// VendorID enumerates known hardware vendors; 0 means unknown.
type VendorID int

const VendorUnknown VendorID = 0

// Device is one registered GPU or system device.
type Device struct {
	ID     int
	Vendor VendorID
	Name   string
}

// Metric describes one telemetry metric: its identity, unit, and the
// set of devices it is available on (device id -> array count).
type Metric struct {
	ID         uint32
	Name       string
	Unit       string
	ValueType  string
	PerDevice  map[int]int
}

// Root is the ordered introspection tree: devices, metrics, enums, and
// units, service-populated once during the build phase.
type Root struct {
	Devices []Device
	Metrics []Metric
	Enums   []string
	Units   []string
}

// ErrBuildPhaseClosed is returned by mutators once the store has been
// finalized, enforcing I-introspection-phase.
var ErrBuildPhaseClosed = errors.New("introspection: root is finalized, no further mutation allowed")

// Store owns a Root through its build phase and into its finalized,
// read-only phase.
type Store struct {
	root      Root
	finalized bool
}

// NewStore returns an empty Store in the build phase.
func NewStore() *Store { return &Store{} }

// AddDevice appends a device to the tree. Fails once finalized.
func (s *Store) AddDevice(d Device) error {
	if s.finalized {
		return ErrBuildPhaseClosed
	}
	s.root.Devices = append(s.root.Devices, d)
	return nil
}

// AddMetric appends a metric to the tree. Fails once finalized.
func (s *Store) AddMetric(m Metric) error {
	if s.finalized {
		return ErrBuildPhaseClosed
	}
	s.root.Metrics = append(s.root.Metrics, m)
	return nil
}

// AddEnum and AddUnit append descriptive metadata entries, used by
// client-side display/formatting layers out of the core's scope.
func (s *Store) AddEnum(name string) error {
	if s.finalized {
		return ErrBuildPhaseClosed
	}
	s.root.Enums = append(s.root.Enums, name)
	return nil
}

func (s *Store) AddUnit(name string) error {
	if s.finalized {
		return ErrBuildPhaseClosed
	}
	s.root.Units = append(s.root.Units, name)
	return nil
}

// Finalize sorts the tree's collections and closes the build phase.
// Idempotent.
func (s *Store) Finalize() {
	if s.finalized {
		return
	}
	sort.Slice(s.root.Devices, func(i, j int) bool { return s.root.Devices[i].ID < s.root.Devices[j].ID })
	sort.Slice(s.root.Metrics, func(i, j int) bool { return s.root.Metrics[i].ID < s.root.Metrics[j].ID })
	sort.Strings(s.root.Enums)
	sort.Strings(s.root.Units)
	s.finalized = true
}

// Finalized reports whether Finalize has run.
func (s *Store) Finalized() bool { return s.finalized }

// Root returns the current tree. During the build phase this is the
// live, mutable-by-subsequent-calls tree; after finalization it is
// stable and safe to read concurrently from many goroutines.
func (s *Store) Root() Root { return s.root }
