// Package comms implements the service- and middleware-side façades
// that orchestrate segment creation/opening and the registration/lookup
// of the stores inside them.
package comms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lattice-gfx/frameipc/engine/apperr"
	"github.com/lattice-gfx/frameipc/engine/capabilities"
	"github.com/lattice-gfx/frameipc/engine/introspection"
	"github.com/lattice-gfx/frameipc/engine/resources"
	"github.com/lattice-gfx/frameipc/engine/shmseg"
	"github.com/lattice-gfx/frameipc/engine/telemetrymap"
	"github.com/lattice-gfx/frameipc/engine/wiring"
)

// semaphorePostCount is the number of times the introspection semaphore
// is posted at finalization, sized generously so straggler readers are
// never blocked, per §4.6.
const semaphorePostCount = 8

// defaultRingDepth is used for every telemetry ring a device registers.
const defaultRingDepth = 128

// ErrNotRegistered is returned when a lookup targets a device id that
// was never registered.
var ErrNotRegistered = apperr.New(apperr.NotPresent, "comms: device not registered")

// ServiceComms is the producer-side façade: it owns the introspection
// store and its handshake primitives, the per-device telemetry maps, and
// the frame-segment registry. It does not create any shmseg segment;
// the introspection, system and GPU segments are created separately
// with shmseg.Create.
type ServiceComms struct {
	namer shmseg.Namer
	log   *slog.Logger

	introStore *introspection.Store
	introSem   introspection.Semaphore
	introLock  introspection.SharableLock

	gpuFinalized bool
	cpuFinalized bool

	gpuTelemetry map[int]*telemetrymap.Map
	sysTelemetry *telemetrymap.Map

	// metrics accumulates per-metric device availability across both
	// RegisterGPUDevice and RegisterCPUDevice calls, keyed by metric id,
	// so a metric shared by several devices gets one Metric entry with
	// every device's array count rather than one duplicate per device.
	// Flushed into introStore at finalize().
	metrics map[uint32]*introspection.Metric

	frames    *wiring.Registry
	resources *resources.Manager
}

// NewServiceComms creates the introspection segment's in-process
// bookkeeping (the store plus its handshake primitives) under namer and
// returns a ready-to-populate ServiceComms.
func NewServiceComms(namer shmseg.Namer, logger *slog.Logger) *ServiceComms {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceComms{
		namer:        namer,
		log:          logger,
		introStore:   introspection.NewStore(),
		gpuTelemetry: make(map[int]*telemetrymap.Map),
		sysTelemetry: telemetrymap.New(logger),
		metrics:      make(map[uint32]*introspection.Metric),
		frames:       wiring.NewRegistry(),
	}
}

// recordMetricAvailability notes that metricID is available on deviceID
// with the given array count, creating the metric's tree entry on first
// sight. Called for every registered metric regardless of MetricKind:
// §3.1 ties per-device availability to the metric itself, not to
// whether it happens to back a telemetry ring.
func (s *ServiceComms) recordMetricAvailability(deviceID int, metricID uint32, arrayCount int, valueType telemetrymap.ValueType) {
	m, ok := s.metrics[metricID]
	if !ok {
		m = &introspection.Metric{ID: metricID, ValueType: valueType.String(), PerDevice: make(map[int]int)}
		s.metrics[metricID] = m
	}
	m.PerDevice[deviceID] = arrayCount
}

// RegisterGPUDevice appends a GPU device to the introspection tree,
// allocates its telemetry rings from caps (excluding static metrics, per
// metricKind), and returns the device id.
func (s *ServiceComms) RegisterGPUDevice(vendor introspection.VendorID, name string, caps capabilities.MetricCapabilities, ringable func(metricID uint32) (kind MetricKind, valueType telemetrymap.ValueType)) (int, error) {
	s.introLock.Lock()
	defer s.introLock.Unlock()

	id := len(s.gpuTelemetry)
	if err := s.introStore.AddDevice(introspection.Device{ID: id, Vendor: vendor, Name: name}); err != nil {
		return 0, err
	}
	tm := telemetrymap.New(s.log)
	for metricID, arrayCount := range caps {
		kind, valueType := ringable(metricID)
		s.recordMetricAvailability(id, metricID, arrayCount, valueType)
		if kind != MetricKindSampled {
			continue
		}
		if err := tm.AddRing(metricID, defaultRingDepth, arrayCount, valueType); err != nil {
			return 0, fmt.Errorf("comms: register gpu device %d metric %d: %w", id, metricID, err)
		}
	}
	s.gpuTelemetry[id] = tm
	return id, nil
}

// RegisterCPUDevice is RegisterGPUDevice's system-device counterpart;
// the system device is a singleton, so it has no id.
func (s *ServiceComms) RegisterCPUDevice(vendor introspection.VendorID, name string, caps capabilities.MetricCapabilities, ringable func(metricID uint32) (kind MetricKind, valueType telemetrymap.ValueType)) error {
	s.introLock.Lock()
	defer s.introLock.Unlock()

	if err := s.introStore.AddDevice(introspection.Device{ID: -1, Vendor: vendor, Name: name}); err != nil {
		return err
	}
	for metricID, arrayCount := range caps {
		kind, valueType := ringable(metricID)
		s.recordMetricAvailability(-1, metricID, arrayCount, valueType)
		if kind != MetricKindSampled {
			continue
		}
		if err := s.sysTelemetry.AddRing(metricID, defaultRingDepth, arrayCount, valueType); err != nil {
			return fmt.Errorf("comms: register cpu device metric %d: %w", metricID, err)
		}
	}
	return nil
}

// MetricKind distinguishes metrics that get a history ring allocated
// from ones that don't (static or middleware-derived values).
type MetricKind int

const (
	MetricKindSampled MetricKind = iota
	MetricKindStatic
	MetricKindMiddlewareDerived
)

// FinalizeGPUDevices marks GPU registration complete. Once both GPU and
// CPU sides are finalized, the introspection tree is sorted and the
// semaphore is posted semaphorePostCount times.
func (s *ServiceComms) FinalizeGPUDevices() {
	s.introLock.Lock()
	s.gpuFinalized = true
	done := s.gpuFinalized && s.cpuFinalized
	s.introLock.Unlock()
	if done {
		s.finalize()
	}
}

// FinalizeCPUDevice is FinalizeGPUDevices' system-device counterpart.
func (s *ServiceComms) FinalizeCPUDevice() {
	s.introLock.Lock()
	s.cpuFinalized = true
	done := s.gpuFinalized && s.cpuFinalized
	s.introLock.Unlock()
	if done {
		s.finalize()
	}
}

func (s *ServiceComms) finalize() {
	s.introLock.Lock()
	for _, m := range s.metrics {
		// Only fails once finalized, which can't happen here.
		_ = s.introStore.AddMetric(*m)
	}
	s.introStore.Finalize()
	s.introLock.Unlock()
	for i := 0; i < semaphorePostCount; i++ {
		s.introSem.Post()
	}
}

// GPUTelemetry returns the telemetry map for a registered GPU device id.
func (s *ServiceComms) GPUTelemetry(id int) (*telemetrymap.Map, error) {
	tm, ok := s.gpuTelemetry[id]
	if !ok {
		return nil, ErrNotRegistered
	}
	return tm, nil
}

// SystemTelemetry returns the system device's telemetry map.
func (s *ServiceComms) SystemTelemetry() *telemetrymap.Map { return s.sysTelemetry }

// SetResourceManager installs a resources.Manager to bound concurrent
// frame-segment creation. Without one, CreateOrGetFrameSegment admits
// creations unconditionally.
func (s *ServiceComms) SetResourceManager(mgr *resources.Manager) { s.resources = mgr }

// frameHandleAdapter lets a *wiring.FrameSegmentHandle (whose Close is a
// field, not a method, so its segment-release func can be set per
// instance) satisfy resources.Handle.
type frameHandleAdapter struct{ h *wiring.FrameSegmentHandle }

func (a frameHandleAdapter) Close() error {
	if a.h.Close == nil {
		return nil
	}
	return a.h.Close()
}

// CreateOrGetFrameSegment returns the (possibly newly created) frame
// segment handle for pid, deduplicated via the weak registry. If a
// resource manager is installed, creation is gated by its concurrency
// slots and the resulting handle is tracked in its LRU.
func (s *ServiceComms) CreateOrGetFrameSegment(pid int, create func() (*wiring.FrameSegmentHandle, error)) (*wiring.FrameSegmentHandle, error) {
	if s.resources == nil {
		return s.frames.GetOrCreate(pid, create)
	}

	if err := s.resources.Acquire(context.Background()); err != nil {
		return nil, fmt.Errorf("comms: acquire frame segment slot for pid %d: %w", pid, err)
	}
	defer s.resources.Release()

	h, err := s.frames.GetOrCreate(pid, create)
	if err != nil {
		return nil, err
	}
	s.resources.Track(pid, frameHandleAdapter{h})
	return h, nil
}

// IntrospectionRoot returns the current (possibly not-yet-finalized)
// introspection tree, for service-side inspection.
func (s *ServiceComms) IntrospectionRoot() introspection.Root { return s.introStore.Root() }

// WaitSemaphore exposes the introspection semaphore for test/harness
// code that wants to observe finalization without going through a
// MiddlewareComms.
func (s *ServiceComms) WaitSemaphore(timeout time.Duration) error { return s.introSem.Wait(timeout) }

// CloneIntrospection implements MiddlewareComms' introspection read
// path: wait on the holdoff semaphore, take a shared lock, and clone the
// tree into a flat buffer. This is the in-process stand-in for the
// original's "open segment, wait on named semaphore, take named shared
// lock" sequence — Go has no cross-process named semaphore/rwlock, so
// callers here reach the same ServiceComms instance directly rather
// than through a second OS process (see DESIGN.md).
func (s *ServiceComms) CloneIntrospection(timeout time.Duration) ([]byte, error) {
	if err := s.introSem.Wait(timeout); err != nil {
		return nil, fmt.Errorf("comms: get introspection root: %w", err)
	}
	s.introLock.RLock()
	defer s.introLock.RUnlock()
	return introspection.CloneToFlatBuffer(s.introStore.Root())
}
