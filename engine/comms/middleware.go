package comms

import (
	"fmt"
	"time"

	"github.com/lattice-gfx/frameipc/engine/introspection"
	"github.com/lattice-gfx/frameipc/engine/shmseg"
)

// IntrospectionSource is implemented by ServiceComms; factored out so
// MiddlewareComms can be constructed against a fake in unit tests.
type IntrospectionSource interface {
	CloneIntrospection(timeout time.Duration) ([]byte, error)
}

// MiddlewareComms is the consumer-side façade. It opens the
// introspection tree once (via source), eagerly opens the system and
// per-GPU telemetry segments, and lazily opens frame segments by name.
type MiddlewareComms struct {
	namer  shmseg.Namer
	source IntrospectionSource

	root introspection.Root

	sys    *shmseg.Viewing
	gpus   map[int]*shmseg.Viewing
	frames map[int]*shmseg.Viewing
}

// NewMiddlewareComms opens the introspection tree from source, waiting
// up to timeout for the service to finalize it, then eagerly opens the
// system segment and one segment per GPU device listed in the tree.
func NewMiddlewareComms(namer shmseg.Namer, source IntrospectionSource, timeout time.Duration) (*MiddlewareComms, error) {
	flat, err := source.CloneIntrospection(timeout)
	if err != nil {
		return nil, err
	}
	root, err := introspection.DecodeFlatBuffer(flat)
	if err != nil {
		return nil, err
	}

	m := &MiddlewareComms{
		namer:  namer,
		source: source,
		root:   root,
		gpus:   make(map[int]*shmseg.Viewing),
		frames: make(map[int]*shmseg.Viewing),
	}

	sys, err := shmseg.Open(namer.System(), shmseg.KindSystem)
	if err != nil {
		return nil, err
	}
	m.sys = sys

	for _, d := range root.Devices {
		if d.ID < 0 {
			continue
		}
		v, err := shmseg.Open(namer.GPU(d.ID), shmseg.KindGPU)
		if err != nil {
			return nil, err
		}
		m.gpus[d.ID] = v
	}
	return m, nil
}

// IntrospectionRoot returns the cloned, immutable introspection tree.
func (m *MiddlewareComms) IntrospectionRoot() introspection.Root { return m.root }

// OpenFrameDataStore opens a viewing mapping over pid's frame segment.
func (m *MiddlewareComms) OpenFrameDataStore(pid int) error {
	if _, ok := m.frames[pid]; ok {
		return nil
	}
	v, err := shmseg.Open(m.namer.Frame(pid), shmseg.KindFrame)
	if err != nil {
		return err
	}
	m.frames[pid] = v
	return nil
}

// CloseFrameDataStore closes and forgets pid's frame segment view.
func (m *MiddlewareComms) CloseFrameDataStore(pid int) error {
	v, ok := m.frames[pid]
	if !ok {
		return nil
	}
	delete(m.frames, pid)
	return v.Close()
}

// GetFrameDataStore returns the viewing handle for pid, opening it first
// if necessary.
func (m *MiddlewareComms) GetFrameDataStore(pid int) (*shmseg.Viewing, error) {
	if err := m.OpenFrameDataStore(pid); err != nil {
		return nil, err
	}
	return m.frames[pid], nil
}

// GetGPUDataStore returns the viewing handle for a GPU device id.
func (m *MiddlewareComms) GetGPUDataStore(id int) (*shmseg.Viewing, error) {
	v, ok := m.gpus[id]
	if !ok {
		return nil, fmt.Errorf("comms: %w: gpu %d", ErrNotRegistered, id)
	}
	return v, nil
}

// GetSystemDataStore returns the system segment's viewing handle.
func (m *MiddlewareComms) GetSystemDataStore() *shmseg.Viewing { return m.sys }
