package comms

import (
	"testing"
	"time"

	"github.com/lattice-gfx/frameipc/engine/capabilities"
	"github.com/lattice-gfx/frameipc/engine/introspection"
	"github.com/lattice-gfx/frameipc/engine/resources"
	"github.com/lattice-gfx/frameipc/engine/shmseg"
	"github.com/lattice-gfx/frameipc/engine/telemetrymap"
	"github.com/lattice-gfx/frameipc/engine/wiring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampledRingable(kind MetricKind) func(uint32) (MetricKind, telemetrymap.ValueType) {
	return func(uint32) (MetricKind, telemetrymap.ValueType) { return kind, telemetrymap.ValueTypeFloat64 }
}

func TestServiceCommsFinalizeWaitsOnBothSides(t *testing.T) {
	namer, err := shmseg.NewNamer("test", "aaaa0000")
	require.NoError(t, err)
	s := NewServiceComms(namer, nil)

	_, err = s.RegisterGPUDevice(introspection.VendorUnknown, "gpu0", capabilities.MetricCapabilities{1: 1}, sampledRingable(MetricKindSampled))
	require.NoError(t, err)
	s.FinalizeGPUDevices()

	err = s.WaitSemaphore(20 * time.Millisecond)
	require.ErrorIs(t, err, introspection.ErrTimeout)

	require.NoError(t, s.RegisterCPUDevice(introspection.VendorUnknown, "cpu", capabilities.MetricCapabilities{2: 1}, sampledRingable(MetricKindSampled)))
	s.FinalizeCPUDevice()

	require.NoError(t, s.WaitSemaphore(50*time.Millisecond))
	assert.True(t, s.IntrospectionRoot().Devices[0].Name != "")
}

func TestServiceCommsSkipsStaticMetrics(t *testing.T) {
	namer, err := shmseg.NewNamer("test", "bbbb0000")
	require.NoError(t, err)
	s := NewServiceComms(namer, nil)

	id, err := s.RegisterGPUDevice(introspection.VendorUnknown, "gpu0",
		capabilities.MetricCapabilities{1: 1, 2: 1},
		func(metricID uint32) (MetricKind, telemetrymap.ValueType) {
			if metricID == 2 {
				return MetricKindStatic, telemetrymap.ValueTypeFloat64
			}
			return MetricKindSampled, telemetrymap.ValueTypeFloat64
		})
	require.NoError(t, err)

	tm, err := s.GPUTelemetry(id)
	require.NoError(t, err)
	assert.Equal(t, 1, tm.ArraySize(1))
	assert.Equal(t, 0, tm.ArraySize(2))
}

func TestCreateOrGetFrameSegmentDeduplicates(t *testing.T) {
	namer, err := shmseg.NewNamer("test", "cccc0000")
	require.NoError(t, err)
	s := NewServiceComms(namer, nil)

	created := 0
	create := func() (*wiring.FrameSegmentHandle, error) {
		created++
		return &wiring.FrameSegmentHandle{Pid: 99}, nil
	}
	h1, err := s.CreateOrGetFrameSegment(99, create)
	require.NoError(t, err)
	h2, err := s.CreateOrGetFrameSegment(99, create)
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, created)
}

func TestCreateOrGetFrameSegmentEvictsViaResourceManager(t *testing.T) {
	namer, err := shmseg.NewNamer("test", "ffff0000")
	require.NoError(t, err)
	s := NewServiceComms(namer, nil)

	mgr := resources.NewManager(resources.Config{MaxTracked: 1}, nil)
	defer mgr.Close()
	s.SetResourceManager(mgr)

	closed := map[int]bool{}
	makeCreate := func(pid int) func() (*wiring.FrameSegmentHandle, error) {
		return func() (*wiring.FrameSegmentHandle, error) {
			return &wiring.FrameSegmentHandle{Pid: pid, Close: func() error {
				closed[pid] = true
				return nil
			}}, nil
		}
	}

	_, err = s.CreateOrGetFrameSegment(1, makeCreate(1))
	require.NoError(t, err)
	_, err = s.CreateOrGetFrameSegment(2, makeCreate(2))
	require.NoError(t, err)

	assert.True(t, closed[1], "oldest tracked segment should be evicted once capacity is exceeded")
	assert.False(t, closed[2])
	assert.Equal(t, 1, mgr.Stats().Tracked)
}

func TestMiddlewareCommsOpensSystemAndGPUSegments(t *testing.T) {
	shmseg.Dir = t.TempDir()
	namer, err := shmseg.NewNamer("test", "dddd0000")
	require.NoError(t, err)
	s := NewServiceComms(namer, nil)

	id, err := s.RegisterGPUDevice(introspection.VendorUnknown, "gpu0", capabilities.MetricCapabilities{1: 1}, sampledRingable(MetricKindSampled))
	require.NoError(t, err)
	require.NoError(t, s.RegisterCPUDevice(introspection.VendorUnknown, "cpu", capabilities.MetricCapabilities{2: 1}, sampledRingable(MetricKindSampled)))
	s.FinalizeGPUDevices()
	s.FinalizeCPUDevice()

	sysSeg, err := shmseg.Create(namer.System(), shmseg.KindSystem, 64*1024)
	require.NoError(t, err)
	defer sysSeg.Close()
	gpuSeg, err := shmseg.Create(namer.GPU(id), shmseg.KindGPU, 64*1024)
	require.NoError(t, err)
	defer gpuSeg.Close()

	mw, err := NewMiddlewareComms(namer, s, 100*time.Millisecond)
	require.NoError(t, err)
	assert.NotNil(t, mw.GetSystemDataStore())
	gpuView, err := mw.GetGPUDataStore(id)
	require.NoError(t, err)
	assert.NotNil(t, gpuView)
}

func TestMiddlewareCommsFrameSegmentOpenClose(t *testing.T) {
	shmseg.Dir = t.TempDir()
	namer, err := shmseg.NewNamer("test", "eeee0000")
	require.NoError(t, err)
	s := NewServiceComms(namer, nil)
	require.NoError(t, s.RegisterCPUDevice(introspection.VendorUnknown, "cpu", capabilities.MetricCapabilities{}, sampledRingable(MetricKindSampled)))
	s.FinalizeGPUDevices()
	s.FinalizeCPUDevice()

	sysSeg, err := shmseg.Create(namer.System(), shmseg.KindSystem, 64*1024)
	require.NoError(t, err)
	defer sysSeg.Close()

	mw, err := NewMiddlewareComms(namer, s, 100*time.Millisecond)
	require.NoError(t, err)

	frameSeg, err := shmseg.Create(namer.Frame(123), shmseg.KindFrame, 64*1024)
	require.NoError(t, err)
	defer frameSeg.Close()

	require.NoError(t, mw.OpenFrameDataStore(123))
	v, err := mw.GetFrameDataStore(123)
	require.NoError(t, err)
	assert.NotNil(t, v)
	require.NoError(t, mw.CloseFrameDataStore(123))
}
