package shmseg

import "github.com/lattice-gfx/frameipc/engine/telemetrymap"

// segmentAlignment is the final segment byte-alignment boundary.
const segmentAlignment = 64 * 1024

// leeway is the minimum per-segment headroom over the raw payload: the
// scaled size is raised to payload+leeway when scaling alone gives less,
// giving small segments enough room for bookkeeping overhead.
const leeway = 4 * 1024

// DeviceType selects the scale factor used when sizing a telemetry
// segment. Frame segments use their own fixed scale (see FrameSegmentSize).
type DeviceType int

const (
	DeviceTypeGPU DeviceType = iota
	DeviceTypeSystem
)

// MetricSizeSpec is one metric's contribution to a telemetry segment's
// payload: its per-ring sample type, ring depth, and array dimension.
type MetricSizeSpec struct {
	ValueType telemetrymap.ValueType
	RingDepth int
	ArrayCount int
}

// sampleBytes returns the per-sample footprint of a history ring slot:
// the value, padded up to 8 bytes, plus 8 bytes for the timestamp.
func sampleBytes(vt telemetrymap.ValueType) int {
	var valueSize int
	switch vt {
	case telemetrymap.ValueTypeFloat64, telemetrymap.ValueTypeUint64:
		valueSize = 8
	case telemetrymap.ValueTypeBool:
		valueSize = 1
	}
	padded := ((valueSize + 7) / 8) * 8
	return padded + 8
}

func alignUp(n, boundary int) int {
	if n%boundary == 0 {
		return n
	}
	return (n/boundary + 1) * boundary
}

func payloadBytes(metrics []MetricSizeSpec) int {
	total := 0
	for _, m := range metrics {
		total += m.ArrayCount * m.RingDepth * sampleBytes(m.ValueType)
	}
	return total
}

func scaleAndAlign(payload, scaleMul, scaleDiv int) int {
	scaled := payload * scaleMul / scaleDiv
	if scaled < payload+leeway {
		scaled = payload + leeway
	}
	return alignUp(scaled, segmentAlignment)
}

// TelemetrySegmentSize returns the total aligned byte size for a GPU or
// system telemetry segment given its metric set.
func TelemetrySegmentSize(deviceType DeviceType, metrics []MetricSizeSpec) int {
	payload := payloadBytes(metrics)
	switch deviceType {
	case DeviceTypeGPU:
		return scaleAndAlign(payload, 3, 1)
	default:
		return scaleAndAlign(payload, 2, 1)
	}
}

// FrameSegmentSize returns the total aligned byte size for a frame
// segment holding ringDepth Frame records.
func FrameSegmentSize(ringDepth int, frameBytes int) int {
	payload := ringDepth * frameBytes
	return scaleAndAlign(payload, 3, 2)
}
