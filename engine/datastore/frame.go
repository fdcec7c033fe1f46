// Package datastore holds the fixed-layout records shared bit-exact
// between the producer and consumer sides of a frame segment, plus the
// enums those records carry.
package datastore

import "github.com/lattice-gfx/frameipc/engine/fixedvec"

// FrameType classifies a displayed instance's origin.
type FrameType uint8

const (
	FrameTypeNotSet      FrameType = 0
	FrameTypeUnspecified FrameType = 1
	FrameTypeApplication FrameType = 2
	FrameTypeRepeated    FrameType = 3
	FrameTypeIntelXEFG   FrameType = 50
	FrameTypeAMDAFMF     FrameType = 100
)

// PresentResult classifies the outcome of a present call.
type PresentResult uint8

const (
	PresentResultUnknown   PresentResult = 0
	PresentResultPresented PresentResult = 1
	PresentResultDiscarded PresentResult = 2
)

// DisplayedInstance is one entry of a Frame's displayed vector: the
// frame type shown and the QPC timestamp it was shown at.
type DisplayedInstance struct {
	FrameType  FrameType
	ScreenTime uint64
}

// AppInputSample is the application-reported input sample attached to a
// frame, if any.
type AppInputSample struct {
	Timestamp      uint64
	InputDeviceType uint8
}

// Frame is the fixed-layout per-present record, ordered and sized to
// match §6.3 field-for-field so producer and consumer agree on layout
// without a serialization step — the Go analogue of the original's
// plain-old-data PresentEvent-derived record
// (PresentMonUtils/PresentDataUtils.h / Interprocess frame store).
type Frame struct {
	PresentStartTime uint64
	ReadyTime        uint64
	TimeInPresent    uint64

	GpuStartTime      uint64
	GpuDuration       uint64
	GpuVideoDuration  uint64

	AppPropagatedPresentStartTime uint64
	AppPropagatedTimeInPresent    uint64
	AppPropagatedGpuStartTime     uint64
	AppPropagatedReadyTime        uint64
	AppPropagatedGpuDuration      uint64
	AppPropagatedGpuVideoDuration uint64

	AppSimStartTime          uint64
	AppSleepStartTime        uint64
	AppSleepEndTime          uint64
	AppRenderSubmitStartTime uint64
	AppRenderSubmitEndTime   uint64
	AppPresentStartTime      uint64
	AppPresentEndTime        uint64

	AppInputSample AppInputSample

	InputTime      uint64
	MouseClickTime uint64

	Displayed fixedvec.Vec[DisplayedInstance]

	PclSimStartTime  uint64
	PclInputPingTime uint64
	FlipDelay        uint64

	FlipToken  uint32
	FinalState PresentResult

	ProcessID       uint32
	ThreadID        uint32
	SwapChainAddress uint64
	FrameID         uint32
	AppFrameID      uint32
}

// NewFrame returns a zero-valued Frame with its inline displayed vector
// ready to accept up to 10 entries, per the graphics pipeline's bound.
func NewFrame() Frame {
	return Frame{Displayed: fixedvec.New[DisplayedInstance](fixedvec.MaxCap)}
}
