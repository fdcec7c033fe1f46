// Package calculator implements the per-swapchain state machine that
// turns a stream of raw present/telemetry frame records into
// per-displayed-instance metrics, including cross-frame postponement,
// the NV2 collapsed-present fix-up, and animation-time source
// selection.
package calculator

import (
	"log/slog"

	"github.com/lattice-gfx/frameipc/engine/datastore"
)

// maxPendingPresents bounds the postponed-frame queue. I-swapchain-postpone
// guarantees at most one entry is ever logically outstanding under
// correct use; the cap is a defensive backstop (Open Question #3).
const maxPendingPresents = 16

// AnimationSource identifies which upstream timestamp seeds
// animation_time. Sticky once transitioned away from CpuStart.
type AnimationSource int

const (
	AnimationSourceCpuStart AnimationSource = iota
	AnimationSourceAppProvider
	AnimationSourcePCLatency
)

// Metrics is one emitted per-displayed-instance (or not-displayed)
// record.
type Metrics struct {
	TimeInSeconds          float64
	MsBetweenPresents      float64
	MsInPresentAPI         float64
	MsUntilRenderComplete  float64
	CPUStartQPC            uint64
	AnimationTime          float64
	MsUntilDisplayed       float64
	MsDisplayedTime        float64
	MsBetweenDisplayChange float64
	MsFlipDelay            float64
	ScreenTimeQPC          uint64
	Displayed              bool
	FrameType              datastore.FrameType
}

// SwapChainCoreState is the per-swapchain bookkeeping described in
// §4.5.2. Not shared across goroutines; one instance per swapchain,
// owned by its calculator.
type SwapChainCoreState struct {
	lastPresent    *datastore.Frame
	lastAppPresent *datastore.Frame

	lastDisplayedScreenTime    uint64
	lastDisplayedFlipDelay     uint64
	lastDisplayedAppScreenTime uint64
	lastDisplayedSimStartTime  uint64
	firstAppSimStartTime       uint64

	pendingPresents []datastore.Frame

	animationErrorSource AnimationSource

	accumulatedInputToFrameStart float64

	lastReceivedNotDisplayedAllInput      uint64
	lastReceivedNotDisplayedMouseClick    uint64
	lastReceivedNotDisplayedAppProviderIn uint64
}

// NewSwapChainCoreState returns a fresh state with the default
// CpuStart animation source.
func NewSwapChainCoreState() *SwapChainCoreState {
	return &SwapChainCoreState{}
}

// Calculator drives one SwapChainCoreState through a sequence of
// incoming frames, at a fixed QPC frequency.
type Calculator struct {
	state   *SwapChainCoreState
	qpcFreq uint64
	log     *slog.Logger
}

// NewCalculator returns a Calculator for a single swapchain.
func NewCalculator(qpcFreq uint64, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{state: NewSwapChainCoreState(), qpcFreq: qpcFreq, log: logger}
}

// State exposes the swapchain state for inspection in tests.
func (c *Calculator) State() *SwapChainCoreState { return c.state }

func deltaMs(a, b, qpcFreq uint64) float64 {
	if qpcFreq == 0 {
		return 0
	}
	return float64(int64(b)-int64(a)) * 1000 / float64(qpcFreq)
}

// Push processes one incoming frame in present-start-time order,
// returning every metrics record it causes to be emitted. Push does not
// validate frames: a frame with no displayed instances or a final state
// other than Presented always takes the not-displayed path and yields
// one metrics record, and no frame is rejected as malformed.
func (c *Calculator) Push(frame datastore.Frame) []Metrics {
	s := c.state
	displayedCount := frame.Displayed.Len()

	if displayedCount == 0 || frame.FinalState != datastore.PresentResultPresented {
		m := c.notDisplayedMetrics(frame)
		s.lastPresent = &frame
		s.lastAppPresent = &frame
		s.lastDisplayedScreenTime = 0
		s.lastDisplayedFlipDelay = 0
		return []Metrics{m}
	}

	var out []Metrics

	if len(s.pendingPresents) > 0 {
		pending := s.pendingPresents[0]
		s.pendingPresents = s.pendingPresents[1:]
		nextScreenTime := frame.Displayed.Slice()[0].ScreenTime
		lastIdx := pending.Displayed.Len() - 1
		out = append(out, c.emitDisplayedInstance(&pending, lastIdx, &nextScreenTime))
		c.updateChainAfterEmission(&pending, lastIdx)
	}

	for i := 0; i < displayedCount-1; i++ {
		nextScreenTime := frame.Displayed.Slice()[i+1].ScreenTime
		out = append(out, c.emitDisplayedInstance(&frame, i, &nextScreenTime))
	}

	if len(s.pendingPresents) >= maxPendingPresents {
		c.log.Warn("calculator: pending present queue full, dropping frame", "swapchain_address", frame.SwapChainAddress)
		return out
	}
	s.pendingPresents = append(s.pendingPresents, frame)

	return out
}

func (c *Calculator) notDisplayedMetrics(frame datastore.Frame) Metrics {
	return Metrics{
		TimeInSeconds:         float64(frame.PresentStartTime) / float64(c.qpcFreq),
		MsBetweenPresents:     c.msBetweenPresents(frame),
		MsInPresentAPI:        deltaMs(0, frame.TimeInPresent, c.qpcFreq),
		MsUntilRenderComplete: deltaMs(frame.PresentStartTime, frame.ReadyTime, c.qpcFreq),
		CPUStartQPC:           c.cpuStartQPC(),
	}
}

func (c *Calculator) msBetweenPresents(frame datastore.Frame) float64 {
	if c.state.lastPresent == nil {
		return 0
	}
	return deltaMs(c.state.lastPresent.PresentStartTime, frame.PresentStartTime, c.qpcFreq)
}

func (c *Calculator) cpuStartQPC() uint64 {
	s := c.state
	if s.lastAppPresent != nil {
		if s.lastAppPresent.AppPropagatedPresentStartTime != 0 {
			return s.lastAppPresent.AppPropagatedPresentStartTime + s.lastAppPresent.AppPropagatedTimeInPresent
		}
		return s.lastAppPresent.PresentStartTime + s.lastAppPresent.TimeInPresent
	}
	if s.lastPresent != nil {
		return s.lastPresent.PresentStartTime + s.lastPresent.TimeInPresent
	}
	return 0
}

func (c *Calculator) maybeTransitionAnimationSource(frame *datastore.Frame) {
	s := c.state
	if s.animationErrorSource != AnimationSourceCpuStart {
		return
	}
	if frame.AppSimStartTime != 0 {
		s.animationErrorSource = AnimationSourceAppProvider
		s.firstAppSimStartTime = frame.AppSimStartTime
	} else if frame.PclSimStartTime != 0 {
		s.animationErrorSource = AnimationSourcePCLatency
		s.firstAppSimStartTime = frame.PclSimStartTime
	}
}

func (c *Calculator) simStart(frame *datastore.Frame) uint64 {
	cpuStart := c.cpuStartQPC()
	switch c.state.animationErrorSource {
	case AnimationSourceAppProvider:
		if frame.AppSimStartTime != 0 {
			return frame.AppSimStartTime
		}
		return cpuStart
	case AnimationSourcePCLatency:
		if frame.PclSimStartTime != 0 {
			return frame.PclSimStartTime
		}
		return cpuStart
	default:
		return cpuStart
	}
}

// emitDisplayedInstance computes the metrics record for displayed
// instance idx within frame, applying the NV2 collapsed-present
// fix-up against the chain's last emitted effective screen-time/flip
// delay. nextScreenTime, if non-nil, is the screen_time that follows
// this instance (either the next instance in the same frame, or the
// first instance of the resolving next frame).
func (c *Calculator) emitDisplayedInstance(frame *datastore.Frame, idx int, nextScreenTime *uint64) Metrics {
	c.maybeTransitionAnimationSource(frame)
	s := c.state

	inst := frame.Displayed.Slice()[idx]
	effectiveScreenTime := inst.ScreenTime
	effectiveFlipDelay := frame.FlipDelay

	if s.lastDisplayedScreenTime != 0 && s.lastDisplayedFlipDelay != 0 && effectiveScreenTime < s.lastDisplayedScreenTime {
		diff := s.lastDisplayedScreenTime - effectiveScreenTime
		effectiveScreenTime = s.lastDisplayedScreenTime
		effectiveFlipDelay += diff
	}

	m := Metrics{
		TimeInSeconds:         float64(frame.PresentStartTime) / float64(c.qpcFreq),
		MsBetweenPresents:     c.msBetweenPresents(*frame),
		MsInPresentAPI:        deltaMs(0, frame.TimeInPresent, c.qpcFreq),
		MsUntilRenderComplete: deltaMs(frame.PresentStartTime, frame.ReadyTime, c.qpcFreq),
		CPUStartQPC:           c.cpuStartQPC(),
		MsUntilDisplayed:      deltaMs(frame.PresentStartTime, inst.ScreenTime, c.qpcFreq),
		ScreenTimeQPC:         effectiveScreenTime,
		Displayed:             true,
		FrameType:             inst.FrameType,
	}
	if nextScreenTime != nil {
		m.MsDisplayedTime = deltaMs(effectiveScreenTime, *nextScreenTime, c.qpcFreq)
	}
	if s.lastDisplayedScreenTime > 0 {
		m.MsBetweenDisplayChange = deltaMs(s.lastDisplayedScreenTime, effectiveScreenTime, c.qpcFreq)
	}
	if effectiveFlipDelay > 0 {
		m.MsFlipDelay = float64(effectiveFlipDelay) * 1000 / float64(c.qpcFreq)
	}

	simStart := c.simStart(frame)
	if s.firstAppSimStartTime != 0 {
		m.AnimationTime = deltaMs(s.firstAppSimStartTime, simStart, c.qpcFreq)
	}

	s.lastDisplayedScreenTime = effectiveScreenTime
	s.lastDisplayedFlipDelay = effectiveFlipDelay
	return m
}

// updateChainAfterEmission applies §4.5.7 after emitting metrics for
// frame's instance at lastIdx (the final displayed instance processed
// for that frame).
func (c *Calculator) updateChainAfterEmission(frame *datastore.Frame, lastIdx int) {
	s := c.state
	s.lastPresent = frame
	inst := frame.Displayed.Slice()[lastIdx]
	if inst.FrameType == datastore.FrameTypeApplication {
		s.lastAppPresent = frame
		s.lastDisplayedAppScreenTime = inst.ScreenTime
	}
}
