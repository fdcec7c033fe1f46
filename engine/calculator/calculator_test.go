package calculator

import (
	"testing"

	"github.com/lattice-gfx/frameipc/engine/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQpcFreq = 1_000_000

func displayedFrame(presentStart uint64, displayed ...datastore.DisplayedInstance) datastore.Frame {
	f := datastore.NewFrame()
	f.PresentStartTime = presentStart
	f.FinalState = datastore.PresentResultPresented
	for _, d := range displayed {
		if err := f.Displayed.PushBack(d); err != nil {
			panic(err)
		}
	}
	return f
}

func droppedFrame(presentStart uint64) datastore.Frame {
	f := datastore.NewFrame()
	f.PresentStartTime = presentStart
	f.FinalState = datastore.PresentResultDiscarded
	return f
}

// S5: postponed last display.
func TestCalculatorPostponedLastDisplay(t *testing.T) {
	c := NewCalculator(testQpcFreq, nil)

	a := displayedFrame(100, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 1000})
	outA := c.Push(a)
	assert.Empty(t, outA)
	assert.Nil(t, c.State().lastPresent)

	b := droppedFrame(200)
	outB := c.Push(b)
	require.Len(t, outB, 1)
	assert.NotNil(t, c.State().lastPresent)
	assert.NotNil(t, c.State().lastAppPresent)

	cFrame := displayedFrame(300, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 2000})
	outC := c.Push(cFrame)
	require.Len(t, outC, 1)
	m := outC[0]
	assert.Equal(t, uint64(1000), m.ScreenTimeQPC)
	assert.InDelta(t, 1000.0*1000/testQpcFreq, m.MsDisplayedTime, 1e-9)
	assert.Equal(t, uint64(1000), c.State().lastDisplayedScreenTime)
}

// S6: NV2 collapse.
func TestCalculatorNV2Collapse(t *testing.T) {
	c := NewCalculator(testQpcFreq, nil)

	p1 := displayedFrame(1, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 5_500_000})
	p1.FlipDelay = 200_000
	require.Empty(t, c.Push(p1))

	p2 := displayedFrame(2, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 5_000_000})
	p2.FlipDelay = 100_000
	out2 := c.Push(p2)
	require.Len(t, out2, 1)
	assert.Equal(t, uint64(5_500_000), out2[0].ScreenTimeQPC)

	p3 := displayedFrame(3, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 6_000_000})
	out3 := c.Push(p3)
	require.Len(t, out3, 1)
	m := out3[0]
	assert.Equal(t, uint64(5_500_000), m.ScreenTimeQPC)
	expectedFlipDelay := float64(600_000) * 1000 / testQpcFreq
	assert.InDelta(t, expectedFlipDelay, m.MsFlipDelay, 1e-9)
}

func TestCalculatorNotDisplayedPathResetsLastDisplayed(t *testing.T) {
	c := NewCalculator(testQpcFreq, nil)
	a := displayedFrame(10, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 500})
	c.Push(a)
	b := displayedFrame(20, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 600})
	c.Push(b) // resolves a, chain updated, lastDisplayedScreenTime=500

	d := droppedFrame(30)
	c.Push(d)
	assert.Equal(t, uint64(0), c.State().lastDisplayedScreenTime)
	assert.Equal(t, uint64(0), c.State().lastDisplayedFlipDelay)
}

func TestCalculatorAnimationSourceTransitionsAndSticks(t *testing.T) {
	c := NewCalculator(testQpcFreq, nil)
	assert.Equal(t, AnimationSourceCpuStart, c.State().animationErrorSource)

	a := displayedFrame(1, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 100})
	a.AppSimStartTime = 50
	c.Push(a)

	b := displayedFrame(2, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 200})
	c.Push(b)
	assert.Equal(t, AnimationSourceAppProvider, c.State().animationErrorSource)
	assert.Equal(t, uint64(50), c.State().firstAppSimStartTime)

	e := displayedFrame(3, datastore.DisplayedInstance{FrameType: datastore.FrameTypeApplication, ScreenTime: 300})
	e.PclSimStartTime = 999
	c.Push(e)
	assert.Equal(t, AnimationSourceAppProvider, c.State().animationErrorSource, "once transitioned, stays sticky")
}
