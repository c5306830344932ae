package renderserver

import (
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) func() {
	return func() {
		l.mu.Lock()
		l.calls = append(l.calls, name)
		l.mu.Unlock()
	}
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

var frameAreas = []string{"begin_frame", "draw_viewports", "canvas_update", "end_frame"}

func areaNames(p []FrameProfileArea) []string {
	names := make([]string, len(p))
	for i, a := range p {
		names[i] = a.Name
	}
	return names
}

func TestFrameCallbacksRunOnceInOrder(t *testing.T) {
	s := newTestServer(t)
	var log callLog

	require.NoError(t, s.RequestFrameDrawnCallback(log.add("A")))
	require.NoError(t, s.RequestFrameDrawnCallback(func() {
		log.add("B")()
		_ = s.RequestFrameDrawnCallback(log.add("C"))
	}))
	require.NoError(t, s.RequestFrameDrawnCallback(nil))

	s.Draw(true, 0)
	s.Sync()
	assert.Equal(t, []string{"A", "B"}, log.get())

	s.Draw(true, 0)
	s.Sync()
	assert.Equal(t, []string{"A", "B", "C"}, log.get())

	s.Draw(true, 0)
	s.Sync()
	assert.Len(t, log.get(), 3)
	assert.Equal(t, uint64(3), s.FramesDrawn())
}

func TestPanickingCallbackDoesNotStopOthers(t *testing.T) {
	s := newTestServer(t)
	var log callLog
	require.NoError(t, s.RequestFrameDrawnCallback(func() { panic("boom") }))
	require.NoError(t, s.RequestFrameDrawnCallback(log.add("after")))

	s.Draw(true, 0)
	s.Sync()
	assert.Equal(t, []string{"after"}, log.get())
}

func TestPendingCallbacksDiscardedOnFinish(t *testing.T) {
	s := newTestServer(t)
	var log callLog
	require.NoError(t, s.RequestFrameDrawnCallback(log.add("never")))

	require.NoError(t, s.Finish())
	assert.Empty(t, log.get())
	assert.ErrorIs(t, s.RequestFrameDrawnCallback(log.add("late")), ErrServerStopped)
}

func TestBlockOnDraw(t *testing.T) {
	s := newTestServer(t, WithBlockOnDraw(true))
	s.Draw(true, 0)
	s.Sync()
	assert.Equal(t, uint64(1), s.FramesDrawn())
}

func TestFrameProfile(t *testing.T) {
	s := newTestServer(t)
	assert.Zero(t, s.FrameProfileFrame())

	s.SetFrameProfilingEnabled(true)
	s.Draw(true, 0.016)
	s.Sync()

	prof := s.FrameProfile()
	assert.Equal(t, frameAreas, areaNames(prof))
	for i, a := range prof {
		assert.Zero(t, a.GPUMsec)
		if i > 0 {
			assert.GreaterOrEqual(t, a.CPUMsec, prof[i-1].CPUMsec)
		}
	}
	assert.Equal(t, uint64(1), s.FrameProfileFrame())
	assert.GreaterOrEqual(t, s.FrameSetupTimeCPU(), 0.0)

	s.SetFrameProfilingEnabled(false)
	s.Draw(true, 0.016)
	s.Sync()
	assert.Equal(t, uint64(1), s.FrameProfileFrame(), "unprofiled frames keep the last profile")
	assert.Equal(t, uint64(2), s.FramesDrawn())
}

func TestProfilingToggleTakesEffectNextFrame(t *testing.T) {
	s := newTestServer(t)

	// Enabled during frame 1: frame 1 stays unprofiled.
	require.NoError(t, s.RequestFrameDrawnCallback(func() { s.SetFrameProfilingEnabled(true) }))
	s.Draw(true, 0)
	s.Sync()
	assert.Zero(t, s.FrameProfileFrame())
	assert.Empty(t, s.FrameProfile())

	// Disabled during frame 2: frame 2 is still profiled completely.
	require.NoError(t, s.RequestFrameDrawnCallback(func() { s.SetFrameProfilingEnabled(false) }))
	s.Draw(true, 0)
	s.Sync()
	assert.Equal(t, uint64(2), s.FrameProfileFrame())
	assert.Equal(t, frameAreas, areaNames(s.FrameProfile()))

	s.Draw(true, 0)
	s.Sync()
	assert.Equal(t, uint64(2), s.FrameProfileFrame())
}

func TestPrintGPUProfile(t *testing.T) {
	s := newTestServer(t)
	s.SetPrintGPUProfile(true)
	s.Draw(true, 0)
	s.Sync()
	assert.Equal(t, uint64(1), s.FrameProfileFrame())
}

func TestDrawRendersViewportToScreen(t *testing.T) {
	s := newTestServer(t)

	vp := s.ViewportCreate()
	s.ViewportSetSize(vp, 16, 16)
	s.ViewportAttachToScreen(vp, geom.Rect2{}, rendering.MainWindowID)
	s.ViewportSetClearColor(vp, rendering.RGBA(0, 0, 1, 1))

	cv := s.CanvasCreate()
	s.ViewportAttachCanvas(vp, cv)
	item := s.CanvasItemCreate()
	s.CanvasItemSetParent(item, cv)
	s.CanvasItemAddRect(item, geom.R2(0, 0, 8, 8), rendering.RGBA(1, 0, 0, 1))

	s.Draw(true, 0)
	s.Sync()

	assert.Equal(t, color.RGBA{R: 255, A: 255}, s.comp.At(rendering.MainWindowID, 2, 2))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, s.comp.At(rendering.MainWindowID, 12, 12))
	assert.Equal(t, uint64(1), s.RenderingInfo(rendering.RenderingInfoTotalObjectsInFrame))
	assert.Equal(t, uint64(1), s.RenderingInfo(rendering.RenderingInfoTotalDrawCallsInFrame))
	assert.Equal(t, 1, s.ViewportGetRenderInfo(vp, rendering.ViewportRenderInfoTypeVisible, rendering.ViewportRenderInfoObjectsInFrame))
	assert.Equal(t, vp, s.ViewportFindFromScreenAttachment(rendering.MainWindowID))

	tex := s.Texture2DGet(s.ViewportGetTexture(vp))
	require.NotNil(t, tex)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, tex.RGBAAt(2, 2))
}

func TestBootImageShownAtInit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BootColor = rendering.RGBA(0, 1, 0, 1)
	collabs, _, comp := testCollaborators()
	s, err := New(cfg, collabs)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	defer s.Finish()

	assert.Equal(t, color.RGBA{G: 255, A: 255}, comp.At(rendering.MainWindowID, 0, 0))
}
