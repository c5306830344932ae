package viewport

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/renderserver/canvas"
	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
	"github.com/gogpu/renderserver/storage/texture"
)

type blit struct {
	screen rendering.WindowID
	size   image.Point
	rect   geom.Rect2
}

type fakeCompositor struct {
	blits []blit
}

func (f *fakeCompositor) BeginFrame(float64) {}
func (f *fakeCompositor) BlitToScreen(screen rendering.WindowID, img *image.RGBA, rect geom.Rect2) {
	f.blits = append(f.blits, blit{screen, img.Bounds().Size(), rect})
}
func (f *fakeCompositor) EndFrame(bool)                                         {}
func (f *fakeCompositor) SetBootImage(image.Image, rendering.Color, bool, bool) {}
func (f *fakeCompositor) FramesDrawn() uint64                                   { return 0 }

type fixture struct {
	m      *Manager
	tex    *texture.Storage
	cv     *canvas.Culler
	comp   *fakeCompositor
	canvas rid.RID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ts := texture.New()
	cv := canvas.New(ts)
	comp := &fakeCompositor{}
	m := New(ts, cv, comp, opts...)
	require.NoError(t, m.Initialize())
	t.Cleanup(m.Finalize)

	c := cv.CanvasAllocate()
	cv.CanvasInitialize(c)
	return &fixture{m: m, tex: ts, cv: cv, comp: comp, canvas: c}
}

func (f *fixture) viewport(w, h int) rid.RID {
	vp := f.m.ViewportAllocate()
	f.m.ViewportInitialize(vp)
	f.m.ViewportSetSize(vp, w, h)
	f.m.ViewportSetUpdateMode(vp, rendering.ViewportUpdateAlways)
	return vp
}

func (f *fixture) rect(c rid.RID, r geom.Rect2, col rendering.Color) rid.RID {
	it := f.cv.CanvasItemAllocate()
	f.cv.CanvasItemInitialize(it)
	f.cv.CanvasItemSetParent(it, c)
	f.cv.CanvasItemAddRect(it, r, col)
	return it
}

func TestDrawClearsAndRendersCanvas(t *testing.T) {
	f := newFixture(t)
	f.m.SetDefaultClearColor(rendering.RGBA(0, 0, 1, 1))
	vp := f.viewport(20, 20)
	f.m.ViewportAttachCanvas(vp, f.canvas)
	f.m.ViewportSetCanvasTransform(vp, f.canvas, geom.Translation(geom.V2(10, 10)))
	f.rect(f.canvas, geom.R2(0, 0, 5, 5), rendering.RGBA(1, 0, 0, 1))

	f.m.DrawViewports()

	img := f.m.Target(vp)
	require.NotNil(t, img)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(12, 12))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(2, 2))

	got := f.tex.Texture2DGet(f.m.ViewportGetTexture(vp))
	require.NotNil(t, got)
	assert.Equal(t, img.Pix, got.Pix, "texture shows the render target")

	assert.Equal(t, 1, f.m.ViewportGetRenderInfo(vp, rendering.ViewportRenderInfoTypeVisible, rendering.ViewportRenderInfoObjectsInFrame))
	assert.Equal(t, 0, f.m.ViewportGetRenderInfo(vp, rendering.ViewportRenderInfoTypeShadow, rendering.ViewportRenderInfoObjectsInFrame))
	assert.Equal(t, uint64(1), f.m.TotalRenderInfo(rendering.ViewportRenderInfoDrawCallsInFrame))
}

func TestClearColorAndTransparency(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(4, 4)
	f.m.ViewportSetClearColor(vp, rendering.RGBA(0, 1, 0, 1))
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{G: 255, A: 255}, f.m.Target(vp).RGBAAt(0, 0))

	f.m.ViewportSetTransparentBackground(vp, true)
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{}, f.m.Target(vp).RGBAAt(0, 0))
}

func TestClearOnlyNextFrame(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(4, 4)
	f.m.ViewportSetClearColor(vp, rendering.RGBA(0, 1, 0, 1))
	f.m.ViewportSetClearMode(vp, rendering.ViewportClearOnlyNextFrame)
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{G: 255, A: 255}, f.m.Target(vp).RGBAAt(0, 0))

	f.m.ViewportSetClearColor(vp, rendering.RGBA(1, 0, 0, 1))
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{G: 255, A: 255}, f.m.Target(vp).RGBAAt(0, 0), "not cleared again")
}

func TestUpdateModes(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(4, 4)
	f.m.ViewportAttachCanvas(vp, f.canvas)
	f.rect(f.canvas, geom.R2(0, 0, 4, 4), rendering.White)

	f.m.ViewportSetUpdateMode(vp, rendering.ViewportUpdateWhenVisible)
	f.m.DrawViewports()
	assert.Zero(t, f.m.TotalRenderInfo(rendering.ViewportRenderInfoObjectsInFrame), "not on a screen")

	f.m.ViewportSetUpdateMode(vp, rendering.ViewportUpdateOnce)
	f.m.DrawViewports()
	assert.Equal(t, uint64(1), f.m.TotalRenderInfo(rendering.ViewportRenderInfoObjectsInFrame))
	f.m.DrawViewports()
	assert.Zero(t, f.m.TotalRenderInfo(rendering.ViewportRenderInfoObjectsInFrame), "once means once")

	f.m.ViewportSetUpdateMode(vp, rendering.ViewportUpdateAlways)
	f.m.ViewportSetActive(vp, false)
	f.m.DrawViewports()
	assert.Zero(t, f.m.TotalRenderInfo(rendering.ViewportRenderInfoObjectsInFrame), "inactive")
}

func TestCanvasStacking(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(4, 4)
	other := f.cv.CanvasAllocate()
	f.cv.CanvasInitialize(other)
	f.rect(f.canvas, geom.R2(0, 0, 4, 4), rendering.RGBA(1, 0, 0, 1))
	f.rect(other, geom.R2(0, 0, 4, 4), rendering.RGBA(0, 0, 1, 1))
	f.m.ViewportAttachCanvas(vp, f.canvas)
	f.m.ViewportAttachCanvas(vp, other)

	f.m.ViewportSetCanvasStacking(vp, f.canvas, 1, 0)
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{R: 255, A: 255}, f.m.Target(vp).RGBAAt(1, 1))

	f.m.ViewportSetCanvasStacking(vp, other, 2, 0)
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{B: 255, A: 255}, f.m.Target(vp).RGBAAt(1, 1))

	f.m.ViewportRemoveCanvas(vp, other)
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{R: 255, A: 255}, f.m.Target(vp).RGBAAt(1, 1))
}

func TestDisable2D(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(4, 4)
	f.m.ViewportAttachCanvas(vp, f.canvas)
	f.rect(f.canvas, geom.R2(0, 0, 4, 4), rendering.RGBA(1, 0, 0, 1))
	f.m.ViewportSetDisable2D(vp, true)
	f.m.ViewportSetTransparentBackground(vp, true)
	f.m.DrawViewports()
	assert.Equal(t, color.RGBA{}, f.m.Target(vp).RGBAAt(1, 1))
}

func TestScreenAttachment(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(8, 6)
	f.m.ViewportSetUpdateMode(vp, rendering.ViewportUpdateWhenVisible)
	assert.Equal(t, rid.Invalid, f.m.ViewportFindFromScreenAttachment(rendering.MainWindowID))

	f.m.ViewportAttachToScreen(vp, geom.Rect2{}, rendering.MainWindowID)
	assert.Equal(t, vp, f.m.ViewportFindFromScreenAttachment(rendering.MainWindowID))

	f.m.DrawViewports()
	require.Len(t, f.comp.blits, 1)
	assert.Equal(t, blit{rendering.MainWindowID, image.Pt(8, 6), geom.R2(0, 0, 8, 6)}, f.comp.blits[0])
}

func TestChildViewportsDrawFirst(t *testing.T) {
	f := newFixture(t)
	parent := f.viewport(4, 4)
	child := f.viewport(2, 2)
	f.m.ViewportSetParentViewport(child, parent)
	f.m.ViewportAttachToScreen(parent, geom.Rect2{}, 1)
	f.m.ViewportAttachToScreen(child, geom.Rect2{}, 2)

	f.m.DrawViewports()
	require.Len(t, f.comp.blits, 2)
	assert.Equal(t, rendering.WindowID(2), f.comp.blits[0].screen)
}

func TestMeasureRenderTime(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(64, 64)
	f.m.ViewportSetMeasureRenderTime(vp, true)
	f.m.DrawViewports()
	assert.GreaterOrEqual(t, f.m.ViewportGetMeasuredRenderTimeCPU(vp), 0.0)
	assert.Zero(t, f.m.ViewportGetMeasuredRenderTimeGPU(vp))
}

func TestVSyncAndDefaults(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, rendering.VSyncEnabled, f.m.VSyncMode(rendering.MainWindowID))
	f.m.SetVSyncMode(rendering.VSyncMailbox, rendering.MainWindowID)
	assert.Equal(t, rendering.VSyncMailbox, f.m.VSyncMode(rendering.MainWindowID))
	assert.Equal(t, rendering.RGBA(0.3, 0.3, 0.3, 1), f.m.DefaultClearColor())
}

func TestFreeReleasesTexture(t *testing.T) {
	f := newFixture(t)
	vp := f.viewport(4, 4)
	tex := f.m.ViewportGetTexture(vp)
	require.True(t, f.tex.Owns(tex))
	assert.True(t, f.m.ViewportGetRenderTarget(vp).IsValid())

	assert.True(t, f.m.Free(vp))
	assert.False(t, f.m.Owns(vp))
	assert.False(t, f.tex.Owns(tex))
	assert.False(t, f.m.Free(vp))
}

func TestPooledClear(t *testing.T) {
	f := newFixture(t, WithWorkers(4))
	vp := f.viewport(128, 256)
	f.m.ViewportSetClearColor(vp, rendering.RGBA(1, 0, 0, 1))
	f.m.DrawViewports()

	img := f.m.Target(vp)
	for _, p := range []image.Point{{0, 0}, {127, 100}, {64, 255}} {
		assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(p.X, p.Y))
	}
}

func TestTargetResizeAndClear(t *testing.T) {
	tg := NewTarget(2, 2)
	assert.False(t, tg.Resize(2, 2))
	assert.True(t, tg.Resize(3, 1))
	assert.Equal(t, image.Pt(3, 1), tg.Size())

	tg.Clear(color.NRGBA{R: 255, A: 128}, nil)
	assert.Equal(t, color.RGBA{R: 128, A: 128}, tg.Image().RGBAAt(2, 0), "premultiplied")

	NewTarget(0, 0).Clear(color.White, nil)
}
