package texture

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newTexture(t *testing.T, s *Storage, img image.Image) rid.RID {
	t.Helper()
	r := s.TextureAllocate()
	require.True(t, r.IsValid())
	s.Texture2DInitialize(r, img)
	return r
}

func TestAllocateBeforeInitialize(t *testing.T) {
	s := New()
	r := s.TextureAllocate()
	assert.True(t, s.Owns(r))
	assert.Nil(t, s.Texture2DGet(r), "uninitialized texture has no contents")

	s.Texture2DInitialize(r, solid(2, 3, color.RGBA{R: 10, A: 255}))
	got := s.Texture2DGet(r)
	require.NotNil(t, got)
	assert.Equal(t, image.Pt(2, 3), got.Bounds().Size())
}

func TestUpdateReplacesContents(t *testing.T) {
	s := New()
	r := newTexture(t, s, solid(1, 1, color.RGBA{R: 1, A: 255}))
	s.Texture2DUpdate(r, solid(1, 1, color.RGBA{G: 2, A: 255}), 0)
	assert.Equal(t, color.RGBA{G: 2, A: 255}, s.Texture2DGet(r).RGBAAt(0, 0))

	s.Texture2DUpdate(r, solid(1, 1, color.RGBA{B: 3, A: 255}), 1)
	assert.Equal(t, color.RGBA{G: 2, A: 255}, s.Texture2DGet(r).RGBAAt(0, 0), "layer 1 ignored")
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	r := newTexture(t, s, solid(1, 1, color.RGBA{R: 9, A: 255}))
	got := s.Texture2DGet(r)
	got.Pix[0] = 0
	assert.Equal(t, uint8(9), s.Texture2DGet(r).Pix[0])
}

func TestProxyFollowsBase(t *testing.T) {
	s := New()
	a := newTexture(t, s, solid(1, 1, color.RGBA{R: 1, A: 255}))
	b := newTexture(t, s, solid(1, 1, color.RGBA{G: 1, A: 255}))
	p := s.TextureAllocate()
	s.TextureProxyInitialize(p, a)
	assert.Equal(t, uint8(1), s.Texture2DGet(p).Pix[0])

	s.Texture2DUpdate(a, solid(1, 1, color.RGBA{R: 5, A: 255}), 0)
	assert.Equal(t, uint8(5), s.Texture2DGet(p).Pix[0])

	s.TextureProxyUpdate(p, b)
	assert.Equal(t, uint8(1), s.Texture2DGet(p).Pix[1])

	s.Free(b)
	assert.Nil(t, s.Texture2DGet(p))
}

func TestProxyCycle(t *testing.T) {
	s := New()
	a, b := s.TextureAllocate(), s.TextureAllocate()
	s.TextureProxyInitialize(a, b)
	s.TextureProxyInitialize(b, a)
	assert.Nil(t, s.TextureImage(a))
}

func TestSizeOverride(t *testing.T) {
	s := New()
	r := newTexture(t, s, solid(4, 4, color.RGBA{R: 200, A: 255}))
	s.TextureSetSizeOverride(r, 2, 8)

	img := s.TextureImage(r)
	require.NotNil(t, img)
	assert.Equal(t, image.Pt(2, 8), img.Bounds().Size())
	assert.Same(t, img, s.TextureImage(r), "scaled image is cached")
	assert.Equal(t, image.Pt(2, 8), s.Texture2DGet(r).Bounds().Size())

	info := s.TextureDebugUsage()
	require.Len(t, info, 1)
	assert.Equal(t, 2, info[0].Width)
	assert.Equal(t, 8, info[0].Height)
}

func TestReplace(t *testing.T) {
	s := New()
	a := newTexture(t, s, solid(1, 1, color.RGBA{R: 1, A: 255}))
	s.TextureSetPath(a, "res/a.png")
	b := newTexture(t, s, solid(2, 2, color.RGBA{B: 7, A: 255}))

	s.TextureReplace(a, b)
	assert.False(t, s.Owns(b))
	assert.Equal(t, image.Pt(2, 2), s.Texture2DGet(a).Bounds().Size())
	assert.Equal(t, "res/a.png", s.TextureGetPath(a))
}

func TestFormatAndPlaceholder(t *testing.T) {
	s := New()
	gray := newTexture(t, s, image.NewGray(image.Rect(0, 0, 2, 2)))
	assert.Equal(t, gputypes.TextureFormatR8Unorm, s.TextureGetFormat(gray))

	ph := s.TextureAllocate()
	s.Texture2DPlaceholderInitialize(ph)
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, s.TextureGetFormat(ph))
	assert.Equal(t, placeholderColor, s.Texture2DGet(ph).RGBAAt(0, 0))

	assert.Equal(t, gputypes.TextureFormatUndefined, s.TextureGetFormat(rid.Next()))
}

func TestDetectCallbacksFireOnce(t *testing.T) {
	s := New()
	r := newTexture(t, s, solid(1, 1, color.RGBA{A: 255}))

	var got []any
	s.TextureSetDetectNormalCallback(r, func(ud any) { got = append(got, ud) }, "normal")
	s.TextureDetectUse(r, rendering.TextureUse3D)
	assert.Empty(t, got)

	s.TextureDetectUse(r, rendering.TextureUseNormal)
	s.TextureDetectUse(r, rendering.TextureUseNormal)
	assert.Equal(t, []any{"normal"}, got)
}

func TestMemUsedAndNativeHandle(t *testing.T) {
	s := New()
	r := newTexture(t, s, solid(2, 2, color.RGBA{A: 255}))
	assert.Equal(t, uint64(16), s.TextureMemUsed())
	assert.Equal(t, uint64(r), s.TextureGetNativeHandle(r, false))

	assert.True(t, s.Free(r))
	assert.False(t, s.Free(r))
	assert.Zero(t, s.TextureMemUsed())
	assert.Zero(t, s.TextureGetNativeHandle(r, false))
}

func TestAsyncOption(t *testing.T) {
	assert.False(t, New().CanCreateResourcesAsync())
	assert.True(t, New(WithAsync(true)).CanCreateResourcesAsync())
}
