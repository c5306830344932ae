// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestBlitAndSwap(t *testing.T) {
	c := New(WithScreenSize(rendering.MainWindowID, 8, 8))

	c.BeginFrame(0.016)
	c.BlitToScreen(rendering.MainWindowID, solid(4, 4, red), geom.R2(2, 2, 4, 4))
	assert.Nil(t, c.Screen(rendering.MainWindowID), "nothing presented before swap")
	c.EndFrame(true)

	assert.Equal(t, uint64(1), c.FramesDrawn())
	assert.InDelta(t, 0.016, c.FrameStep(), 1e-9)
	scr := c.Screen(rendering.MainWindowID)
	require.NotNil(t, scr)
	assert.Equal(t, image.Pt(8, 8), scr.Rect.Size())
	assert.Equal(t, red, scr.RGBAAt(3, 3))
	assert.Equal(t, color.RGBA{}, scr.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{}, scr.RGBAAt(7, 7))
}

func TestEndFrameWithoutSwap(t *testing.T) {
	c := New()
	c.BeginFrame(0)
	c.BlitToScreen(rendering.MainWindowID, solid(2, 2, red), geom.R2(0, 0, 2, 2))
	c.EndFrame(false)

	assert.Zero(t, c.FramesDrawn())
	assert.Nil(t, c.Screen(rendering.MainWindowID))
}

func TestBlitScales(t *testing.T) {
	c := New(WithScreenSize(rendering.MainWindowID, 8, 8))
	c.BeginFrame(0)
	c.BlitToScreen(rendering.MainWindowID, solid(2, 2, blue), geom.R2(0, 0, 8, 8))
	c.EndFrame(true)

	assert.Equal(t, blue, c.At(rendering.MainWindowID, 0, 0))
	assert.Equal(t, blue, c.At(rendering.MainWindowID, 7, 7))
}

func TestUnsizedScreenGrows(t *testing.T) {
	const second rendering.WindowID = 3
	c := New()
	c.BeginFrame(0)
	c.BlitToScreen(second, solid(2, 2, red), geom.R2(0, 0, 2, 2))
	c.BlitToScreen(second, solid(2, 2, blue), geom.R2(4, 0, 2, 2))
	c.EndFrame(true)

	scr := c.Screen(second)
	require.NotNil(t, scr)
	assert.Equal(t, image.Pt(6, 2), scr.Rect.Size())
	assert.Equal(t, red, scr.RGBAAt(1, 1), "earlier blit kept")
	assert.Equal(t, blue, scr.RGBAAt(5, 1))
}

func TestNewFrameStartsCleared(t *testing.T) {
	c := New(WithScreenSize(rendering.MainWindowID, 4, 4))
	c.BeginFrame(0)
	c.BlitToScreen(rendering.MainWindowID, solid(4, 4, red), geom.R2(0, 0, 4, 4))
	c.EndFrame(true)

	c.BeginFrame(0)
	c.BlitToScreen(rendering.MainWindowID, solid(1, 1, blue), geom.R2(0, 0, 1, 1))
	c.EndFrame(true)

	assert.Equal(t, blue, c.At(rendering.MainWindowID, 0, 0))
	assert.Equal(t, color.RGBA{}, c.At(rendering.MainWindowID, 3, 3))
	assert.Equal(t, uint64(2), c.FramesDrawn())
}

func TestBootImage(t *testing.T) {
	c := New(WithScreenSize(rendering.MainWindowID, 10, 10))

	c.SetBootImage(solid(2, 2, red), rendering.RGBA(0, 0, 1, 1), false, false)
	assert.Equal(t, red, c.At(rendering.MainWindowID, 4, 4), "centered at native size")
	assert.Equal(t, red, c.At(rendering.MainWindowID, 5, 5))
	assert.Equal(t, blue, c.At(rendering.MainWindowID, 0, 0))
	assert.Zero(t, c.FramesDrawn())

	c.SetBootImage(solid(2, 1, red), rendering.RGBA(0, 0, 1, 1), true, true)
	assert.Equal(t, red, c.At(rendering.MainWindowID, 0, 4), "fit to width")
	assert.Equal(t, blue, c.At(rendering.MainWindowID, 0, 0))

	c.SetBootImage(nil, rendering.RGBA(1, 0, 0, 1), true, false)
	assert.Equal(t, red, c.At(rendering.MainWindowID, 9, 9))

	c.BeginFrame(0)
	c.EndFrame(true)
	assert.Equal(t, red, c.At(rendering.MainWindowID, 9, 9), "boot stays until a frame draws the screen")
}

func TestSetScreenSize(t *testing.T) {
	c := New()
	c.SetScreenSize(rendering.MainWindowID, 3, 2)
	c.BeginFrame(0)
	c.BlitToScreen(rendering.MainWindowID, solid(8, 8, red), geom.R2(0, 0, 8, 8))
	c.EndFrame(true)
	assert.Equal(t, image.Pt(3, 2), c.Screen(rendering.MainWindowID).Rect.Size())
}

func TestFinalize(t *testing.T) {
	c := New()
	require.NoError(t, c.Initialize())
	c.BeginFrame(0)
	c.BlitToScreen(rendering.MainWindowID, solid(1, 1, red), geom.R2(0, 0, 1, 1))
	c.EndFrame(true)
	c.Finalize()
	assert.Nil(t, c.Screen(rendering.MainWindowID))
	c.Finalize()
}
