// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package viewport

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderserver/internal/parallel"
)

// Target is the CPU-backed render target of a viewport.
//
// Canvases are drawn into Image; the same image backs the viewport texture
// and is what the compositor blits to a screen.
type Target struct {
	img *image.RGBA
}

// NewTarget creates a transparent target of the given size.
func NewTarget(width, height int) *Target {
	return &Target{img: image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))}
}

// Width returns the target width in pixels.
func (t *Target) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *Target) Height() int {
	return t.img.Bounds().Dy()
}

// Size returns the target size.
func (t *Target) Size() image.Point {
	return t.img.Bounds().Size()
}

// Format returns the pixel format (RGBA8).
func (t *Target) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target.
func (t *Target) Image() *image.RGBA {
	return t.img
}

// Clear fills the target with c, splitting the rows across pool when it is
// non-nil.
func (t *Target) Clear(c color.Color, pool *parallel.WorkerPool) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	b := t.img.Bounds()
	if b.Empty() {
		return
	}

	// Fill the first row, then copy it down.
	first := t.img.Pix[:b.Dx()*4]
	for i := 0; i < len(first); i += 4 {
		first[i], first[i+1], first[i+2], first[i+3] = rgba.R, rgba.G, rgba.B, rgba.A
	}
	pool.Rows(b.Dy(), func(y0, y1 int) {
		for y := max(y0, 1); y < y1; y++ {
			copy(t.img.Pix[y*t.img.Stride:], first)
		}
	})
}

// Resize replaces the image when the size changes. The contents are not
// preserved. It reports whether the image was replaced.
func (t *Target) Resize(width, height int) bool {
	if t.Size() == image.Pt(width, height) {
		return false
	}
	t.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	return true
}
