// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compositor composes viewport render targets onto screens.
//
// Every screen has a CPU back buffer. Viewports attached to a screen are
// blitted into it during a frame and EndFrame swaps it to the presented
// image. When a gpucontext.TextureDrawer is set, the presented main screen
// is uploaded to a GPU texture and drawn with it.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
)

// Presentation errors.
var (
	// ErrInvalidDrawContext is returned when a created texture cannot be
	// drawn by the drawer.
	ErrInvalidDrawContext = errors.New("compositor: texture is not a gpucontext.Texture")

	// ErrInvalidRenderer is returned when the drawer has no texture creator.
	ErrInvalidRenderer = errors.New("compositor: drawer has no gpucontext.TextureCreator")
)

// DefaultScreenSize is the main screen size used when none is set.
var DefaultScreenSize = image.Pt(1152, 648)

// textureDestroyer matches the Destroy method of GPU textures.
type textureDestroyer interface {
	Destroy()
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithScreenSize sets the size of a screen's back buffer.
func WithScreenSize(screen rendering.WindowID, width, height int) Option {
	return func(c *Compositor) { c.sizes[screen] = image.Pt(width, height) }
}

// WithDrawer presents the main screen through d at the end of each frame.
func WithDrawer(d gpucontext.TextureDrawer) Option {
	return func(c *Compositor) { c.drawer = d }
}

// Compositor implements rendering.Compositor with CPU back buffers.
//
// It is driven by the render thread; the accessors are safe to call from
// any goroutine.
type Compositor struct {
	mu        sync.Mutex
	sizes     map[rendering.WindowID]image.Point
	back      map[rendering.WindowID]*image.RGBA
	presented map[rendering.WindowID]*image.RGBA
	inFrame   bool
	frameStep float64

	drawer     gpucontext.TextureDrawer
	texture    any // GPU texture of the main screen, created lazily
	oldTexture any // previous texture, destroyed after the next upload
	texSize    image.Point

	frames atomic.Uint64
}

// New creates a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		sizes:     map[rendering.WindowID]image.Point{rendering.MainWindowID: DefaultScreenSize},
		back:      make(map[rendering.WindowID]*image.RGBA),
		presented: make(map[rendering.WindowID]*image.RGBA),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compositor) SetLogger(l *slog.Logger) { setLogger(l) }

func (c *Compositor) Initialize() error { return nil }

// Finalize destroys the GPU textures and drops every buffer.
func (c *Compositor) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	destroy(c.oldTexture)
	destroy(c.texture)
	c.oldTexture, c.texture = nil, nil
	clear(c.back)
	clear(c.presented)
}

func destroy(tex any) {
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

// SetScreenSize resizes a screen. The next frame starts from a cleared
// buffer of the new size.
func (c *Compositor) SetScreenSize(screen rendering.WindowID, width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes[screen] = image.Pt(max(width, 0), max(height, 0))
	delete(c.back, screen)
}

// BeginFrame starts a frame. Back buffers are cleared lazily on the first
// blit to each screen.
func (c *Compositor) BeginFrame(frameStep float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFrame {
		slogger().Warn("compositor: begin_frame without end_frame")
	}
	c.inFrame = true
	c.frameStep = frameStep
	clear(c.back)
}

// BlitToScreen draws img into rect of the screen's back buffer, scaling
// it when the sizes differ. Screens without a configured size grow to fit
// rect.
func (c *Compositor) BlitToScreen(screen rendering.WindowID, img *image.RGBA, rect geom.Rect2) {
	if img == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	r := rect.Image()
	if r.Empty() {
		return
	}
	dst := c.backBuffer(screen, r.Max)
	if r.Size() == img.Bounds().Size() {
		draw.Draw(dst, r, img, img.Bounds().Min, draw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, r, img, img.Bounds(), draw.Over, nil)
}

func (c *Compositor) backBuffer(screen rendering.WindowID, need image.Point) *image.RGBA {
	size, fixed := c.sizes[screen]
	if b, ok := c.back[screen]; ok {
		if fixed || (need.X <= b.Rect.Dx() && need.Y <= b.Rect.Dy()) {
			return b
		}
		// Grow, keeping what was blitted so far.
		grown := image.NewRGBA(image.Rect(0, 0, max(b.Rect.Dx(), need.X), max(b.Rect.Dy(), need.Y)))
		draw.Draw(grown, b.Rect, b, image.Point{}, draw.Src)
		c.back[screen] = grown
		return grown
	}
	if !fixed {
		size = need
	}
	b := image.NewRGBA(image.Rectangle{Max: size})
	c.back[screen] = b
	return b
}

// EndFrame finishes the frame. With swapBuffers the back buffers replace
// the presented images, the frame counter advances and the main screen is
// handed to the drawer.
func (c *Compositor) EndFrame(swapBuffers bool) {
	c.mu.Lock()
	c.inFrame = false
	if !swapBuffers {
		c.mu.Unlock()
		return
	}
	for screen, b := range c.back {
		c.presented[screen] = b
	}
	clear(c.back)
	main := c.presented[rendering.MainWindowID]
	c.frames.Add(1)
	c.mu.Unlock()

	if main != nil && c.drawer != nil {
		if err := c.present(main); err != nil {
			slogger().Warn("compositor: present failed", "err", err)
		}
	}
}

// SetBootImage presents img centered on a bg-colored main screen until
// the first frame is swapped. With scale the image is fit to the screen
// keeping its aspect ratio, filtered bilinearly when useFilter is set.
func (c *Compositor) SetBootImage(img image.Image, bg rendering.Color, scale, useFilter bool) {
	c.mu.Lock()
	size := c.sizes[rendering.MainWindowID]
	c.mu.Unlock()

	boot := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(boot, boot.Rect, image.NewUniform(rendering.ToNRGBA(bg)), image.Point{}, draw.Src)
	if img != nil && !img.Bounds().Empty() {
		drawBoot(boot, img, scale, useFilter)
	}

	c.mu.Lock()
	c.presented[rendering.MainWindowID] = boot
	c.mu.Unlock()

	if c.drawer != nil {
		if err := c.present(boot); err != nil {
			slogger().Warn("compositor: boot image present failed", "err", err)
		}
	}
	slogger().Debug("compositor: boot image set", "size", size, "scale", scale)
}

func drawBoot(dst *image.RGBA, img image.Image, scale, useFilter bool) {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if scale {
		sw := float64(dst.Rect.Dx()) / float64(w)
		sh := float64(dst.Rect.Dy()) / float64(h)
		f := min(sw, sh)
		w, h = int(float64(w)*f+0.5), int(float64(h)*f+0.5)
	}
	off := image.Pt((dst.Rect.Dx()-w)/2, (dst.Rect.Dy()-h)/2)
	r := image.Rectangle{Min: off, Max: off.Add(image.Pt(w, h))}

	var s xdraw.Scaler = xdraw.NearestNeighbor
	if useFilter {
		s = xdraw.ApproxBiLinear
	}
	s.Scale(dst, r, img, src, draw.Over, nil)
}

// present uploads img to the drawer's texture and draws it at the origin.
// The texture is recreated when the size changes; the old one is
// destroyed after the new upload completes.
func (c *Compositor) present(img *image.RGBA) error {
	size := img.Rect.Size()
	if c.texture != nil && size != c.texSize {
		destroy(c.oldTexture)
		c.oldTexture, c.texture = c.texture, nil
	}

	if c.texture == nil {
		creator := c.drawer.TextureCreator()
		if creator == nil {
			return ErrInvalidRenderer
		}
		tex, err := creator.NewTextureFromRGBA(size.X, size.Y, img.Pix)
		if err != nil {
			return fmt.Errorf("compositor: NewTextureFromRGBA failed: %w", err)
		}
		if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
			pt.SetPremultiplied(true)
		}
		c.texture, c.texSize = tex, size
		destroy(c.oldTexture)
		c.oldTexture = nil
	} else if updater, ok := c.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(img.Pix); err != nil {
			return fmt.Errorf("compositor: texture update failed: %w", err)
		}
	}

	gpuTex, ok := c.texture.(gpucontext.Texture)
	if !ok {
		return ErrInvalidDrawContext
	}
	return c.drawer.DrawTexture(gpuTex, 0, 0)
}

// FramesDrawn returns the number of swapped frames.
func (c *Compositor) FramesDrawn() uint64 { return c.frames.Load() }

// FrameStep returns the step of the current or last frame.
func (c *Compositor) FrameStep() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameStep
}

// Screen returns a copy of the image presented on screen, or nil when
// nothing was presented there.
func (c *Compositor) Screen(screen rendering.WindowID) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.presented[screen]
	if p == nil {
		return nil
	}
	out := image.NewRGBA(p.Rect)
	copy(out.Pix, p.Pix)
	return out
}

// At returns the presented color of a screen pixel.
func (c *Compositor) At(screen rendering.WindowID, x, y int) color.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.presented[screen]; p != nil {
		return p.RGBAAt(x, y)
	}
	return color.RGBA{}
}
