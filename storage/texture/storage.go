// Package texture is a CPU texture storage: every texture is an
// *image.RGBA kept in a rid.Owner.
//
// Proxies resolve to their base texture at read time, so updating a base is
// visible through every proxy. A size override scales the texture when it
// is read or drawn.
package texture

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

// placeholderSize is the edge length of placeholder textures.
const placeholderSize = 4

// placeholderColor is the magenta used for placeholder and missing
// textures.
var placeholderColor = color.RGBA{R: 255, A: 255, B: 255}

type detect struct {
	cb       rendering.TextureDetectCallback
	userdata any
}

type texture struct {
	img         *image.RGBA
	format      gputypes.TextureFormat
	proxyOf     rid.RID
	placeholder bool

	override image.Point
	scaled   *image.RGBA

	path        string
	forceRedraw bool

	detect3D        *detect
	detectNormal    *detect
	detectRoughness rendering.TextureDetectRoughnessCallback
	roughnessData   any
}

// Option configures a Storage.
type Option func(*Storage)

// WithAsync lets the server run texture operations on any goroutine.
func WithAsync(enabled bool) Option {
	return func(s *Storage) {
		s.async = enabled
	}
}

// WithScaler sets the interpolator used for size overrides. The default is
// draw.ApproxBiLinear.
func WithScaler(sc draw.Scaler) Option {
	return func(s *Storage) {
		s.scaler = sc
	}
}

// Storage implements rendering.TextureStorage.
type Storage struct {
	async    bool
	scaler   draw.Scaler
	textures *rid.Owner[texture]
}

// New creates an empty storage.
func New(opts ...Option) *Storage {
	s := &Storage{
		scaler:   draw.ApproxBiLinear,
		textures: rid.NewOwner[texture]("texture"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ rendering.TextureStorage = (*Storage)(nil)

func (s *Storage) Name() string { return "texture_storage" }

// CanCreateResourcesAsync reports the WithAsync setting.
func (s *Storage) CanCreateResourcesAsync() bool { return s.async }

// SetLogger sets the logger used by this package.
func (s *Storage) SetLogger(l *slog.Logger) { setLogger(l) }

func (s *Storage) Owns(r rid.RID) bool { return s.textures.Owns(r) }

// Free releases a texture. Proxies of it keep their RID and read as
// missing.
func (s *Storage) Free(r rid.RID) bool { return s.textures.Free(r) }

func (s *Storage) TextureAllocate() rid.RID { return s.textures.Allocate() }

func (s *Storage) Texture2DInitialize(tex rid.RID, img image.Image) {
	t := texture{placeholder: img == nil}
	if img == nil {
		slogger().Warn("texture: initialize with nil image, using placeholder", "rid", tex)
		t.img = placeholderImage()
	} else {
		t.img = toRGBA(img)
	}
	t.format = formatOf(img)
	s.initialize(tex, t)
}

func (s *Storage) TextureProxyInitialize(tex, base rid.RID) {
	s.initialize(tex, texture{proxyOf: base, format: gputypes.TextureFormatRGBA8Unorm})
}

func (s *Storage) Texture2DPlaceholderInitialize(tex rid.RID) {
	s.initialize(tex, texture{
		img:         placeholderImage(),
		format:      gputypes.TextureFormatRGBA8Unorm,
		placeholder: true,
	})
}

func (s *Storage) initialize(tex rid.RID, t texture) {
	if err := s.textures.Initialize(tex, t); err != nil {
		slogger().Warn("texture: initialize failed", "err", err)
	}
}

// Texture2DUpdate replaces the contents of tex. Layers other than 0 are
// not supported by 2D textures.
func (s *Storage) Texture2DUpdate(tex rid.RID, img image.Image, layer int) {
	if layer != 0 {
		slogger().Warn("texture: update of layer > 0 ignored", "rid", tex, "layer", layer)
		return
	}
	if img == nil {
		return
	}
	rgba := toRGBA(img)
	ok := s.textures.Update(tex, func(t *texture) {
		if t.proxyOf.IsValid() {
			slogger().Warn("texture: update of a proxy ignored", "rid", tex)
			return
		}
		t.img = rgba
		t.format = formatOf(img)
		t.placeholder = false
		t.scaled = nil
	})
	if !ok {
		slogger().Warn("texture: update of unknown texture", "rid", tex)
	}
}

func (s *Storage) TextureProxyUpdate(proxy, base rid.RID) {
	ok := s.textures.Update(proxy, func(t *texture) {
		if !t.proxyOf.IsValid() {
			slogger().Warn("texture: proxy update on a non-proxy", "rid", proxy)
			return
		}
		t.proxyOf = base
	})
	if !ok {
		slogger().Warn("texture: proxy update of unknown texture", "rid", proxy)
	}
}

// TextureReplace gives tex the contents of by and frees by. Proxies and
// metadata of tex are kept.
func (s *Storage) TextureReplace(tex, by rid.RID) {
	src, ok := s.textures.Get(by)
	if !ok {
		slogger().Warn("texture: replace with unknown texture", "rid", by)
		return
	}
	s.textures.Update(tex, func(t *texture) {
		t.img = src.img
		t.format = src.format
		t.proxyOf = src.proxyOf
		t.placeholder = src.placeholder
		t.override = src.override
		t.scaled = nil
	})
	s.textures.Free(by)
}

func (s *Storage) TextureSetSizeOverride(tex rid.RID, width, height int) {
	s.textures.Update(tex, func(t *texture) {
		t.override = image.Pt(max(width, 0), max(height, 0))
		t.scaled = nil
	})
}

func (s *Storage) TextureSetDetect3DCallback(tex rid.RID, cb rendering.TextureDetectCallback, userdata any) {
	s.textures.Update(tex, func(t *texture) {
		t.detect3D = newDetect(cb, userdata)
	})
}

func (s *Storage) TextureSetDetectNormalCallback(tex rid.RID, cb rendering.TextureDetectCallback, userdata any) {
	s.textures.Update(tex, func(t *texture) {
		t.detectNormal = newDetect(cb, userdata)
	})
}

func (s *Storage) TextureSetDetectRoughnessCallback(tex rid.RID, cb rendering.TextureDetectRoughnessCallback, userdata any) {
	s.textures.Update(tex, func(t *texture) {
		t.detectRoughness = cb
		t.roughnessData = userdata
	})
}

func newDetect(cb rendering.TextureDetectCallback, userdata any) *detect {
	if cb == nil {
		return nil
	}
	return &detect{cb: cb, userdata: userdata}
}

// TextureDetectUse fires and clears the callback registered for use.
func (s *Storage) TextureDetectUse(tex rid.RID, use rendering.TextureUse) {
	var d *detect
	s.textures.Update(tex, func(t *texture) {
		switch use {
		case rendering.TextureUse3D:
			d, t.detect3D = t.detect3D, nil
		case rendering.TextureUseNormal:
			d, t.detectNormal = t.detectNormal, nil
		}
	})
	if d != nil {
		d.cb(d.userdata)
	}
}

func (s *Storage) TextureSetPath(tex rid.RID, path string) {
	s.textures.Update(tex, func(t *texture) { t.path = path })
}

func (s *Storage) TextureSetForceRedrawIfVisible(tex rid.RID, enable bool) {
	s.textures.Update(tex, func(t *texture) { t.forceRedraw = enable })
}

// ForceRedrawIfVisible reports the flag set by TextureSetForceRedrawIfVisible.
func (s *Storage) ForceRedrawIfVisible(tex rid.RID) bool {
	t, _ := s.textures.Get(tex)
	return t.forceRedraw
}

// Texture2DGet returns a copy of the effective contents of tex.
func (s *Storage) Texture2DGet(tex rid.RID) *image.RGBA {
	img := s.resolve(tex, false)
	if img == nil {
		return nil
	}
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

// TextureImage returns the live effective contents of tex, scaling and
// caching it when a size override is set.
func (s *Storage) TextureImage(tex rid.RID) *image.RGBA {
	return s.resolve(tex, true)
}

// resolve follows proxies (at most a few levels, to survive cycles) and
// applies the size override of the texture that was asked for.
func (s *Storage) resolve(tex rid.RID, cache bool) *image.RGBA {
	t, ok := s.textures.Get(tex)
	if !ok {
		return nil
	}
	img := t.img
	base := t
	for depth := 0; base.proxyOf.IsValid(); depth++ {
		if depth == 8 {
			slogger().Warn("texture: proxy chain too deep", "rid", tex)
			return nil
		}
		if base, ok = s.textures.Get(base.proxyOf); !ok {
			return nil
		}
		img = base.img
	}
	if img == nil || t.override == (image.Point{}) || t.override == img.Bounds().Size() {
		return img
	}
	if t.scaled != nil && !t.proxyOf.IsValid() {
		return t.scaled
	}

	scaled := image.NewRGBA(image.Rectangle{Max: t.override})
	s.scaler.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	if cache && !t.proxyOf.IsValid() {
		s.textures.Update(tex, func(t *texture) { t.scaled = scaled })
	}
	return scaled
}

func (s *Storage) TextureGetPath(tex rid.RID) string {
	t, _ := s.textures.Get(tex)
	return t.path
}

func (s *Storage) TextureGetFormat(tex rid.RID) gputypes.TextureFormat {
	t, ok := s.textures.Get(tex)
	if !ok {
		return gputypes.TextureFormatUndefined
	}
	return t.format
}

// TextureGetNativeHandle returns the RID itself for live textures. CPU
// textures have no backend handle.
func (s *Storage) TextureGetNativeHandle(tex rid.RID, _ bool) uint64 {
	if _, ok := s.textures.Get(tex); !ok {
		return 0
	}
	return uint64(tex)
}

// TextureDebugUsage reports every initialized texture in allocation order.
func (s *Storage) TextureDebugUsage() []rendering.TextureInfo {
	var out []rendering.TextureInfo
	for _, r := range s.textures.RIDs() {
		t, ok := s.textures.Get(r)
		if !ok {
			continue
		}
		info := rendering.TextureInfo{Texture: r, Depth: 1, Format: t.format, Path: t.path}
		if img := s.resolve(r, false); img != nil {
			size := img.Bounds().Size()
			info.Width, info.Height = size.X, size.Y
		}
		if t.img != nil {
			info.Bytes = len(t.img.Pix)
		}
		out = append(out, info)
	}
	return out
}

// TextureMemUsed returns the bytes held by texture pixels.
func (s *Storage) TextureMemUsed() uint64 {
	var n uint64
	s.textures.Range(func(_ rid.RID, t texture) bool {
		if t.img != nil {
			n += uint64(len(t.img.Pix))
		}
		if t.scaled != nil {
			n += uint64(len(t.scaled.Pix))
		}
		return true
	})
	return n
}

func placeholderImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderColor), image.Point{}, draw.Src)
	return img
}

// toRGBA converts img to an RGBA image with its origin at zero, sharing
// pixels when img already is one.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// formatOf maps the Go image type to the texture format it would be
// uploaded as.
func formatOf(img image.Image) gputypes.TextureFormat {
	switch img.(type) {
	case nil:
		return gputypes.TextureFormatRGBA8Unorm
	case *image.Gray, *image.Alpha:
		return gputypes.TextureFormatR8Unorm
	}
	return gputypes.TextureFormatRGBA8Unorm
}
