// Package viewport implements the viewport manager of the rendering server.
//
// Each viewport owns a CPU render target and a texture in the texture
// storage that shows the target's last drawn contents. DrawViewports clears
// the targets that are due, draws their attached canvases through the
// canvas culler and hands screen-attached targets to the compositor.
package viewport

import (
	"image"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/internal/parallel"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

type canvasAttachment struct {
	xform    geom.Transform2D
	layer    int
	sublayer int
}

type viewport struct {
	size       image.Point
	active     bool
	parent     rid.RID
	clearMode  rendering.ViewportClearMode
	updateMode rendering.ViewportUpdateMode

	screen         rendering.WindowID
	screenRect     geom.Rect2
	directToScreen bool

	disable2D   bool
	cullMask    uint32
	camera      rid.RID
	canvases    map[rid.RID]canvasAttachment
	globalXform geom.Transform2D

	clearColor    rendering.Color
	hasClearColor bool
	transparent   bool

	snapTransforms bool
	snapVertices   bool
	filter         rendering.CanvasItemTextureFilter
	repeat         rendering.CanvasItemTextureRepeat
	sdfOversize    rendering.ViewportSDFOversize
	sdfScale       rendering.ViewportSDFScale
	msaa           rendering.ViewportMSAA

	measure bool
	cpuMsec float64

	renderTarget rid.RID
	texture      rid.RID
	target       *Target
	stats        rendering.CanvasStats
}

// Option configures a Manager.
type Option func(*Manager)

// WithWorkers clears render targets on a pool of n goroutines. Zero means
// GOMAXPROCS; the default is to clear on the render thread.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		m.workers = n
		m.usePool = true
	}
}

// Manager implements rendering.ViewportManager.
type Manager struct {
	textures   rendering.TextureStorage
	canvas     rendering.CanvasCuller
	compositor rendering.Compositor

	workers int
	usePool bool
	pool    *parallel.WorkerPool

	viewports *rid.Owner[viewport]

	mu           sync.Mutex
	defaultClear rendering.Color
	vsync        map[rendering.WindowID]rendering.VSyncMode
	total        rendering.CanvasStats
}

// New creates a manager. Any collaborator may be nil: without textures the
// viewports have no texture, without a canvas culler nothing is drawn and
// without a compositor nothing reaches a screen.
func New(textures rendering.TextureStorage, canvas rendering.CanvasCuller, compositor rendering.Compositor, opts ...Option) *Manager {
	m := &Manager{
		textures:     textures,
		canvas:       canvas,
		compositor:   compositor,
		viewports:    rid.NewOwner[viewport]("viewport"),
		defaultClear: rendering.RGBA(0.3, 0.3, 0.3, 1),
		vsync:        make(map[rendering.WindowID]rendering.VSyncMode),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ rendering.ViewportManager = (*Manager)(nil)

func (m *Manager) Name() string                  { return "viewport" }
func (m *Manager) CanCreateResourcesAsync() bool { return false }

// SetLogger sets the logger used by this package.
func (m *Manager) SetLogger(l *slog.Logger) { setLogger(l) }

// Initialize starts the clear worker pool when one was requested.
func (m *Manager) Initialize() error {
	if m.usePool && m.pool == nil {
		m.pool = parallel.NewWorkerPool(m.workers)
	}
	return nil
}

// Finalize stops the worker pool.
func (m *Manager) Finalize() {
	m.pool.Close()
	m.pool = nil
}

func (m *Manager) Owns(r rid.RID) bool { return m.viewports.Owns(r) }

// Free releases a viewport and its texture.
func (m *Manager) Free(r rid.RID) bool {
	vp, _ := m.viewports.Get(r)
	if !m.viewports.Free(r) {
		return false
	}
	if vp.texture.IsValid() && m.textures != nil {
		m.textures.Free(vp.texture)
	}
	return true
}

func (m *Manager) ViewportAllocate() rid.RID { return m.viewports.Allocate() }

// ViewportInitialize creates the viewport with an empty target and a
// placeholder texture that the first draw replaces.
func (m *Manager) ViewportInitialize(r rid.RID) {
	vp := viewport{
		active:       true,
		updateMode:   rendering.ViewportUpdateWhenVisible,
		screen:       rendering.InvalidWindowID,
		cullMask:     ^uint32(0),
		canvases:     make(map[rid.RID]canvasAttachment),
		globalXform:  geom.Identity(),
		renderTarget: rid.Next(),
		target:       NewTarget(0, 0),
	}
	if m.textures != nil {
		vp.texture = m.textures.TextureAllocate()
		m.textures.Texture2DPlaceholderInitialize(vp.texture)
	}
	if err := m.viewports.Initialize(r, vp); err != nil {
		slogger().Warn("viewport: initialize failed", "rid", r, "err", err)
	}
}

func (m *Manager) set(r rid.RID, op string, fn func(*viewport)) {
	if !m.viewports.Update(r, fn) {
		slogger().Warn("viewport: unknown viewport", "op", op, "rid", r)
	}
}

func (m *Manager) ViewportSetSize(r rid.RID, width, height int) {
	m.set(r, "set_size", func(vp *viewport) { vp.size = image.Pt(max(width, 0), max(height, 0)) })
}

func (m *Manager) ViewportSetActive(r rid.RID, active bool) {
	m.set(r, "set_active", func(vp *viewport) { vp.active = active })
}

func (m *Manager) ViewportSetParentViewport(r, parent rid.RID) {
	if r == parent {
		slogger().Warn("viewport: viewport cannot be its own parent", "rid", r)
		return
	}
	m.set(r, "set_parent_viewport", func(vp *viewport) { vp.parent = parent })
}

func (m *Manager) ViewportSetClearMode(r rid.RID, mode rendering.ViewportClearMode) {
	m.set(r, "set_clear_mode", func(vp *viewport) { vp.clearMode = mode })
}

// ViewportAttachToScreen shows the viewport in rect of screen. Passing
// rendering.InvalidWindowID detaches it.
func (m *Manager) ViewportAttachToScreen(r rid.RID, rect geom.Rect2, screen rendering.WindowID) {
	m.set(r, "attach_to_screen", func(vp *viewport) { vp.screen, vp.screenRect = screen, rect })
}

func (m *Manager) ViewportSetRenderDirectToScreen(r rid.RID, enable bool) {
	m.set(r, "set_render_direct_to_screen", func(vp *viewport) { vp.directToScreen = enable })
}

func (m *Manager) ViewportSetUpdateMode(r rid.RID, mode rendering.ViewportUpdateMode) {
	m.set(r, "set_update_mode", func(vp *viewport) { vp.updateMode = mode })
}

func (m *Manager) ViewportSetDisable2D(r rid.RID, disable bool) {
	m.set(r, "set_disable_2d", func(vp *viewport) { vp.disable2D = disable })
}

func (m *Manager) ViewportSetCanvasCullMask(r rid.RID, mask uint32) {
	m.set(r, "set_canvas_cull_mask", func(vp *viewport) { vp.cullMask = mask })
}

// ViewportAttachCamera records the 3D camera. The 2D pipeline does not use
// it.
func (m *Manager) ViewportAttachCamera(r, camera rid.RID) {
	m.set(r, "attach_camera", func(vp *viewport) { vp.camera = camera })
}

func (m *Manager) ViewportAttachCanvas(r, canvas rid.RID) {
	m.set(r, "attach_canvas", func(vp *viewport) {
		if _, ok := vp.canvases[canvas]; ok {
			slogger().Warn("viewport: canvas already attached", "viewport", r, "canvas", canvas)
			return
		}
		vp.canvases[canvas] = canvasAttachment{xform: geom.Identity()}
	})
}

func (m *Manager) ViewportRemoveCanvas(r, canvas rid.RID) {
	m.set(r, "remove_canvas", func(vp *viewport) { delete(vp.canvases, canvas) })
}

func (m *Manager) updateCanvas(r, canvas rid.RID, op string, fn func(*canvasAttachment)) {
	m.set(r, op, func(vp *viewport) {
		a, ok := vp.canvases[canvas]
		if !ok {
			slogger().Warn("viewport: canvas not attached", "op", op, "viewport", r, "canvas", canvas)
			return
		}
		fn(&a)
		vp.canvases[canvas] = a
	})
}

func (m *Manager) ViewportSetCanvasTransform(r, canvas rid.RID, xform geom.Transform2D) {
	m.updateCanvas(r, canvas, "set_canvas_transform", func(a *canvasAttachment) { a.xform = xform })
}

func (m *Manager) ViewportSetCanvasStacking(r, canvas rid.RID, layer, sublayer int) {
	m.updateCanvas(r, canvas, "set_canvas_stacking", func(a *canvasAttachment) {
		a.layer, a.sublayer = layer, sublayer
	})
}

func (m *Manager) ViewportSetClearColor(r rid.RID, c rendering.Color) {
	m.set(r, "set_clear_color", func(vp *viewport) { vp.clearColor, vp.hasClearColor = c, true })
}

func (m *Manager) ViewportSetTransparentBackground(r rid.RID, enable bool) {
	m.set(r, "set_transparent_background", func(vp *viewport) { vp.transparent = enable })
}

func (m *Manager) ViewportSetSnap2DTransformsToPixel(r rid.RID, enable bool) {
	m.set(r, "set_snap_2d_transforms_to_pixel", func(vp *viewport) { vp.snapTransforms = enable })
}

func (m *Manager) ViewportSetSnap2DVerticesToPixel(r rid.RID, enable bool) {
	m.set(r, "set_snap_2d_vertices_to_pixel", func(vp *viewport) { vp.snapVertices = enable })
}

func (m *Manager) ViewportSetDefaultCanvasItemTextureFilter(r rid.RID, filter rendering.CanvasItemTextureFilter) {
	m.set(r, "set_default_canvas_item_texture_filter", func(vp *viewport) { vp.filter = filter })
}

func (m *Manager) ViewportSetDefaultCanvasItemTextureRepeat(r rid.RID, repeat rendering.CanvasItemTextureRepeat) {
	m.set(r, "set_default_canvas_item_texture_repeat", func(vp *viewport) { vp.repeat = repeat })
}

func (m *Manager) ViewportSetGlobalCanvasTransform(r rid.RID, xform geom.Transform2D) {
	m.set(r, "set_global_canvas_transform", func(vp *viewport) { vp.globalXform = xform })
}

func (m *Manager) ViewportSetSDFOversizeAndScale(r rid.RID, oversize rendering.ViewportSDFOversize, scale rendering.ViewportSDFScale) {
	m.set(r, "set_sdf_oversize_and_scale", func(vp *viewport) { vp.sdfOversize, vp.sdfScale = oversize, scale })
}

func (m *Manager) ViewportSetMSAA2D(r rid.RID, msaa rendering.ViewportMSAA) {
	m.set(r, "set_msaa_2d", func(vp *viewport) { vp.msaa = msaa })
}

func (m *Manager) ViewportSetMeasureRenderTime(r rid.RID, enable bool) {
	m.set(r, "set_measure_render_time", func(vp *viewport) {
		vp.measure = enable
		if !enable {
			vp.cpuMsec = 0
		}
	})
}

func (m *Manager) SetVSyncMode(mode rendering.VSyncMode, window rendering.WindowID) {
	m.mu.Lock()
	m.vsync[window] = mode
	m.mu.Unlock()
}

// VSyncMode returns the mode set for window, VSyncEnabled by default.
func (m *Manager) VSyncMode(window rendering.WindowID) rendering.VSyncMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode, ok := m.vsync[window]; ok {
		return mode
	}
	return rendering.VSyncEnabled
}

func (m *Manager) SetDefaultClearColor(c rendering.Color) {
	m.mu.Lock()
	m.defaultClear = c
	m.mu.Unlock()
}

func (m *Manager) DefaultClearColor() rendering.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultClear
}

func (m *Manager) ViewportGetRenderTarget(r rid.RID) rid.RID {
	vp, _ := m.viewports.Get(r)
	return vp.renderTarget
}

func (m *Manager) ViewportGetTexture(r rid.RID) rid.RID {
	vp, _ := m.viewports.Get(r)
	return vp.texture
}

// ViewportGetRenderInfo returns a statistic of the viewport's last draw.
// The 2D pipeline has no shadow pass, so shadow statistics are zero.
func (m *Manager) ViewportGetRenderInfo(r rid.RID, typ rendering.ViewportRenderInfoType, info rendering.ViewportRenderInfo) int {
	if typ != rendering.ViewportRenderInfoTypeVisible {
		return 0
	}
	vp, _ := m.viewports.Get(r)
	return statOf(vp.stats, info)
}

func statOf(s rendering.CanvasStats, info rendering.ViewportRenderInfo) int {
	switch info {
	case rendering.ViewportRenderInfoObjectsInFrame:
		return s.Objects
	case rendering.ViewportRenderInfoPrimitivesInFrame:
		return s.Primitives
	case rendering.ViewportRenderInfoDrawCallsInFrame:
		return s.DrawCalls
	}
	return 0
}

func (m *Manager) ViewportGetMeasuredRenderTimeCPU(r rid.RID) float64 {
	vp, _ := m.viewports.Get(r)
	return vp.cpuMsec
}

// ViewportGetMeasuredRenderTimeGPU is always zero: drawing happens on the
// CPU.
func (m *Manager) ViewportGetMeasuredRenderTimeGPU(rid.RID) float64 { return 0 }

// ViewportFindFromScreenAttachment returns the first viewport attached to
// screen, or rid.Invalid.
func (m *Manager) ViewportFindFromScreenAttachment(screen rendering.WindowID) rid.RID {
	found := rid.Invalid
	m.viewports.Range(func(r rid.RID, vp viewport) bool {
		if vp.screen == screen {
			found = r
			return false
		}
		return true
	})
	return found
}

// TotalRenderInfo sums a statistic over every viewport drawn in the last
// frame.
func (m *Manager) TotalRenderInfo(info rendering.ViewportRenderInfo) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(statOf(m.total, info))
}

// Target returns the render target image of a viewport. Render thread only.
func (m *Manager) Target(r rid.RID) *image.RGBA {
	vp, ok := m.viewports.Get(r)
	if !ok {
		return nil
	}
	return vp.target.Image()
}

// DrawViewports draws every active viewport that is due this frame. Child
// viewports are drawn before their parents so a parent can sample their
// textures.
func (m *Manager) DrawViewports() {
	all := make(map[rid.RID]viewport)
	var order []rid.RID
	m.viewports.Range(func(r rid.RID, vp viewport) bool {
		all[r] = vp
		order = append(order, r)
		return true
	})
	depth := func(r rid.RID) int {
		d := 0
		for p := all[r].parent; p.IsValid() && d <= len(all); p = all[p].parent {
			d++
		}
		return d
	}
	sort.SliceStable(order, func(i, j int) bool { return depth(order[i]) > depth(order[j]) })

	var total rendering.CanvasStats
	for _, r := range order {
		vp := all[r]
		if !m.due(vp, all) {
			continue
		}
		stats, msec := m.draw(r, &vp)
		total.Add(stats)
		m.viewports.Update(r, func(cur *viewport) {
			cur.target = vp.target
			cur.stats = stats
			if cur.measure {
				cur.cpuMsec = msec
			}
			if cur.clearMode == rendering.ViewportClearOnlyNextFrame {
				cur.clearMode = rendering.ViewportClearNever
			}
			if cur.updateMode == rendering.ViewportUpdateOnce {
				cur.updateMode = rendering.ViewportUpdateDisabled
			}
		})
	}

	m.mu.Lock()
	m.total = total
	m.mu.Unlock()
}

func (m *Manager) due(vp viewport, all map[rid.RID]viewport) bool {
	if !vp.active || vp.size.X == 0 || vp.size.Y == 0 {
		return false
	}
	switch vp.updateMode {
	case rendering.ViewportUpdateAlways, rendering.ViewportUpdateOnce:
		return true
	case rendering.ViewportUpdateWhenVisible:
		return vp.screen != rendering.InvalidWindowID || vp.parent.IsValid()
	case rendering.ViewportUpdateWhenParentVisible:
		p, ok := all[vp.parent]
		return ok && p.active
	}
	return false
}

// draw renders one viewport into its target and returns its statistics and
// the time it took in milliseconds.
func (m *Manager) draw(r rid.RID, vp *viewport) (rendering.CanvasStats, float64) {
	start := time.Now()
	if vp.target.Resize(vp.size.X, vp.size.Y) {
		slogger().Debug("viewport: target resized", "rid", r, "size", vp.size)
	}
	dst := vp.target.Image()

	if vp.clearMode != rendering.ViewportClearNever {
		c := m.DefaultClearColor()
		switch {
		case vp.transparent:
			c = rendering.Color{}
		case vp.hasClearColor:
			c = vp.clearColor
		}
		vp.target.Clear(rendering.ToNRGBA(c), m.pool)
	}

	var stats rendering.CanvasStats
	if !vp.disable2D && m.canvas != nil {
		type entry struct {
			canvas rid.RID
			canvasAttachment
		}
		list := make([]entry, 0, len(vp.canvases))
		for c, a := range vp.canvases {
			list = append(list, entry{c, a})
		}
		slices.SortFunc(list, func(a, b entry) int {
			switch {
			case a.layer != b.layer:
				return a.layer - b.layer
			case a.sublayer != b.sublayer:
				return a.sublayer - b.sublayer
			case a.canvas < b.canvas:
				return -1
			case a.canvas > b.canvas:
				return 1
			}
			return 0
		})
		for _, e := range list {
			xform := vp.globalXform.Mul(e.xform)
			if vp.snapTransforms {
				xform.Origin = geom.V2(float32(int(xform.Origin.X+0.5)), float32(int(xform.Origin.Y+0.5)))
			}
			stats.Add(m.canvas.RenderCanvas(e.canvas, dst, rendering.CanvasRenderParams{
				Transform:     xform,
				CullMask:      vp.cullMask,
				DefaultFilter: vp.filter,
				DefaultRepeat: vp.repeat,
				SnapVertices:  vp.snapVertices,
			}))
		}
	}

	if m.textures != nil && vp.texture.IsValid() {
		m.textures.Texture2DUpdate(vp.texture, dst, 0)
	}
	if m.compositor != nil && vp.screen != rendering.InvalidWindowID {
		rect := vp.screenRect
		if rect.Area() == 0 {
			rect = geom.R2(0, 0, float32(vp.size.X), float32(vp.size.Y))
		}
		m.compositor.BlitToScreen(vp.screen, dst, rect)
	}
	return stats, float64(time.Since(start).Microseconds()) / 1000
}
