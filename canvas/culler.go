// Package canvas implements the 2D scene of the rendering server: canvases,
// canvas items with their draw commands, canvas textures, lights and light
// occluders.
//
// A Culler stores the scene and rasterizes one canvas at a time into an
// *image.RGBA when the viewport manager asks for it. Lights and occluders
// are kept as state only; the rasterizer does not shade.
package canvas

import (
	"log/slog"
	"sync"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

type canvasState struct {
	modulate    rendering.Color
	parent      rid.RID
	parentScale float32
	mirroring   map[rid.RID]geom.Vector2
}

type canvasTexture struct {
	diffuse, normal, specular rid.RID
	specularColor             rendering.Color
	shininess                 float32
	filter                    rendering.CanvasItemTextureFilter
	repeat                    rendering.CanvasItemTextureRepeat
}

type light struct {
	canvas        rid.RID
	mode          rendering.CanvasLightMode
	enabled       bool
	xform         geom.Transform2D
	texture       rid.RID
	textureScale  float32
	textureOffset geom.Vector2
	color         rendering.Color
	height        float32
	energy        float32
	zMin, zMax    int
	layerMin      int
	layerMax      int
	itemMask      int
	shadowMask    int
	distance      float32
	blend         rendering.CanvasLightBlendMode
	shadow        bool
	shadowFilter  rendering.CanvasLightShadowFilter
	shadowColor   rendering.Color
	shadowSmooth  float32
}

type occluder struct {
	canvas       rid.RID
	enabled      bool
	polygon      rid.RID
	sdfCollision bool
	xform        geom.Transform2D
	lightMask    int
}

type occluderPolygon struct {
	shape    []geom.Vector2
	closed   bool
	cullMode rendering.CanvasOccluderPolygonCullMode
}

// Culler implements rendering.CanvasCuller.
type Culler struct {
	textures rendering.TextureStorage

	canvases  *rid.Owner[canvasState]
	ctextures *rid.Owner[canvasTexture]
	items     *rid.Owner[item]
	lights    *rid.Owner[light]
	occluders *rid.Owner[occluder]
	polygons  *rid.Owner[occluderPolygon]

	settingsMu        sync.Mutex
	disableScale      bool
	shadowTextureSize int

	// notifyMu guards the visibility notifier bookkeeping. seen collects
	// items found on screen during the current frame; shown is the state
	// reported by the last Update.
	notifyMu sync.Mutex
	seen     map[rid.RID]struct{}
	shown    map[rid.RID]struct{}
}

// New creates an empty culler that resolves textures through textures.
func New(textures rendering.TextureStorage) *Culler {
	return &Culler{
		textures:          textures,
		canvases:          rid.NewOwner[canvasState]("canvas"),
		ctextures:         rid.NewOwner[canvasTexture]("canvas_texture"),
		items:             rid.NewOwner[item]("canvas_item"),
		lights:            rid.NewOwner[light]("canvas_light"),
		occluders:         rid.NewOwner[occluder]("canvas_light_occluder"),
		polygons:          rid.NewOwner[occluderPolygon]("canvas_occluder_polygon"),
		shadowTextureSize: 2048,
		seen:              make(map[rid.RID]struct{}),
		shown:             make(map[rid.RID]struct{}),
	}
}

var _ rendering.CanvasCuller = (*Culler)(nil)

func (c *Culler) Name() string                  { return "canvas" }
func (c *Culler) CanCreateResourcesAsync() bool { return false }

// SetLogger sets the logger used by this package.
func (c *Culler) SetLogger(l *slog.Logger) { setLogger(l) }

func (c *Culler) Owns(r rid.RID) bool {
	return c.canvases.Owns(r) || c.ctextures.Owns(r) || c.items.Owns(r) ||
		c.lights.Owns(r) || c.occluders.Owns(r) || c.polygons.Owns(r)
}

func (c *Culler) Free(r rid.RID) bool {
	if c.items.Free(r) {
		c.notifyMu.Lock()
		delete(c.seen, r)
		delete(c.shown, r)
		c.notifyMu.Unlock()
		return true
	}
	return c.canvases.Free(r) || c.ctextures.Free(r) || c.lights.Free(r) ||
		c.occluders.Free(r) || c.polygons.Free(r)
}

func initOrWarn[T any](o *rid.Owner[T], r rid.RID, v T) {
	if err := o.Initialize(r, v); err != nil {
		slogger().Warn("canvas: initialize failed", "kind", o.Name(), "rid", r, "err", err)
	}
}

func updateOrWarn[T any](o *rid.Owner[T], r rid.RID, op string, fn func(*T)) {
	if !o.Update(r, fn) {
		slogger().Warn("canvas: unknown resource", "kind", o.Name(), "op", op, "rid", r)
	}
}

func (c *Culler) CanvasAllocate() rid.RID { return c.canvases.Allocate() }

func (c *Culler) CanvasInitialize(r rid.RID) {
	initOrWarn(c.canvases, r, canvasState{modulate: rendering.White, parentScale: 1})
}

func (c *Culler) CanvasSetItemMirroring(canvas, it rid.RID, mirroring geom.Vector2) {
	updateOrWarn(c.canvases, canvas, "set_item_mirroring", func(cs *canvasState) {
		if cs.mirroring == nil {
			cs.mirroring = make(map[rid.RID]geom.Vector2)
		}
		cs.mirroring[it] = mirroring
	})
}

func (c *Culler) CanvasSetModulate(canvas rid.RID, col rendering.Color) {
	updateOrWarn(c.canvases, canvas, "set_modulate", func(cs *canvasState) { cs.modulate = col })
}

// CanvasSetParent draws canvas after the items of parent, scaled by scale.
func (c *Culler) CanvasSetParent(canvas, parent rid.RID, scale float32) {
	if canvas == parent {
		slogger().Warn("canvas: canvas cannot be its own parent", "rid", canvas)
		return
	}
	updateOrWarn(c.canvases, canvas, "set_parent", func(cs *canvasState) {
		cs.parent, cs.parentScale = parent, scale
	})
}

func (c *Culler) CanvasSetDisableScale(disable bool) {
	c.settingsMu.Lock()
	c.disableScale = disable
	c.settingsMu.Unlock()
}

func (c *Culler) CanvasSetShadowTextureSize(size int) {
	c.settingsMu.Lock()
	c.shadowTextureSize = size
	c.settingsMu.Unlock()
}

func (c *Culler) CanvasTextureAllocate() rid.RID { return c.ctextures.Allocate() }

func (c *Culler) CanvasTextureInitialize(r rid.RID) {
	initOrWarn(c.ctextures, r, canvasTexture{specularColor: rendering.White, shininess: 1})
}

func (c *Culler) CanvasTextureSetChannel(ct rid.RID, channel rendering.CanvasTextureChannel, tex rid.RID) {
	updateOrWarn(c.ctextures, ct, "set_channel", func(t *canvasTexture) {
		switch channel {
		case rendering.CanvasTextureChannelDiffuse:
			t.diffuse = tex
		case rendering.CanvasTextureChannelNormal:
			t.normal = tex
		case rendering.CanvasTextureChannelSpecular:
			t.specular = tex
		}
	})
}

func (c *Culler) CanvasTextureSetShadingParameters(ct rid.RID, specular rendering.Color, shininess float32) {
	updateOrWarn(c.ctextures, ct, "set_shading_parameters", func(t *canvasTexture) {
		t.specularColor, t.shininess = specular, shininess
	})
}

func (c *Culler) CanvasTextureSetTextureFilter(ct rid.RID, filter rendering.CanvasItemTextureFilter) {
	updateOrWarn(c.ctextures, ct, "set_texture_filter", func(t *canvasTexture) { t.filter = filter })
}

func (c *Culler) CanvasTextureSetTextureRepeat(ct rid.RID, repeat rendering.CanvasItemTextureRepeat) {
	updateOrWarn(c.ctextures, ct, "set_texture_repeat", func(t *canvasTexture) { t.repeat = repeat })
}

func (c *Culler) CanvasLightAllocate() rid.RID { return c.lights.Allocate() }

func (c *Culler) CanvasLightInitialize(r rid.RID) {
	initOrWarn(c.lights, r, light{
		enabled:      true,
		xform:        geom.Identity(),
		textureScale: 1,
		color:        rendering.White,
		energy:       1,
		zMin:         -1024,
		zMax:         1024,
		layerMin:     0,
		layerMax:     0,
		itemMask:     1,
		shadowMask:   1,
		distance:     10000,
		shadowColor:  rendering.RGBA(0, 0, 0, 0),
	})
}

func (c *Culler) setLight(r rid.RID, op string, fn func(*light)) { updateOrWarn(c.lights, r, op, fn) }

func (c *Culler) CanvasLightSetMode(r rid.RID, mode rendering.CanvasLightMode) {
	c.setLight(r, "set_mode", func(l *light) { l.mode = mode })
}

func (c *Culler) CanvasLightAttachToCanvas(r, canvas rid.RID) {
	c.setLight(r, "attach_to_canvas", func(l *light) { l.canvas = canvas })
}

func (c *Culler) CanvasLightSetEnabled(r rid.RID, enabled bool) {
	c.setLight(r, "set_enabled", func(l *light) { l.enabled = enabled })
}

func (c *Culler) CanvasLightSetTextureScale(r rid.RID, scale float32) {
	c.setLight(r, "set_texture_scale", func(l *light) { l.textureScale = scale })
}

func (c *Culler) CanvasLightSetTransform(r rid.RID, xform geom.Transform2D) {
	c.setLight(r, "set_transform", func(l *light) { l.xform = xform })
}

func (c *Culler) CanvasLightSetTexture(r, tex rid.RID) {
	c.setLight(r, "set_texture", func(l *light) { l.texture = tex })
}

func (c *Culler) CanvasLightSetTextureOffset(r rid.RID, offset geom.Vector2) {
	c.setLight(r, "set_texture_offset", func(l *light) { l.textureOffset = offset })
}

func (c *Culler) CanvasLightSetColor(r rid.RID, col rendering.Color) {
	c.setLight(r, "set_color", func(l *light) { l.color = col })
}

func (c *Culler) CanvasLightSetHeight(r rid.RID, height float32) {
	c.setLight(r, "set_height", func(l *light) { l.height = height })
}

func (c *Culler) CanvasLightSetEnergy(r rid.RID, energy float32) {
	c.setLight(r, "set_energy", func(l *light) { l.energy = energy })
}

func (c *Culler) CanvasLightSetZRange(r rid.RID, minZ, maxZ int) {
	c.setLight(r, "set_z_range", func(l *light) { l.zMin, l.zMax = minZ, maxZ })
}

func (c *Culler) CanvasLightSetLayerRange(r rid.RID, minLayer, maxLayer int) {
	c.setLight(r, "set_layer_range", func(l *light) { l.layerMin, l.layerMax = minLayer, maxLayer })
}

func (c *Culler) CanvasLightSetItemCullMask(r rid.RID, mask int) {
	c.setLight(r, "set_item_cull_mask", func(l *light) { l.itemMask = mask })
}

func (c *Culler) CanvasLightSetItemShadowCullMask(r rid.RID, mask int) {
	c.setLight(r, "set_item_shadow_cull_mask", func(l *light) { l.shadowMask = mask })
}

func (c *Culler) CanvasLightSetDirectionalDistance(r rid.RID, distance float32) {
	c.setLight(r, "set_directional_distance", func(l *light) { l.distance = distance })
}

func (c *Culler) CanvasLightSetBlendMode(r rid.RID, mode rendering.CanvasLightBlendMode) {
	c.setLight(r, "set_blend_mode", func(l *light) { l.blend = mode })
}

func (c *Culler) CanvasLightSetShadowEnabled(r rid.RID, enabled bool) {
	c.setLight(r, "set_shadow_enabled", func(l *light) { l.shadow = enabled })
}

func (c *Culler) CanvasLightSetShadowFilter(r rid.RID, filter rendering.CanvasLightShadowFilter) {
	c.setLight(r, "set_shadow_filter", func(l *light) { l.shadowFilter = filter })
}

func (c *Culler) CanvasLightSetShadowColor(r rid.RID, col rendering.Color) {
	c.setLight(r, "set_shadow_color", func(l *light) { l.shadowColor = col })
}

func (c *Culler) CanvasLightSetShadowSmooth(r rid.RID, smooth float32) {
	c.setLight(r, "set_shadow_smooth", func(l *light) { l.shadowSmooth = smooth })
}

func (c *Culler) CanvasLightOccluderAllocate() rid.RID { return c.occluders.Allocate() }

func (c *Culler) CanvasLightOccluderInitialize(r rid.RID) {
	initOrWarn(c.occluders, r, occluder{enabled: true, xform: geom.Identity(), lightMask: 1})
}

func (c *Culler) CanvasLightOccluderAttachToCanvas(r, canvas rid.RID) {
	updateOrWarn(c.occluders, r, "attach_to_canvas", func(o *occluder) { o.canvas = canvas })
}

func (c *Culler) CanvasLightOccluderSetEnabled(r rid.RID, enabled bool) {
	updateOrWarn(c.occluders, r, "set_enabled", func(o *occluder) { o.enabled = enabled })
}

func (c *Culler) CanvasLightOccluderSetPolygon(r, polygon rid.RID) {
	updateOrWarn(c.occluders, r, "set_polygon", func(o *occluder) { o.polygon = polygon })
}

func (c *Culler) CanvasLightOccluderSetAsSDFCollision(r rid.RID, enable bool) {
	updateOrWarn(c.occluders, r, "set_as_sdf_collision", func(o *occluder) { o.sdfCollision = enable })
}

func (c *Culler) CanvasLightOccluderSetTransform(r rid.RID, xform geom.Transform2D) {
	updateOrWarn(c.occluders, r, "set_transform", func(o *occluder) { o.xform = xform })
}

func (c *Culler) CanvasLightOccluderSetLightMask(r rid.RID, mask int) {
	updateOrWarn(c.occluders, r, "set_light_mask", func(o *occluder) { o.lightMask = mask })
}

func (c *Culler) CanvasOccluderPolygonAllocate() rid.RID { return c.polygons.Allocate() }

func (c *Culler) CanvasOccluderPolygonInitialize(r rid.RID) {
	initOrWarn(c.polygons, r, occluderPolygon{closed: true})
}

func (c *Culler) CanvasOccluderPolygonSetShape(r rid.RID, shape []geom.Vector2, closed bool) {
	updateOrWarn(c.polygons, r, "set_shape", func(p *occluderPolygon) {
		p.shape, p.closed = shape, closed
	})
}

func (c *Culler) CanvasOccluderPolygonSetCullMode(r rid.RID, mode rendering.CanvasOccluderPolygonCullMode) {
	updateOrWarn(c.polygons, r, "set_cull_mode", func(p *occluderPolygon) { p.cullMode = mode })
}

// LightsOf returns the enabled lights attached to canvas.
func (c *Culler) LightsOf(canvas rid.RID) []rid.RID {
	var out []rid.RID
	c.lights.Range(func(r rid.RID, l light) bool {
		if l.canvas == canvas && l.enabled {
			out = append(out, r)
		}
		return true
	})
	return out
}

// OccludersOf returns the enabled occluders attached to canvas that have a
// polygon.
func (c *Culler) OccludersOf(canvas rid.RID) []rid.RID {
	var out []rid.RID
	c.occluders.Range(func(r rid.RID, o occluder) bool {
		if o.canvas == canvas && o.enabled && o.polygon.IsValid() {
			out = append(out, r)
		}
		return true
	})
	return out
}
