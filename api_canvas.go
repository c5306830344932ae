package renderserver

import (
	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

const canvasTarget = "canvas_culler"

// CanvasCreate creates a canvas, the root of a 2D scene.
func (s *Server) CanvasCreate() rid.RID {
	c := s.collabs.Canvas
	return s.create(c, "canvas_create", c.CanvasAllocate, c.CanvasInitialize)
}

// CanvasTextureCreate creates a canvas texture combining diffuse, normal
// and specular textures.
func (s *Server) CanvasTextureCreate() rid.RID {
	c := s.collabs.Canvas
	return s.create(c, "canvas_texture_create", c.CanvasTextureAllocate, c.CanvasTextureInitialize)
}

// CanvasItemCreate creates a canvas item with an empty draw list.
func (s *Server) CanvasItemCreate() rid.RID {
	c := s.collabs.Canvas
	return s.create(c, "canvas_item_create", c.CanvasItemAllocate, c.CanvasItemInitialize)
}

// CanvasLightCreate creates a 2D light.
func (s *Server) CanvasLightCreate() rid.RID {
	c := s.collabs.Canvas
	return s.create(c, "canvas_light_create", c.CanvasLightAllocate, c.CanvasLightInitialize)
}

// CanvasLightOccluderCreate creates a light occluder.
func (s *Server) CanvasLightOccluderCreate() rid.RID {
	c := s.collabs.Canvas
	return s.create(c, "canvas_light_occluder_create", c.CanvasLightOccluderAllocate, c.CanvasLightOccluderInitialize)
}

// CanvasOccluderPolygonCreate creates an occluder polygon.
func (s *Server) CanvasOccluderPolygonCreate() rid.RID {
	c := s.collabs.Canvas
	return s.create(c, "canvas_occluder_polygon_create", c.CanvasOccluderPolygonAllocate, c.CanvasOccluderPolygonInitialize)
}

// CanvasSetItemMirroring records the mirroring offset of item in canvas.
func (s *Server) CanvasSetItemMirroring(canvas, item rid.RID, mirroring geom.Vector2) {
	c := s.collabs.Canvas
	s.write(c, "canvas_set_item_mirroring", func() { c.CanvasSetItemMirroring(canvas, item, mirroring) })
}

// CanvasSetModulate tints everything drawn in canvas.
func (s *Server) CanvasSetModulate(canvas rid.RID, color rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_set_modulate", func() { c.CanvasSetModulate(canvas, color) })
}

// CanvasSetParent makes canvas draw inside parent, scaled by scale.
func (s *Server) CanvasSetParent(canvas, parent rid.RID, scale float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_set_parent", func() { c.CanvasSetParent(canvas, parent, scale) })
}

// CanvasSetDisableScale ignores the scale of parent canvases.
func (s *Server) CanvasSetDisableScale(disable bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_set_disable_scale", func() { c.CanvasSetDisableScale(disable) })
}

// CanvasTextureSetChannel binds tex to one channel of ct.
func (s *Server) CanvasTextureSetChannel(ct rid.RID, channel rendering.CanvasTextureChannel, tex rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_texture_set_channel", func() { c.CanvasTextureSetChannel(ct, channel, tex) })
}

// CanvasTextureSetShadingParameters sets the specular color and shininess of
// ct.
func (s *Server) CanvasTextureSetShadingParameters(ct rid.RID, specular rendering.Color, shininess float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_texture_set_shading_parameters", func() { c.CanvasTextureSetShadingParameters(ct, specular, shininess) })
}

// CanvasTextureSetTextureFilter sets the sampling filter of ct.
func (s *Server) CanvasTextureSetTextureFilter(ct rid.RID, filter rendering.CanvasItemTextureFilter) {
	c := s.collabs.Canvas
	s.write(c, "canvas_texture_set_texture_filter", func() { c.CanvasTextureSetTextureFilter(ct, filter) })
}

// CanvasTextureSetTextureRepeat sets the repeat mode of ct.
func (s *Server) CanvasTextureSetTextureRepeat(ct rid.RID, repeat rendering.CanvasItemTextureRepeat) {
	c := s.collabs.Canvas
	s.write(c, "canvas_texture_set_texture_repeat", func() { c.CanvasTextureSetTextureRepeat(ct, repeat) })
}

// CanvasItemSetParent attaches item below parent, which is a canvas or
// another canvas item.
func (s *Server) CanvasItemSetParent(item, parent rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_parent", func() { c.CanvasItemSetParent(item, parent) })
}

// CanvasItemSetDefaultTextureFilter sets the filter used by textures drawn
// in item.
func (s *Server) CanvasItemSetDefaultTextureFilter(item rid.RID, filter rendering.CanvasItemTextureFilter) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_default_texture_filter", func() { c.CanvasItemSetDefaultTextureFilter(item, filter) })
}

// CanvasItemSetDefaultTextureRepeat sets the repeat mode used by textures
// drawn in item.
func (s *Server) CanvasItemSetDefaultTextureRepeat(item rid.RID, repeat rendering.CanvasItemTextureRepeat) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_default_texture_repeat", func() { c.CanvasItemSetDefaultTextureRepeat(item, repeat) })
}

// CanvasItemSetVisible shows or hides item and its children.
func (s *Server) CanvasItemSetVisible(item rid.RID, visible bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_visible", func() { c.CanvasItemSetVisible(item, visible) })
}

// CanvasItemSetLightMask sets the lights that affect item.
func (s *Server) CanvasItemSetLightMask(item rid.RID, mask int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_light_mask", func() { c.CanvasItemSetLightMask(item, mask) })
}

// CanvasItemSetVisibilityLayer sets the layers item is drawn on; see
// ViewportSetCanvasCullMask.
func (s *Server) CanvasItemSetVisibilityLayer(item rid.RID, layer uint32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_visibility_layer", func() { c.CanvasItemSetVisibilityLayer(item, layer) })
}

// CanvasItemSetUpdateWhenVisible makes item request redraws while visible.
func (s *Server) CanvasItemSetUpdateWhenVisible(item rid.RID, update bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_update_when_visible", func() { c.CanvasItemSetUpdateWhenVisible(item, update) })
}

// CanvasItemSetTransform sets the transform of item relative to its parent.
func (s *Server) CanvasItemSetTransform(item rid.RID, xform geom.Transform2D) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_transform", func() { c.CanvasItemSetTransform(item, xform) })
}

// CanvasItemSetClip clips the children of item to its rect.
func (s *Server) CanvasItemSetClip(item rid.RID, clip bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_clip", func() { c.CanvasItemSetClip(item, clip) })
}

// CanvasItemSetDistanceFieldMode draws the textures of item as distance
// fields.
func (s *Server) CanvasItemSetDistanceFieldMode(item rid.RID, enable bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_distance_field_mode", func() { c.CanvasItemSetDistanceFieldMode(item, enable) })
}

// CanvasItemSetCustomRect replaces the culling rect of item with rect.
func (s *Server) CanvasItemSetCustomRect(item rid.RID, custom bool, rect geom.Rect2) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_custom_rect", func() { c.CanvasItemSetCustomRect(item, custom, rect) })
}

// CanvasItemSetModulate tints item and its children.
func (s *Server) CanvasItemSetModulate(item rid.RID, color rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_modulate", func() { c.CanvasItemSetModulate(item, color) })
}

// CanvasItemSetSelfModulate tints item only.
func (s *Server) CanvasItemSetSelfModulate(item rid.RID, color rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_self_modulate", func() { c.CanvasItemSetSelfModulate(item, color) })
}

// CanvasItemSetDrawBehindParent draws item before its parent.
func (s *Server) CanvasItemSetDrawBehindParent(item rid.RID, enable bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_draw_behind_parent", func() { c.CanvasItemSetDrawBehindParent(item, enable) })
}

// CanvasItemAddLine appends a line to the draw list of item. A negative
// width draws a one pixel line.
func (s *Server) CanvasItemAddLine(item rid.RID, from, to geom.Vector2, color rendering.Color, width float32, antialiased bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_line", func() { c.CanvasItemAddLine(item, from, to, color, width, antialiased) })
}

// CanvasItemAddPolyline appends an open polyline. colors holds one color
// for the whole line or one per point. The slices are copied.
func (s *Server) CanvasItemAddPolyline(item rid.RID, points []geom.Vector2, colors []rendering.Color, width float32, antialiased bool) {
	c := s.collabs.Canvas
	points = snapshot(points)
	colors = snapshot(colors)
	s.write(c, "canvas_item_add_polyline", func() { c.CanvasItemAddPolyline(item, points, colors, width, antialiased) })
}

// CanvasItemAddMultiline draws a segment for each pair of points.
func (s *Server) CanvasItemAddMultiline(item rid.RID, points []geom.Vector2, colors []rendering.Color, width float32) {
	c := s.collabs.Canvas
	points = snapshot(points)
	colors = snapshot(colors)
	s.write(c, "canvas_item_add_multiline", func() { c.CanvasItemAddMultiline(item, points, colors, width) })
}

// CanvasItemAddRect fills rect with color.
func (s *Server) CanvasItemAddRect(item rid.RID, rect geom.Rect2, color rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_rect", func() { c.CanvasItemAddRect(item, rect, color) })
}

// CanvasItemAddCircle fills a circle centered at pos.
func (s *Server) CanvasItemAddCircle(item rid.RID, pos geom.Vector2, radius float32, color rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_circle", func() { c.CanvasItemAddCircle(item, pos, radius, color) })
}

// CanvasItemAddTextureRect draws tex stretched or tiled over rect.
func (s *Server) CanvasItemAddTextureRect(item rid.RID, rect geom.Rect2, tex rid.RID, tile bool, modulate rendering.Color, transpose bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_texture_rect", func() { c.CanvasItemAddTextureRect(item, rect, tex, tile, modulate, transpose) })
}

// CanvasItemAddTextureRectRegion draws the src region of tex into rect.
func (s *Server) CanvasItemAddTextureRectRegion(item rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate rendering.Color, transpose, clipUV bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_texture_rect_region", func() { c.CanvasItemAddTextureRectRegion(item, rect, tex, src, modulate, transpose, clipUV) })
}

// CanvasItemAddMSDFTextureRectRegion draws a multi-channel distance field
// region of tex.
func (s *Server) CanvasItemAddMSDFTextureRectRegion(item rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate rendering.Color, outlineSize int, pxRange, scale float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_msdf_texture_rect_region", func() {
		c.CanvasItemAddMSDFTextureRectRegion(item, rect, tex, src, modulate, outlineSize, pxRange, scale)
	})
}

// CanvasItemAddLCDTextureRectRegion draws a subpixel-antialiased region of
// tex.
func (s *Server) CanvasItemAddLCDTextureRectRegion(item rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_lcd_texture_rect_region", func() { c.CanvasItemAddLCDTextureRectRegion(item, rect, tex, src, modulate) })
}

// CanvasItemAddNinePatch draws source of tex into rect keeping the corner
// margins topLeft and bottomRight unscaled.
func (s *Server) CanvasItemAddNinePatch(item rid.RID, rect, source geom.Rect2, tex rid.RID, topLeft, bottomRight geom.Vector2, xAxis, yAxis rendering.NinePatchAxisMode, drawCenter bool, modulate rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_nine_patch", func() {
		c.CanvasItemAddNinePatch(item, rect, source, tex, topLeft, bottomRight, xAxis, yAxis, drawCenter, modulate)
	})
}

// CanvasItemAddPrimitive draws a point, line, triangle or quad from up to
// four points.
func (s *Server) CanvasItemAddPrimitive(item rid.RID, points []geom.Vector2, colors []rendering.Color, uvs []geom.Vector2, tex rid.RID) {
	c := s.collabs.Canvas
	points = snapshot(points)
	colors = snapshot(colors)
	uvs = snapshot(uvs)
	s.write(c, "canvas_item_add_primitive", func() { c.CanvasItemAddPrimitive(item, points, colors, uvs, tex) })
}

// CanvasItemAddPolygon appends a filled polygon. The slices are copied.
func (s *Server) CanvasItemAddPolygon(item rid.RID, points []geom.Vector2, colors []rendering.Color, uvs []geom.Vector2, tex rid.RID) {
	c := s.collabs.Canvas
	points = snapshot(points)
	colors = snapshot(colors)
	uvs = snapshot(uvs)
	s.write(c, "canvas_item_add_polygon", func() { c.CanvasItemAddPolygon(item, points, colors, uvs, tex) })
}

// CanvasItemAddTriangleArray appends triangles given by indices into
// points, or consecutive point triples when indices is empty. count limits
// the number of triangles when positive.
func (s *Server) CanvasItemAddTriangleArray(item rid.RID, indices []int, points []geom.Vector2, colors []rendering.Color, uvs []geom.Vector2, tex rid.RID, count int) {
	c := s.collabs.Canvas
	indices = snapshot(indices)
	points = snapshot(points)
	colors = snapshot(colors)
	uvs = snapshot(uvs)
	s.write(c, "canvas_item_add_triangle_array", func() { c.CanvasItemAddTriangleArray(item, indices, points, colors, uvs, tex, count) })
}

// CanvasItemAddSetTransform applies xform to the commands added after it.
func (s *Server) CanvasItemAddSetTransform(item rid.RID, xform geom.Transform2D) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_set_transform", func() { c.CanvasItemAddSetTransform(item, xform) })
}

// CanvasItemAddClipIgnore turns clipping off for the commands added after
// it.
func (s *Server) CanvasItemAddClipIgnore(item rid.RID, ignore bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_clip_ignore", func() { c.CanvasItemAddClipIgnore(item, ignore) })
}

// CanvasItemAddAnimationSlice limits the following commands to a time slice.
// Slices are recorded but not applied.
func (s *Server) CanvasItemAddAnimationSlice(item rid.RID, length, begin, end, offset float64) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_add_animation_slice", func() { c.CanvasItemAddAnimationSlice(item, length, begin, end, offset) })
}

// CanvasItemSetSortChildrenByY draws the children of item in order of their
// Y position.
func (s *Server) CanvasItemSetSortChildrenByY(item rid.RID, enable bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_sort_children_by_y", func() { c.CanvasItemSetSortChildrenByY(item, enable) })
}

// CanvasItemSetZIndex sets the draw order of item relative to its siblings
// and, when z is relative, its parent.
func (s *Server) CanvasItemSetZIndex(item rid.RID, z int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_zindex", func() { c.CanvasItemSetZIndex(item, z) })
}

// CanvasItemSetZAsRelativeToParent adds the parent's z index to item's.
func (s *Server) CanvasItemSetZAsRelativeToParent(item rid.RID, enable bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_z_as_relative_to_parent", func() { c.CanvasItemSetZAsRelativeToParent(item, enable) })
}

// CanvasItemSetCopyToBackbuffer copies the screen behind item before it is
// drawn.
func (s *Server) CanvasItemSetCopyToBackbuffer(item rid.RID, enable bool, rect geom.Rect2) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_copy_to_backbuffer", func() { c.CanvasItemSetCopyToBackbuffer(item, enable, rect) })
}

// CanvasItemClear removes every draw command from item.
func (s *Server) CanvasItemClear(item rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_clear", func() { c.CanvasItemClear(item) })
}

// CanvasItemSetDrawIndex orders item among siblings with the same z index.
func (s *Server) CanvasItemSetDrawIndex(item rid.RID, index int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_draw_index", func() { c.CanvasItemSetDrawIndex(item, index) })
}

// CanvasItemSetMaterial sets the material item is drawn with.
func (s *Server) CanvasItemSetMaterial(item, material rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_material", func() { c.CanvasItemSetMaterial(item, material) })
}

// CanvasItemSetUseParentMaterial draws item with its parent's material.
func (s *Server) CanvasItemSetUseParentMaterial(item rid.RID, enable bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_use_parent_material", func() { c.CanvasItemSetUseParentMaterial(item, enable) })
}

// CanvasItemSetVisibilityNotifier calls onEnter when area of item becomes
// visible in a drawn viewport and onExit when it stops being visible. The
// callbacks run on the render thread.
func (s *Server) CanvasItemSetVisibilityNotifier(item rid.RID, enable bool, area geom.Rect2, onEnter, onExit func()) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_visibility_notifier", func() { c.CanvasItemSetVisibilityNotifier(item, enable, area, onEnter, onExit) })
}

// CanvasItemSetCanvasGroupMode draws item and its children into a group
// buffer first.
func (s *Server) CanvasItemSetCanvasGroupMode(item rid.RID, mode rendering.CanvasGroupMode, clearMargin float32, fitEmpty bool, fitMargin float32, blurMipmaps bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_item_set_canvas_group_mode", func() { c.CanvasItemSetCanvasGroupMode(item, mode, clearMargin, fitEmpty, fitMargin, blurMipmaps) })
}

// CanvasLightSetMode switches light between point and directional.
func (s *Server) CanvasLightSetMode(light rid.RID, mode rendering.CanvasLightMode) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_mode", func() { c.CanvasLightSetMode(light, mode) })
}

// CanvasLightAttachToCanvas makes light affect canvas.
func (s *Server) CanvasLightAttachToCanvas(light, canvas rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_attach_to_canvas", func() { c.CanvasLightAttachToCanvas(light, canvas) })
}

// CanvasLightSetEnabled turns light on or off.
func (s *Server) CanvasLightSetEnabled(light rid.RID, enabled bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_enabled", func() { c.CanvasLightSetEnabled(light, enabled) })
}

// CanvasLightSetTextureScale scales the light texture.
func (s *Server) CanvasLightSetTextureScale(light rid.RID, scale float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_texture_scale", func() { c.CanvasLightSetTextureScale(light, scale) })
}

// CanvasLightSetTransform places light in canvas space.
func (s *Server) CanvasLightSetTransform(light rid.RID, xform geom.Transform2D) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_transform", func() { c.CanvasLightSetTransform(light, xform) })
}

// CanvasLightSetTexture sets the texture that shapes light.
func (s *Server) CanvasLightSetTexture(light, tex rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_texture", func() { c.CanvasLightSetTexture(light, tex) })
}

// CanvasLightSetTextureOffset offsets the light texture.
func (s *Server) CanvasLightSetTextureOffset(light rid.RID, offset geom.Vector2) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_texture_offset", func() { c.CanvasLightSetTextureOffset(light, offset) })
}

// CanvasLightSetColor sets the color of light.
func (s *Server) CanvasLightSetColor(light rid.RID, color rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_color", func() { c.CanvasLightSetColor(light, color) })
}

// CanvasLightSetHeight sets the height of light above the canvas.
func (s *Server) CanvasLightSetHeight(light rid.RID, height float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_height", func() { c.CanvasLightSetHeight(light, height) })
}

// CanvasLightSetEnergy sets the intensity of light.
func (s *Server) CanvasLightSetEnergy(light rid.RID, energy float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_energy", func() { c.CanvasLightSetEnergy(light, energy) })
}

// CanvasLightSetZRange limits light to items within the z range.
func (s *Server) CanvasLightSetZRange(light rid.RID, minZ, maxZ int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_zrange", func() { c.CanvasLightSetZRange(light, minZ, maxZ) })
}

// CanvasLightSetLayerRange limits light to canvas layers within the range.
func (s *Server) CanvasLightSetLayerRange(light rid.RID, minLayer, maxLayer int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_layer_range", func() { c.CanvasLightSetLayerRange(light, minLayer, maxLayer) })
}

// CanvasLightSetItemCullMask sets the light masks light affects.
func (s *Server) CanvasLightSetItemCullMask(light rid.RID, mask int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_item_cull_mask", func() { c.CanvasLightSetItemCullMask(light, mask) })
}

// CanvasLightSetItemShadowCullMask sets the occluder masks that cast shadows
// from light.
func (s *Server) CanvasLightSetItemShadowCullMask(light rid.RID, mask int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_item_shadow_cull_mask", func() { c.CanvasLightSetItemShadowCullMask(light, mask) })
}

// CanvasLightSetDirectionalDistance sets how far a directional light's
// shadows reach.
func (s *Server) CanvasLightSetDirectionalDistance(light rid.RID, distance float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_directional_distance", func() { c.CanvasLightSetDirectionalDistance(light, distance) })
}

// CanvasLightSetBlendMode sets how light blends with the items it lights.
func (s *Server) CanvasLightSetBlendMode(light rid.RID, mode rendering.CanvasLightBlendMode) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_blend_mode", func() { c.CanvasLightSetBlendMode(light, mode) })
}

// CanvasLightSetShadowEnabled makes light cast shadows.
func (s *Server) CanvasLightSetShadowEnabled(light rid.RID, enabled bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_shadow_enabled", func() { c.CanvasLightSetShadowEnabled(light, enabled) })
}

// CanvasLightSetShadowFilter sets the shadow filter of light.
func (s *Server) CanvasLightSetShadowFilter(light rid.RID, filter rendering.CanvasLightShadowFilter) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_shadow_filter", func() { c.CanvasLightSetShadowFilter(light, filter) })
}

// CanvasLightSetShadowColor sets the shadow color of light.
func (s *Server) CanvasLightSetShadowColor(light rid.RID, color rendering.Color) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_shadow_color", func() { c.CanvasLightSetShadowColor(light, color) })
}

// CanvasLightSetShadowSmooth sets the shadow softness of light.
func (s *Server) CanvasLightSetShadowSmooth(light rid.RID, smooth float32) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_set_shadow_smooth", func() { c.CanvasLightSetShadowSmooth(light, smooth) })
}

// CanvasLightOccluderAttachToCanvas moves occluder into canvas.
func (s *Server) CanvasLightOccluderAttachToCanvas(occluder, canvas rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_occluder_attach_to_canvas", func() { c.CanvasLightOccluderAttachToCanvas(occluder, canvas) })
}

// CanvasLightOccluderSetEnabled turns occluder on or off.
func (s *Server) CanvasLightOccluderSetEnabled(occluder rid.RID, enabled bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_occluder_set_enabled", func() { c.CanvasLightOccluderSetEnabled(occluder, enabled) })
}

// CanvasLightOccluderSetPolygon sets the shape of occluder.
func (s *Server) CanvasLightOccluderSetPolygon(occluder, polygon rid.RID) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_occluder_set_polygon", func() { c.CanvasLightOccluderSetPolygon(occluder, polygon) })
}

// CanvasLightOccluderSetAsSDFCollision adds occluder to the signed distance
// field.
func (s *Server) CanvasLightOccluderSetAsSDFCollision(occluder rid.RID, enable bool) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_occluder_set_as_sdf_collision", func() { c.CanvasLightOccluderSetAsSDFCollision(occluder, enable) })
}

// CanvasLightOccluderSetTransform places occluder in canvas space.
func (s *Server) CanvasLightOccluderSetTransform(occluder rid.RID, xform geom.Transform2D) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_occluder_set_transform", func() { c.CanvasLightOccluderSetTransform(occluder, xform) })
}

// CanvasLightOccluderSetLightMask sets the lights occluder blocks.
func (s *Server) CanvasLightOccluderSetLightMask(occluder rid.RID, mask int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_light_occluder_set_light_mask", func() { c.CanvasLightOccluderSetLightMask(occluder, mask) })
}

// CanvasOccluderPolygonSetShape sets the outline of polygon. The slice is
// copied.
func (s *Server) CanvasOccluderPolygonSetShape(polygon rid.RID, shape []geom.Vector2, closed bool) {
	c := s.collabs.Canvas
	shape = snapshot(shape)
	s.write(c, "canvas_occluder_polygon_set_shape", func() { c.CanvasOccluderPolygonSetShape(polygon, shape, closed) })
}

// CanvasOccluderPolygonSetCullMode sets which side of polygon casts shadows.
func (s *Server) CanvasOccluderPolygonSetCullMode(polygon rid.RID, mode rendering.CanvasOccluderPolygonCullMode) {
	c := s.collabs.Canvas
	s.write(c, "canvas_occluder_polygon_set_cull_mode", func() { c.CanvasOccluderPolygonSetCullMode(polygon, mode) })
}

// CanvasSetShadowTextureSize sets the resolution of 2D shadow maps.
func (s *Server) CanvasSetShadowTextureSize(size int) {
	c := s.collabs.Canvas
	s.write(c, "canvas_set_shadow_texture_size", func() { c.CanvasSetShadowTextureSize(size) })
}

// DebugCanvasItemGetRect returns the local bounds of the draw commands of
// item.
func (s *Server) DebugCanvasItemGetRect(item rid.RID) geom.Rect2 {
	return query(s, canvasTarget, "debug_canvas_item_get_rect", func() geom.Rect2 {
		return s.collabs.Canvas.DebugCanvasItemGetRect(item)
	})
}
