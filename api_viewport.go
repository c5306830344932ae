package renderserver

import (
	"image"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

const viewportsTarget = "viewport_manager"

// ViewportCreate creates an inactive viewport.
func (s *Server) ViewportCreate() rid.RID {
	v := s.collabs.Viewports
	return s.create(v, "viewport_create", v.ViewportAllocate, v.ViewportInitialize)
}

// ViewportSetSize resizes vp. Sizes above Config.MaxViewportSize are
// clamped.
func (s *Server) ViewportSetSize(vp rid.RID, width, height int) {
	if limit := s.cfg.MaxViewportSize; limit != (image.Point{}) {
		if (limit.X > 0 && width > limit.X) || (limit.Y > 0 && height > limit.Y) {
			slogger().Warn("renderserver: viewport size clamped", "rid", vp, "width", width, "height", height, "max", limit)
			if limit.X > 0 {
				width = min(width, limit.X)
			}
			if limit.Y > 0 {
				height = min(height, limit.Y)
			}
		}
	}
	v := s.collabs.Viewports
	s.write(v, "viewport_set_size", func() { v.ViewportSetSize(vp, width, height) })
}

// ViewportSetActive includes or excludes vp from frame drawing.
func (s *Server) ViewportSetActive(vp rid.RID, active bool) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_active", func() { v.ViewportSetActive(vp, active) })
}

// ViewportSetParentViewport draws vp as part of parent.
func (s *Server) ViewportSetParentViewport(vp, parent rid.RID) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_parent_viewport", func() { v.ViewportSetParentViewport(vp, parent) })
}

// ViewportSetClearMode sets when the target of vp is cleared.
func (s *Server) ViewportSetClearMode(vp rid.RID, mode rendering.ViewportClearMode) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_clear_mode", func() { v.ViewportSetClearMode(vp, mode) })
}

// ViewportAttachToScreen shows vp on screen inside rect. A screen of
// rendering.InvalidWindowID detaches it.
func (s *Server) ViewportAttachToScreen(vp rid.RID, rect geom.Rect2, screen rendering.WindowID) {
	v := s.collabs.Viewports
	s.write(v, "viewport_attach_to_screen", func() { v.ViewportAttachToScreen(vp, rect, screen) })
}

// ViewportSetRenderDirectToScreen draws vp straight to its screen instead of
// its texture.
func (s *Server) ViewportSetRenderDirectToScreen(vp rid.RID, enable bool) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_render_direct_to_screen", func() { v.ViewportSetRenderDirectToScreen(vp, enable) })
}

// ViewportSetUpdateMode sets when vp is redrawn.
func (s *Server) ViewportSetUpdateMode(vp rid.RID, mode rendering.ViewportUpdateMode) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_update_mode", func() { v.ViewportSetUpdateMode(vp, mode) })
}

// ViewportSetDisable2D skips the canvases of vp.
func (s *Server) ViewportSetDisable2D(vp rid.RID, disable bool) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_disable_2d", func() { v.ViewportSetDisable2D(vp, disable) })
}

// ViewportSetCanvasCullMask hides canvas items whose visibility layer is not
// in mask.
func (s *Server) ViewportSetCanvasCullMask(vp rid.RID, mask uint32) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_canvas_cull_mask", func() { v.ViewportSetCanvasCullMask(vp, mask) })
}

// ViewportAttachCamera records the 3D camera of vp.
func (s *Server) ViewportAttachCamera(vp, camera rid.RID) {
	v := s.collabs.Viewports
	s.write(v, "viewport_attach_camera", func() { v.ViewportAttachCamera(vp, camera) })
}

// ViewportAttachCanvas draws canvas in vp.
func (s *Server) ViewportAttachCanvas(vp, canvas rid.RID) {
	v := s.collabs.Viewports
	s.write(v, "viewport_attach_canvas", func() { v.ViewportAttachCanvas(vp, canvas) })
}

// ViewportRemoveCanvas stops drawing canvas in vp.
func (s *Server) ViewportRemoveCanvas(vp, canvas rid.RID) {
	v := s.collabs.Viewports
	s.write(v, "viewport_remove_canvas", func() { v.ViewportRemoveCanvas(vp, canvas) })
}

// ViewportSetCanvasTransform sets the transform canvas is drawn with in vp.
func (s *Server) ViewportSetCanvasTransform(vp, canvas rid.RID, xform geom.Transform2D) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_canvas_transform", func() { v.ViewportSetCanvasTransform(vp, canvas, xform) })
}

// ViewportSetClearColor overrides the default clear color for vp.
func (s *Server) ViewportSetClearColor(vp rid.RID, c rendering.Color) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_clear_color", func() { v.ViewportSetClearColor(vp, c) })
}

// ViewportSetTransparentBackground clears vp to transparent.
func (s *Server) ViewportSetTransparentBackground(vp rid.RID, enable bool) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_transparent_background", func() { v.ViewportSetTransparentBackground(vp, enable) })
}

// ViewportSetSnap2DTransformsToPixel rounds canvas item positions to whole
// pixels.
func (s *Server) ViewportSetSnap2DTransformsToPixel(vp rid.RID, enable bool) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_snap_2d_transforms_to_pixel", func() { v.ViewportSetSnap2DTransformsToPixel(vp, enable) })
}

// ViewportSetSnap2DVerticesToPixel rounds drawn vertices to whole pixels.
func (s *Server) ViewportSetSnap2DVerticesToPixel(vp rid.RID, enable bool) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_snap_2d_vertices_to_pixel", func() { v.ViewportSetSnap2DVerticesToPixel(vp, enable) })
}

// ViewportSetDefaultCanvasItemTextureFilter sets the texture filter of items
// that use the default.
func (s *Server) ViewportSetDefaultCanvasItemTextureFilter(vp rid.RID, filter rendering.CanvasItemTextureFilter) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_default_canvas_item_texture_filter", func() { v.ViewportSetDefaultCanvasItemTextureFilter(vp, filter) })
}

// ViewportSetDefaultCanvasItemTextureRepeat sets the repeat mode of items
// that use the default.
func (s *Server) ViewportSetDefaultCanvasItemTextureRepeat(vp rid.RID, repeat rendering.CanvasItemTextureRepeat) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_default_canvas_item_texture_repeat", func() { v.ViewportSetDefaultCanvasItemTextureRepeat(vp, repeat) })
}

// ViewportSetGlobalCanvasTransform applies xform to every canvas of vp.
func (s *Server) ViewportSetGlobalCanvasTransform(vp rid.RID, xform geom.Transform2D) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_global_canvas_transform", func() { v.ViewportSetGlobalCanvasTransform(vp, xform) })
}

// ViewportSetCanvasStacking orders canvases within vp; lower layers draw first.
func (s *Server) ViewportSetCanvasStacking(vp, canvas rid.RID, layer, sublayer int) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_canvas_stacking", func() { v.ViewportSetCanvasStacking(vp, canvas, layer, sublayer) })
}

// ViewportSetSDFOversizeAndScale sizes the signed distance field of vp.
func (s *Server) ViewportSetSDFOversizeAndScale(vp rid.RID, oversize rendering.ViewportSDFOversize, scale rendering.ViewportSDFScale) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_sdf_oversize_and_scale", func() { v.ViewportSetSDFOversizeAndScale(vp, oversize, scale) })
}

// ViewportSetMSAA2D sets the 2D multisampling of vp.
func (s *Server) ViewportSetMSAA2D(vp rid.RID, msaa rendering.ViewportMSAA) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_msaa_2d", func() { v.ViewportSetMSAA2D(vp, msaa) })
}

// ViewportSetMeasureRenderTime records how long vp takes to draw.
func (s *Server) ViewportSetMeasureRenderTime(vp rid.RID, enable bool) {
	v := s.collabs.Viewports
	s.write(v, "viewport_set_measure_render_time", func() { v.ViewportSetMeasureRenderTime(vp, enable) })
}

// SetVSyncMode selects the presentation mode of window.
func (s *Server) SetVSyncMode(mode rendering.VSyncMode, window rendering.WindowID) {
	v := s.collabs.Viewports
	s.write(v, "set_vsync_mode", func() { v.SetVSyncMode(mode, window) })
}

// ViewportGetRenderTarget returns the render target of vp.
func (s *Server) ViewportGetRenderTarget(vp rid.RID) rid.RID {
	return query(s, viewportsTarget, "viewport_get_render_target", func() rid.RID {
		return s.collabs.Viewports.ViewportGetRenderTarget(vp)
	})
}

// ViewportGetTexture returns the texture holding the last drawn contents of
// vp. It can be drawn in other viewports.
func (s *Server) ViewportGetTexture(vp rid.RID) rid.RID {
	return query(s, viewportsTarget, "viewport_get_texture", func() rid.RID {
		return s.collabs.Viewports.ViewportGetTexture(vp)
	})
}

// ViewportGetRenderInfo returns a statistic of the last frame of vp.
func (s *Server) ViewportGetRenderInfo(vp rid.RID, typ rendering.ViewportRenderInfoType, info rendering.ViewportRenderInfo) int {
	return query(s, viewportsTarget, "viewport_get_render_info", func() int {
		return s.collabs.Viewports.ViewportGetRenderInfo(vp, typ, info)
	})
}

// ViewportGetMeasuredRenderTimeCPU returns the last measured draw time of vp
// in milliseconds.
func (s *Server) ViewportGetMeasuredRenderTimeCPU(vp rid.RID) float64 {
	return query(s, viewportsTarget, "viewport_get_measured_render_time_cpu", func() float64 {
		return s.collabs.Viewports.ViewportGetMeasuredRenderTimeCPU(vp)
	})
}

// ViewportGetMeasuredRenderTimeGPU returns the GPU draw time of vp in
// milliseconds. CPU targets report zero.
func (s *Server) ViewportGetMeasuredRenderTimeGPU(vp rid.RID) float64 {
	return query(s, viewportsTarget, "viewport_get_measured_render_time_gpu", func() float64 {
		return s.collabs.Viewports.ViewportGetMeasuredRenderTimeGPU(vp)
	})
}

// ViewportFindFromScreenAttachment returns the viewport attached to screen,
// or rid.Invalid.
func (s *Server) ViewportFindFromScreenAttachment(screen rendering.WindowID) rid.RID {
	return query(s, viewportsTarget, "viewport_find_from_screen_attachment", func() rid.RID {
		return s.collabs.Viewports.ViewportFindFromScreenAttachment(screen)
	})
}

// VSyncMode returns the vsync mode of window.
func (s *Server) VSyncMode(window rendering.WindowID) rendering.VSyncMode {
	return query(s, viewportsTarget, "vsync_mode", func() rendering.VSyncMode {
		return s.collabs.Viewports.VSyncMode(window)
	})
}
