package renderserver

import (
	"image"

	"github.com/gogpu/renderserver/rendering"
)

const (
	serverTarget     = "server"
	utilitiesTarget  = "utilities"
	compositorTarget = renderOnly("compositor")
)

// VideoAdapterName returns the name of the adapter in use.
func (s *Server) VideoAdapterName() string {
	return query(s, utilitiesTarget, "get_video_adapter_name", s.collabs.Utilities.VideoAdapterName)
}

// VideoAdapterVendor returns the vendor of the adapter in use.
func (s *Server) VideoAdapterVendor() string {
	return query(s, utilitiesTarget, "get_video_adapter_vendor", s.collabs.Utilities.VideoAdapterVendor)
}

// VideoAdapterAPIVersion returns the backend and driver of the adapter in
// use.
func (s *Server) VideoAdapterAPIVersion() string {
	return query(s, utilitiesTarget, "get_video_adapter_api_version", s.collabs.Utilities.VideoAdapterAPIVersion)
}

// HasOSFeature reports whether the platform supports feature, such as
// "s3tc" or "etc2".
func (s *Server) HasOSFeature(feature string) bool {
	return query(s, utilitiesTarget, "has_os_feature", func() bool { return s.collabs.Utilities.HasOSFeature(feature) })
}

// IsLowEnd reports whether the adapter is a low-end device.
func (s *Server) IsLowEnd() bool {
	return query(s, utilitiesTarget, "is_low_end", s.collabs.Utilities.IsLowEnd)
}

// HasFeature reports whether the server supports f.
func (s *Server) HasFeature(f rendering.Feature) bool {
	return query(s, serverTarget, "has_feature", func() bool {
		switch f {
		case rendering.FeatureShaders:
			return true
		case rendering.FeatureMultithreaded:
			return s.cfg.UseThread
		}
		return false
	})
}

// RenderingInfo returns a server-wide statistic. Frame statistics describe
// the last drawn frame.
func (s *Server) RenderingInfo(info rendering.RenderingInfo) uint64 {
	return query(s, viewportsTarget, "get_rendering_info", func() uint64 {
		switch info {
		case rendering.RenderingInfoTotalObjectsInFrame:
			return s.collabs.Viewports.TotalRenderInfo(rendering.ViewportRenderInfoObjectsInFrame)
		case rendering.RenderingInfoTotalPrimitivesInFrame:
			return s.collabs.Viewports.TotalRenderInfo(rendering.ViewportRenderInfoPrimitivesInFrame)
		case rendering.RenderingInfoTotalDrawCallsInFrame:
			return s.collabs.Viewports.TotalRenderInfo(rendering.ViewportRenderInfoDrawCallsInFrame)
		case rendering.RenderingInfoTextureMemUsed, rendering.RenderingInfoVideoMemUsed:
			return s.collabs.Textures.TextureMemUsed()
		}
		return 0
	})
}

// MaximumViewportSize returns Config.MaxViewportSize; zero means no limit.
func (s *Server) MaximumViewportSize() image.Point {
	return query(s, serverTarget, "get_maximum_viewport_size", func() image.Point { return s.cfg.MaxViewportSize })
}

// SetDefaultClearColor sets the clear color of viewports without one.
func (s *Server) SetDefaultClearColor(c rendering.Color) {
	v := s.collabs.Viewports
	s.write(v, "set_default_clear_color", func() { v.SetDefaultClearColor(c) })
}

// DefaultClearColor returns the clear color of viewports without one.
func (s *Server) DefaultClearColor() rendering.Color {
	return query(s, viewportsTarget, "get_default_clear_color", s.collabs.Viewports.DefaultClearColor)
}

// SetBootImage shows img over color until the next frame is drawn. img is
// copied before the call returns.
func (s *Server) SetBootImage(img image.Image, color rendering.Color, scale, useFilter bool) {
	comp := s.collabs.Compositor
	snap := snapshotImage(img)
	s.write(compositorTarget, "set_boot_image", func() { comp.SetBootImage(snap, color, scale, useFilter) })
}
