package renderserver

import (
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

const texturesTarget = "texture_storage"

// Texture2DCreate creates a texture from img. The RID is usable at once;
// img is copied before the call returns.
func (s *Server) Texture2DCreate(img image.Image) rid.RID {
	t := s.collabs.Textures
	snap := snapshotImage(img)
	return s.create(t, "texture_2d_create", t.TextureAllocate, func(r rid.RID) {
		t.Texture2DInitialize(r, snap)
	})
}

// TextureProxyCreate creates a texture that shows the contents of base.
func (s *Server) TextureProxyCreate(base rid.RID) rid.RID {
	t := s.collabs.Textures
	return s.create(t, "texture_proxy_create", t.TextureAllocate, func(r rid.RID) {
		t.TextureProxyInitialize(r, base)
	})
}

// Texture2DPlaceholderCreate creates a small placeholder texture.
func (s *Server) Texture2DPlaceholderCreate() rid.RID {
	t := s.collabs.Textures
	return s.create(t, "texture_2d_placeholder_create", t.TextureAllocate, t.Texture2DPlaceholderInitialize)
}

// Texture2DUpdate replaces the contents of layer of tex.
func (s *Server) Texture2DUpdate(tex rid.RID, img image.Image, layer int) {
	t := s.collabs.Textures
	snap := snapshotImage(img)
	s.write(t, "texture_2d_update", func() { t.Texture2DUpdate(tex, snap, layer) })
}

// TextureProxyUpdate points proxy at a new base texture.
func (s *Server) TextureProxyUpdate(proxy, base rid.RID) {
	t := s.collabs.Textures
	s.write(t, "texture_proxy_update", func() { t.TextureProxyUpdate(proxy, base) })
}

// TextureReplace moves the contents of by into tex and frees by.
func (s *Server) TextureReplace(tex, by rid.RID) {
	t := s.collabs.Textures
	s.allocMu.Lock()
	delete(s.owners, by)
	s.allocMu.Unlock()
	s.write(t, "texture_replace", func() { t.TextureReplace(tex, by) })
}

// TextureSetSizeOverride makes tex report and render at the given size.
func (s *Server) TextureSetSizeOverride(tex rid.RID, width, height int) {
	t := s.collabs.Textures
	s.write(t, "texture_set_size_override", func() { t.TextureSetSizeOverride(tex, width, height) })
}

// TextureSetDetect3DCallback registers cb to run when tex is first used in
// 3D.
func (s *Server) TextureSetDetect3DCallback(tex rid.RID, cb rendering.TextureDetectCallback, userdata any) {
	t := s.collabs.Textures
	s.write(t, "texture_set_detect_3d_callback", func() { t.TextureSetDetect3DCallback(tex, cb, userdata) })
}

// TextureSetDetectNormalCallback registers cb to run when tex is first used
// as a normal map.
func (s *Server) TextureSetDetectNormalCallback(tex rid.RID, cb rendering.TextureDetectCallback, userdata any) {
	t := s.collabs.Textures
	s.write(t, "texture_set_detect_normal_callback", func() { t.TextureSetDetectNormalCallback(tex, cb, userdata) })
}

// TextureSetDetectRoughnessCallback registers cb to run when tex is first
// used as a roughness map.
func (s *Server) TextureSetDetectRoughnessCallback(tex rid.RID, cb rendering.TextureDetectRoughnessCallback, userdata any) {
	t := s.collabs.Textures
	s.write(t, "texture_set_detect_roughness_callback", func() { t.TextureSetDetectRoughnessCallback(tex, cb, userdata) })
}

// TextureSetPath records the resource path tex was loaded from.
func (s *Server) TextureSetPath(tex rid.RID, path string) {
	t := s.collabs.Textures
	s.write(t, "texture_set_path", func() { t.TextureSetPath(tex, path) })
}

// TextureSetForceRedrawIfVisible keeps redrawing viewports that show tex.
func (s *Server) TextureSetForceRedrawIfVisible(tex rid.RID, enable bool) {
	t := s.collabs.Textures
	s.write(t, "texture_set_force_redraw_if_visible", func() { t.TextureSetForceRedrawIfVisible(tex, enable) })
}

// Texture2DGet returns a copy of the texture contents, or nil.
func (s *Server) Texture2DGet(tex rid.RID) *image.RGBA {
	return query(s, texturesTarget, "texture_2d_get", func() *image.RGBA { return s.collabs.Textures.Texture2DGet(tex) })
}

// TextureGetPath returns the path set with TextureSetPath.
func (s *Server) TextureGetPath(tex rid.RID) string {
	return query(s, texturesTarget, "texture_get_path", func() string { return s.collabs.Textures.TextureGetPath(tex) })
}

// TextureGetFormat returns the pixel format of tex.
func (s *Server) TextureGetFormat(tex rid.RID) gputypes.TextureFormat {
	return query(s, texturesTarget, "texture_get_format", func() gputypes.TextureFormat {
		return s.collabs.Textures.TextureGetFormat(tex)
	})
}

// TextureGetNativeHandle returns a backend handle for tex, or zero.
func (s *Server) TextureGetNativeHandle(tex rid.RID, srgb bool) uint64 {
	return query(s, texturesTarget, "texture_get_native_handle", func() uint64 {
		return s.collabs.Textures.TextureGetNativeHandle(tex, srgb)
	})
}

// TextureDebugUsage lists every live texture.
func (s *Server) TextureDebugUsage() []rendering.TextureInfo {
	return query(s, texturesTarget, "texture_debug_usage", s.collabs.Textures.TextureDebugUsage)
}
