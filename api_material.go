package renderserver

import (
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

const materialsTarget = "material_storage"

// ShaderCreate creates an empty shader.
func (s *Server) ShaderCreate() rid.RID {
	m := s.collabs.Materials
	return s.create(m, "shader_create", m.ShaderAllocate, m.ShaderInitialize)
}

// ShaderSetCode replaces the source code of shader.
func (s *Server) ShaderSetCode(shader rid.RID, code string) {
	m := s.collabs.Materials
	s.write(m, "shader_set_code", func() { m.ShaderSetCode(shader, code) })
}

// ShaderSetPathHint records the file shader was loaded from.
func (s *Server) ShaderSetPathHint(shader rid.RID, path string) {
	m := s.collabs.Materials
	s.write(m, "shader_set_path_hint", func() { m.ShaderSetPathHint(shader, path) })
}

// ShaderSetDefaultTextureParameter sets the texture a sampler uniform uses
// when a material gives none.
func (s *Server) ShaderSetDefaultTextureParameter(shader rid.RID, name string, tex rid.RID, index int) {
	m := s.collabs.Materials
	s.write(m, "shader_set_default_texture_parameter", func() { m.ShaderSetDefaultTextureParameter(shader, name, tex, index) })
}

// ShaderGetCode returns the source code of shader.
func (s *Server) ShaderGetCode(shader rid.RID) string {
	return query(s, materialsTarget, "shader_get_code", func() string { return s.collabs.Materials.ShaderGetCode(shader) })
}

// ShaderGetParameterList lists the uniforms and resources of shader.
func (s *Server) ShaderGetParameterList(shader rid.RID) []rendering.PropertyInfo {
	return query(s, materialsTarget, "shader_get_parameter_list", func() []rendering.PropertyInfo {
		return s.collabs.Materials.ShaderGetParameterList(shader)
	})
}

// ShaderGetDefaultTextureParameter returns the default texture of a sampler
// uniform, or rid.Invalid.
func (s *Server) ShaderGetDefaultTextureParameter(shader rid.RID, name string, index int) rid.RID {
	return query(s, materialsTarget, "shader_get_default_texture_parameter", func() rid.RID {
		return s.collabs.Materials.ShaderGetDefaultTextureParameter(shader, name, index)
	})
}

// ShaderGetParameterDefault returns the default value of a uniform, or nil.
func (s *Server) ShaderGetParameterDefault(shader rid.RID, name string) any {
	return query(s, materialsTarget, "shader_get_parameter_default", func() any {
		return s.collabs.Materials.ShaderGetParameterDefault(shader, name)
	})
}

// ShaderGetNativeSourceCode returns the compiled stages of shader.
func (s *Server) ShaderGetNativeSourceCode(shader rid.RID) rendering.ShaderNativeSourceCode {
	return query(s, materialsTarget, "shader_get_native_source_code", func() rendering.ShaderNativeSourceCode {
		return s.collabs.Materials.ShaderGetNativeSourceCode(shader)
	})
}

// MaterialCreate creates a material with no shader.
func (s *Server) MaterialCreate() rid.RID {
	m := s.collabs.Materials
	return s.create(m, "material_create", m.MaterialAllocate, m.MaterialInitialize)
}

// MaterialSetShader sets the shader of material.
func (s *Server) MaterialSetShader(material, shader rid.RID) {
	m := s.collabs.Materials
	s.write(m, "material_set_shader", func() { m.MaterialSetShader(material, shader) })
}

// MaterialSetParam sets a uniform value of material.
func (s *Server) MaterialSetParam(material rid.RID, name string, value any) {
	m := s.collabs.Materials
	s.write(m, "material_set_param", func() { m.MaterialSetParam(material, name, value) })
}

// MaterialGetParam returns the value set on material for name, or nil.
func (s *Server) MaterialGetParam(material rid.RID, name string) any {
	return query(s, materialsTarget, "material_get_param", func() any {
		return s.collabs.Materials.MaterialGetParam(material, name)
	})
}
