package renderserver

import (
	"maps"

	"github.com/gogpu/renderserver/rendering"
)

// GlobalShaderParameterAdd declares a global shader parameter.
func (s *Server) GlobalShaderParameterAdd(name string, typ rendering.GlobalShaderParameterType, value any) {
	m := s.collabs.Materials
	s.write(m, "global_shader_parameter_add", func() { m.GlobalShaderParameterAdd(name, typ, value) })
}

// GlobalShaderParameterRemove deletes the parameter name.
func (s *Server) GlobalShaderParameterRemove(name string) {
	m := s.collabs.Materials
	s.write(m, "global_shader_parameter_remove", func() { m.GlobalShaderParameterRemove(name) })
}

// GlobalShaderParameterSet changes the value of name. Unknown names are
// logged and ignored.
func (s *Server) GlobalShaderParameterSet(name string, value any) {
	m := s.collabs.Materials
	s.write(m, "global_shader_parameter_set", func() { m.GlobalShaderParameterSet(name, value) })
}

// GlobalShaderParameterSetOverride shadows the value of name until the
// override is set to nil.
func (s *Server) GlobalShaderParameterSetOverride(name string, value any) {
	m := s.collabs.Materials
	s.write(m, "global_shader_parameter_set_override", func() { m.GlobalShaderParameterSetOverride(name, value) })
}

// GlobalShaderParametersLoadSettings declares the parameters listed in
// Config.GlobalShaderParameters.
func (s *Server) GlobalShaderParametersLoadSettings(loadTextures bool) {
	m := s.collabs.Materials
	params := maps.Clone(s.cfg.GlobalShaderParameters)
	s.write(m, "global_shader_parameters_load_settings", func() { m.GlobalShaderParametersLoadSettings(params, loadTextures) })
}

// GlobalShaderParametersClear deletes every global parameter.
func (s *Server) GlobalShaderParametersClear() {
	m := s.collabs.Materials
	s.write(m, "global_shader_parameters_clear", m.GlobalShaderParametersClear)
}

// GlobalShaderParameterGetList returns the declared names, sorted.
func (s *Server) GlobalShaderParameterGetList() []string {
	return query(s, materialsTarget, "global_shader_parameter_get_list", s.collabs.Materials.GlobalShaderParameterGetList)
}

// GlobalShaderParameterGetType returns the type of name, or GlobalVarTypeMax
// if it is unknown.
func (s *Server) GlobalShaderParameterGetType(name string) rendering.GlobalShaderParameterType {
	return query(s, materialsTarget, "global_shader_parameter_get_type", func() rendering.GlobalShaderParameterType {
		return s.collabs.Materials.GlobalShaderParameterGetType(name)
	})
}

// GlobalShaderParameterGet returns the effective value of name, taking
// overrides into account.
func (s *Server) GlobalShaderParameterGet(name string) any {
	return query(s, materialsTarget, "global_shader_parameter_get", func() any {
		return s.collabs.Materials.GlobalShaderParameterGet(name)
	})
}
