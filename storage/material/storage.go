// Package material stores shaders, materials and global shader parameters.
//
// Shader code is WGSL. Setting code parses the module's resource bindings
// and override constants and compiles it to SPIR-V with naga. A module that
// fails to compile keeps the previously compiled stages.
//
// Shaders with a path hint pointing at a file on disk are reloaded when the
// file changes. The new source is reported through the reload handler so
// the owner can route it back to the render thread.
package material

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

// CompileFunc compiles WGSL source to SPIR-V.
type CompileFunc func(wgsl string) ([]byte, error)

type shader struct {
	code     string
	pathHint string
	parsed   parsedShader
	spirv    []byte
	compiled bool

	// defaultTextures maps a parameter name to its per-index texture RIDs.
	defaultTextures map[string][]rid.RID
}

type material struct {
	shader rid.RID
	params map[string]any
}

type globalVar struct {
	typ      rendering.GlobalShaderParameterType
	value    any
	override any
}

// Option configures a Storage.
type Option func(*Storage)

// WithCompiler replaces naga.Compile.
func WithCompiler(fn CompileFunc) Option {
	return func(s *Storage) {
		s.compile = fn
	}
}

// WithoutWatcher disables shader file watching.
func WithoutWatcher() Option {
	return func(s *Storage) {
		s.watch = false
	}
}

// Storage implements rendering.MaterialStorage.
type Storage struct {
	compile CompileFunc
	watch   bool

	shaders   *rid.Owner[shader]
	materials *rid.Owner[material]

	globalsMu sync.RWMutex
	globals   map[string]*globalVar

	reload *reloader
}

// New creates an empty storage. File watching starts in Initialize.
func New(opts ...Option) *Storage {
	s := &Storage{
		compile:   naga.Compile,
		watch:     true,
		shaders:   rid.NewOwner[shader]("shader"),
		materials: rid.NewOwner[material]("material"),
		globals:   make(map[string]*globalVar),
		reload:    newReloader(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ rendering.MaterialStorage = (*Storage)(nil)

func (s *Storage) Name() string                  { return "material_storage" }
func (s *Storage) CanCreateResourcesAsync() bool { return false }

// SetLogger sets the logger used by this package.
func (s *Storage) SetLogger(l *slog.Logger) { setLogger(l) }

// Initialize starts the shader file watcher.
func (s *Storage) Initialize() error {
	if !s.watch {
		return nil
	}
	return s.reload.start()
}

// Finalize stops the shader file watcher.
func (s *Storage) Finalize() { s.reload.stop() }

// SetReloadHandler sets the function that receives reloaded shader source.
// It is called on the watcher goroutine.
func (s *Storage) SetReloadHandler(fn func(shader rid.RID, code string)) {
	s.reload.setHandler(fn)
}

func (s *Storage) Owns(r rid.RID) bool {
	return s.shaders.Owns(r) || s.materials.Owns(r)
}

func (s *Storage) Free(r rid.RID) bool {
	if s.shaders.Free(r) {
		s.reload.forget(r)
		return true
	}
	return s.materials.Free(r)
}

func (s *Storage) ShaderAllocate() rid.RID { return s.shaders.Allocate() }

func (s *Storage) ShaderInitialize(r rid.RID) {
	if err := s.shaders.Initialize(r, shader{parsed: parseWGSL("")}); err != nil {
		slogger().Warn("material: shader initialize failed", "err", err)
	}
}

// ShaderSetCode parses and compiles code. The parameter list always follows
// the new code; the compiled stages only change when compilation succeeds.
func (s *Storage) ShaderSetCode(r rid.RID, code string) {
	parsed := parseWGSL(code)
	var (
		spirv []byte
		err   error
	)
	if code != "" {
		spirv, err = s.compile(code)
	}
	ok := s.shaders.Update(r, func(sh *shader) {
		sh.code = code
		sh.parsed = parsed
		switch {
		case code == "":
			sh.spirv, sh.compiled = nil, false
		case err == nil:
			sh.spirv, sh.compiled = spirv, true
		}
	})
	if !ok {
		slogger().Warn("material: set code on unknown shader", "rid", r)
		return
	}
	if err != nil {
		slogger().Warn("material: shader compile failed, keeping previous module", "rid", r, "err", err)
	}
}

// ShaderSetPathHint records where the shader came from and watches that
// file for changes.
func (s *Storage) ShaderSetPathHint(r rid.RID, path string) {
	if !s.shaders.Update(r, func(sh *shader) { sh.pathHint = path }) {
		return
	}
	if s.watch && path != "" {
		s.reload.track(r, path)
	}
}

func (s *Storage) ShaderSetDefaultTextureParameter(r rid.RID, name string, tex rid.RID, index int) {
	if index < 0 {
		return
	}
	s.shaders.Update(r, func(sh *shader) {
		if sh.defaultTextures == nil {
			sh.defaultTextures = make(map[string][]rid.RID)
		}
		list := sh.defaultTextures[name]
		if index >= len(list) {
			list = append(list, make([]rid.RID, index+1-len(list))...)
		}
		list[index] = tex
		if !tex.IsValid() && index == len(list)-1 {
			list = list[:index]
		}
		if len(list) == 0 {
			delete(sh.defaultTextures, name)
		} else {
			sh.defaultTextures[name] = list
		}
	})
}

func (s *Storage) ShaderGetCode(r rid.RID) string {
	sh, _ := s.shaders.Get(r)
	return sh.code
}

func (s *Storage) ShaderGetParameterList(r rid.RID) []rendering.PropertyInfo {
	sh, _ := s.shaders.Get(r)
	return slices.Clone(sh.parsed.params)
}

func (s *Storage) ShaderGetDefaultTextureParameter(r rid.RID, name string, index int) rid.RID {
	out := rid.Invalid
	s.shaders.View(r, func(sh shader) {
		if list := sh.defaultTextures[name]; index >= 0 && index < len(list) {
			out = list[index]
		}
	})
	return out
}

func (s *Storage) ShaderGetParameterDefault(r rid.RID, name string) any {
	sh, _ := s.shaders.Get(r)
	return sh.parsed.defaults[name]
}

// ShaderGetNativeSourceCode returns the SPIR-V module as one stage named
// "spirv", or nothing if the shader never compiled.
func (s *Storage) ShaderGetNativeSourceCode(r rid.RID) rendering.ShaderNativeSourceCode {
	sh, _ := s.shaders.Get(r)
	if !sh.compiled {
		return rendering.ShaderNativeSourceCode{}
	}
	return rendering.ShaderNativeSourceCode{Stages: []rendering.ShaderStageSource{
		{Stage: "spirv", Code: slices.Clone(sh.spirv)},
	}}
}

func (s *Storage) MaterialAllocate() rid.RID { return s.materials.Allocate() }

func (s *Storage) MaterialInitialize(r rid.RID) {
	if err := s.materials.Initialize(r, material{params: make(map[string]any)}); err != nil {
		slogger().Warn("material: initialize failed", "err", err)
	}
}

func (s *Storage) MaterialSetShader(r, shaderRID rid.RID) {
	if shaderRID.IsValid() && !s.shaders.Owns(shaderRID) {
		slogger().Warn("material: unknown shader", "material", r, "shader", shaderRID)
		return
	}
	s.materials.Update(r, func(m *material) { m.shader = shaderRID })
}

// MaterialSetParam sets a parameter; a nil value removes it.
func (s *Storage) MaterialSetParam(r rid.RID, name string, value any) {
	s.materials.Update(r, func(m *material) {
		if value == nil {
			delete(m.params, name)
			return
		}
		m.params[name] = value
	})
}

// MaterialGetParam returns the material's value for name, falling back to
// the shader's default.
func (s *Storage) MaterialGetParam(r rid.RID, name string) any {
	var (
		v     any
		found bool
		sh    rid.RID
	)
	s.materials.View(r, func(m material) {
		v, found = m.params[name]
		sh = m.shader
	})
	if found {
		return v
	}
	return s.ShaderGetParameterDefault(sh, name)
}

// MaterialShader returns the shader of a material.
func (s *Storage) MaterialShader(r rid.RID) rid.RID {
	m, _ := s.materials.Get(r)
	return m.shader
}

// GlobalShaderParameterAdd declares name. Declaring an existing name is an
// error and leaves it unchanged.
func (s *Storage) GlobalShaderParameterAdd(name string, typ rendering.GlobalShaderParameterType, value any) {
	v, err := rendering.NormalizeGlobalValue(typ, value)
	if err != nil {
		slogger().Warn("material: global parameter rejected", "name", name, "err", err)
		return
	}
	s.globalsMu.Lock()
	defer s.globalsMu.Unlock()
	if _, ok := s.globals[name]; ok {
		slogger().Warn("material: global parameter already exists", "name", name)
		return
	}
	s.globals[name] = &globalVar{typ: typ, value: v}
}

func (s *Storage) GlobalShaderParameterRemove(name string) {
	s.globalsMu.Lock()
	defer s.globalsMu.Unlock()
	if _, ok := s.globals[name]; !ok {
		slogger().Warn("material: remove of unknown global parameter", "name", name)
	}
	delete(s.globals, name)
}

func (s *Storage) GlobalShaderParameterSet(name string, value any) {
	if err := s.setGlobal(name, value, false); err != nil {
		slogger().Warn("material: global parameter set failed", "name", name, "err", err)
	}
}

// GlobalShaderParameterSetOverride shadows the value of name. A nil value
// clears the override.
func (s *Storage) GlobalShaderParameterSetOverride(name string, value any) {
	if err := s.setGlobal(name, value, true); err != nil {
		slogger().Warn("material: global parameter override failed", "name", name, "err", err)
	}
}

func (s *Storage) setGlobal(name string, value any, override bool) error {
	s.globalsMu.Lock()
	defer s.globalsMu.Unlock()
	g, ok := s.globals[name]
	if !ok {
		return fmt.Errorf("unknown global parameter %q", name)
	}
	if override && value == nil {
		g.override = nil
		return nil
	}
	v, err := rendering.NormalizeGlobalValue(g.typ, value)
	if err != nil {
		return err
	}
	if override {
		g.override = v
	} else {
		g.value = v
	}
	return nil
}

// GlobalShaderParametersLoadSettings declares every entry of params,
// replacing existing declarations of the same name.
func (s *Storage) GlobalShaderParametersLoadSettings(params map[string]rendering.GlobalShaderParameter, loadTextures bool) {
	s.globalsMu.Lock()
	defer s.globalsMu.Unlock()
	for _, name := range slices.Sorted(maps.Keys(params)) {
		p := params[name]
		v, err := rendering.NormalizeGlobalValue(p.Type, p.Value)
		if err != nil {
			slogger().Warn("material: global parameter setting rejected", "name", name, "err", err)
			continue
		}
		if p.Type == rendering.GlobalVarTypeSampler2D && !loadTextures {
			v = ""
		}
		s.globals[name] = &globalVar{typ: p.Type, value: v}
	}
}

func (s *Storage) GlobalShaderParametersClear() {
	s.globalsMu.Lock()
	clear(s.globals)
	s.globalsMu.Unlock()
}

// GlobalShaderParameterGetList returns the declared names in sorted order.
func (s *Storage) GlobalShaderParameterGetList() []string {
	s.globalsMu.RLock()
	defer s.globalsMu.RUnlock()
	return slices.Sorted(maps.Keys(s.globals))
}

// GlobalShaderParameterGetType returns GlobalVarTypeMax for unknown names.
func (s *Storage) GlobalShaderParameterGetType(name string) rendering.GlobalShaderParameterType {
	s.globalsMu.RLock()
	defer s.globalsMu.RUnlock()
	if g, ok := s.globals[name]; ok {
		return g.typ
	}
	return rendering.GlobalVarTypeMax
}

func (s *Storage) GlobalShaderParameterGet(name string) any {
	s.globalsMu.RLock()
	defer s.globalsMu.RUnlock()
	g, ok := s.globals[name]
	if !ok {
		return nil
	}
	if g.override != nil {
		return g.override
	}
	return g.value
}
