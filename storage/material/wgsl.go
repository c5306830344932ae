package material

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/renderserver/rendering"
)

var (
	// @group(0) @binding(1) var<uniform> params: Params;
	// @group(1) @binding(0) var albedo: texture_2d<f32>;
	resourceRe = regexp.MustCompile(`@group\(\s*(\d+)\s*\)\s*@binding\(\s*(\d+)\s*\)\s*var(?:<[^>]*>)?\s+(\w+)\s*:\s*([^;=]+?)\s*;`)

	// override roughness: f32 = 0.5;
	overrideRe = regexp.MustCompile(`(?m)^\s*(?:@id\(\s*\d+\s*\)\s*)?override\s+(\w+)\s*(?::\s*([\w<>]+))?\s*(?:=\s*([^;]+?))?\s*;`)

	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// parsedShader is what the storage learns from WGSL source without
// compiling it.
type parsedShader struct {
	params   []rendering.PropertyInfo
	defaults map[string]any
}

// parseWGSL lists the resource bindings and pipeline-overridable constants
// of a WGSL module, sorted by group, binding, then name.
func parseWGSL(code string) parsedShader {
	src := blockCommentRe.ReplaceAllString(code, "")
	src = lineCommentRe.ReplaceAllString(src, "")

	p := parsedShader{defaults: make(map[string]any)}
	for _, m := range resourceRe.FindAllStringSubmatch(src, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		p.params = append(p.params, rendering.PropertyInfo{
			Name:    m[3],
			Type:    strings.Join(strings.Fields(m[4]), ""),
			Group:   group,
			Binding: binding,
		})
	}
	for _, m := range overrideRe.FindAllStringSubmatch(src, -1) {
		name, typ, def := m[1], m[2], strings.TrimSpace(m[3])
		if typ == "" {
			typ = inferType(def)
		}
		p.params = append(p.params, rendering.PropertyInfo{Name: name, Type: typ, Group: -1, Binding: -1})
		if v, ok := parseLiteral(typ, def); ok {
			p.defaults[name] = v
		}
	}

	sort.SliceStable(p.params, func(i, j int) bool {
		a, b := p.params[i], p.params[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Binding != b.Binding {
			return a.Binding < b.Binding
		}
		return a.Name < b.Name
	})
	return p
}

func inferType(lit string) string {
	switch {
	case lit == "true" || lit == "false":
		return "bool"
	case strings.HasSuffix(lit, "u"):
		return "u32"
	case strings.ContainsAny(lit, ".eE") || strings.HasSuffix(lit, "f"):
		return "f32"
	case lit == "":
		return ""
	}
	return "i32"
}

// parseLiteral converts a scalar WGSL literal of type typ.
func parseLiteral(typ, lit string) (any, bool) {
	if lit == "" {
		return nil, false
	}
	switch typ {
	case "bool":
		b, err := strconv.ParseBool(lit)
		return b, err == nil
	case "f32", "f16":
		f, err := strconv.ParseFloat(strings.TrimRight(lit, "fh"), 32)
		return float32(f), err == nil
	case "i32":
		i, err := strconv.ParseInt(strings.TrimSuffix(lit, "i"), 0, 32)
		return int32(i), err == nil
	case "u32":
		u, err := strconv.ParseUint(strings.TrimSuffix(lit, "u"), 0, 32)
		return uint32(u), err == nil
	}
	return nil, false
}
