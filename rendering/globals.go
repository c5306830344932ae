package rendering

import (
	"fmt"
	"math"

	"github.com/gogpu/renderserver/geom"
)

// NormalizeGlobalValue converts v to the canonical Go representation of a
// global shader parameter of type typ:
//
//	bool       bool
//	int        int32
//	uint       uint32
//	float      float32
//	vec2       geom.Vector2
//	vec4       [4]float32
//	color      Color
//	sampler2D  string (texture path)
//
// Numbers may arrive as any Go integer or float type, vectors and colors as
// slices of numbers, as decoded from configuration files.
func NormalizeGlobalValue(typ GlobalShaderParameterType, v any) (any, error) {
	switch typ {
	case GlobalVarTypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case GlobalVarTypeInt:
		if f, ok := toFloat(v); ok && f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
			return int32(f), nil
		}
	case GlobalVarTypeUint:
		if f, ok := toFloat(v); ok && f == math.Trunc(f) && f >= 0 && f <= math.MaxUint32 {
			return uint32(f), nil
		}
	case GlobalVarTypeFloat:
		if f, ok := toFloat(v); ok {
			return float32(f), nil
		}
	case GlobalVarTypeVec2:
		if vv, ok := v.(geom.Vector2); ok {
			return vv, nil
		}
		if fs, ok := toFloats(v, 2); ok {
			return geom.V2(float32(fs[0]), float32(fs[1])), nil
		}
	case GlobalVarTypeVec4:
		if a, ok := v.([4]float32); ok {
			return a, nil
		}
		if fs, ok := toFloats(v, 4); ok {
			return [4]float32{float32(fs[0]), float32(fs[1]), float32(fs[2]), float32(fs[3])}, nil
		}
	case GlobalVarTypeColor:
		if c, ok := v.(Color); ok {
			return c, nil
		}
		if fs, ok := toFloats(v, 4); ok {
			return RGBA(fs[0], fs[1], fs[2], fs[3]), nil
		}
		if fs, ok := toFloats(v, 3); ok {
			return RGBA(fs[0], fs[1], fs[2], 1), nil
		}
	case GlobalVarTypeSampler2D:
		if s, ok := v.(string); ok {
			return s, nil
		}
	default:
		return nil, fmt.Errorf("rendering: unknown global shader parameter type %d", typ)
	}
	return nil, fmt.Errorf("rendering: value %v (%T) is not a valid %s", v, v, typ)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toFloats(v any, n int) ([]float64, bool) {
	var out []float64
	switch s := v.(type) {
	case []float64:
		out = s
	case []float32:
		for _, f := range s {
			out = append(out, float64(f))
		}
	case []any:
		for _, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
	default:
		return nil, false
	}
	if len(out) != n {
		return nil, false
	}
	return out, true
}
