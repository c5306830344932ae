package rendering

import (
	"testing"

	"github.com/gogpu/renderserver/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGlobalValue(t *testing.T) {
	tests := []struct {
		name string
		typ  GlobalShaderParameterType
		in   any
		want any
	}{
		{"bool", GlobalVarTypeBool, true, true},
		{"int from toml", GlobalVarTypeInt, int64(-4), int32(-4)},
		{"uint", GlobalVarTypeUint, 7, uint32(7)},
		{"float from int", GlobalVarTypeFloat, int64(2), float32(2)},
		{"vec2 from array", GlobalVarTypeVec2, []any{1.0, int64(2)}, geom.V2(1, 2)},
		{"vec4", GlobalVarTypeVec4, []float64{1, 2, 3, 4}, [4]float32{1, 2, 3, 4}},
		{"color rgb", GlobalVarTypeColor, []any{0.5, 0.25, 1.0}, RGBA(0.5, 0.25, 1, 1)},
		{"color passthrough", GlobalVarTypeColor, White, White},
		{"sampler path", GlobalVarTypeSampler2D, "res/noise.png", "res/noise.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeGlobalValue(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeGlobalValueRejects(t *testing.T) {
	tests := []struct {
		name string
		typ  GlobalShaderParameterType
		in   any
	}{
		{"bool from int", GlobalVarTypeBool, 1},
		{"fractional int", GlobalVarTypeInt, 1.5},
		{"negative uint", GlobalVarTypeUint, -1},
		{"short vec4", GlobalVarTypeVec4, []any{1.0, 2.0}},
		{"unknown type", GlobalVarTypeMax, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeGlobalValue(tt.typ, tt.in)
			assert.Error(t, err)
		})
	}
}

func TestGlobalShaderParameterTypeNames(t *testing.T) {
	for typ := GlobalVarTypeBool; typ < GlobalVarTypeMax; typ++ {
		parsed, ok := ParseGlobalShaderParameterType(typ.String())
		require.True(t, ok, typ.String())
		assert.Equal(t, typ, parsed)
	}
	_, ok := ParseGlobalShaderParameterType("mat4")
	assert.False(t, ok)
	assert.Equal(t, "unknown", GlobalShaderParameterType(-1).String())
}

func TestToNRGBAClamps(t *testing.T) {
	c := ToNRGBA(RGBA(-1, 0.5, 2, 1))
	assert.Equal(t, uint8(0), c.R)
	assert.Equal(t, uint8(128), c.G)
	assert.Equal(t, uint8(255), c.B)
	assert.Equal(t, uint8(255), c.A)
}
