// Package rendering defines the value types, enumerations and collaborator
// contracts shared by the rendering server facade and the storages,
// managers and cullers it dispatches to.
//
// The package is a leaf: it imports only rid, geom and gputypes, so any
// collaborator implementation can depend on it without depending on the
// server.
package rendering

import (
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderserver/rid"
)

// Color is the RGBA color used throughout the API, with straight
// (non-premultiplied) float components in [0, 1].
type Color = gputypes.Color

// RGBA returns a Color from float components.
func RGBA(r, g, b, a float64) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// White is opaque white, the neutral modulate color.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// ModulateColor returns the component-wise product of a and b.
func ModulateColor(a, b Color) Color {
	return Color{R: a.R * b.R, G: a.G * b.G, B: a.B * b.B, A: a.A * b.A}
}

// ToNRGBA converts c to an 8-bit straight-alpha color, clamping components.
func ToNRGBA(c Color) color.NRGBA {
	return color.NRGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func unit8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// WindowID identifies a display server window (screen).
type WindowID int

// MainWindowID is the primary window.
const MainWindowID WindowID = 0

// InvalidWindowID means "not attached to any screen".
const InvalidWindowID WindowID = -1

// VSyncMode selects a presentation mode for a window.
type VSyncMode int

// VSync modes.
const (
	VSyncDisabled VSyncMode = iota
	VSyncEnabled
	VSyncAdaptive
	VSyncMailbox
)

// TextureInfo describes one texture for debug usage reports.
type TextureInfo struct {
	Texture rid.RID
	Width   int
	Height  int
	Depth   int
	Format  gputypes.TextureFormat
	Bytes   int
	Path    string
}

// TextureDetectCallback is invoked by a texture storage when it first
// detects a usage of a texture (3D use, normal map use).
type TextureDetectCallback func(userdata any)

// TextureDetectRoughnessCallback is invoked when a texture is first used as
// a roughness map, with the normal texture and roughness channel in use.
type TextureDetectRoughnessCallback func(userdata any, normal rid.RID, channel TextureChannel)

// TextureUse is a way a texture can be used that a storage reports through
// its detect callbacks.
type TextureUse int

// Texture uses.
const (
	TextureUse3D TextureUse = iota
	TextureUseNormal
)

// TextureChannel selects one color channel of a texture.
type TextureChannel int

// Texture channels.
const (
	TextureChannelR TextureChannel = iota
	TextureChannelG
	TextureChannelB
	TextureChannelA
	TextureChannelGray
)

// ViewportClearMode controls when a viewport clears its render target.
type ViewportClearMode int

// Viewport clear modes.
const (
	ViewportClearAlways ViewportClearMode = iota
	ViewportClearNever
	ViewportClearOnlyNextFrame
)

// ViewportUpdateMode controls when a viewport is redrawn.
type ViewportUpdateMode int

// Viewport update modes.
const (
	ViewportUpdateDisabled ViewportUpdateMode = iota
	ViewportUpdateOnce
	ViewportUpdateWhenVisible
	ViewportUpdateWhenParentVisible
	ViewportUpdateAlways
)

// ViewportSDFOversize is the margin added around a viewport's SDF.
type ViewportSDFOversize int

// SDF oversize values.
const (
	ViewportSDFOversize100Percent ViewportSDFOversize = iota
	ViewportSDFOversize120Percent
	ViewportSDFOversize150Percent
	ViewportSDFOversize200Percent
)

// ViewportSDFScale is the resolution scale of a viewport's SDF.
type ViewportSDFScale int

// SDF scale values.
const (
	ViewportSDFScale100Percent ViewportSDFScale = iota
	ViewportSDFScale50Percent
	ViewportSDFScale25Percent
)

// ViewportMSAA is the multisample count used for 2D rendering.
type ViewportMSAA int

// MSAA values.
const (
	ViewportMSAADisabled ViewportMSAA = iota
	ViewportMSAA2X
	ViewportMSAA4X
	ViewportMSAA8X
)

// ViewportRenderInfoType selects the pass a render statistic refers to.
type ViewportRenderInfoType int

// Render info pass types.
const (
	ViewportRenderInfoTypeVisible ViewportRenderInfoType = iota
	ViewportRenderInfoTypeShadow
	ViewportRenderInfoTypeMax
)

// ViewportRenderInfo selects a per-viewport render statistic.
type ViewportRenderInfo int

// Render statistics.
const (
	ViewportRenderInfoObjectsInFrame ViewportRenderInfo = iota
	ViewportRenderInfoPrimitivesInFrame
	ViewportRenderInfoDrawCallsInFrame
	ViewportRenderInfoMax
)

// RenderingInfo selects a server-wide statistic.
type RenderingInfo int

// Server-wide statistics.
const (
	RenderingInfoTotalObjectsInFrame RenderingInfo = iota
	RenderingInfoTotalPrimitivesInFrame
	RenderingInfoTotalDrawCallsInFrame
	RenderingInfoTextureMemUsed
	RenderingInfoBufferMemUsed
	RenderingInfoVideoMemUsed
)

// CanvasItemTextureFilter selects texture sampling for canvas items.
type CanvasItemTextureFilter int

// Texture filters.
const (
	CanvasItemTextureFilterDefault CanvasItemTextureFilter = iota
	CanvasItemTextureFilterNearest
	CanvasItemTextureFilterLinear
	CanvasItemTextureFilterNearestWithMipmaps
	CanvasItemTextureFilterLinearWithMipmaps
)

// CanvasItemTextureRepeat selects texture wrapping for canvas items.
type CanvasItemTextureRepeat int

// Texture repeat modes.
const (
	CanvasItemTextureRepeatDefault CanvasItemTextureRepeat = iota
	CanvasItemTextureRepeatDisabled
	CanvasItemTextureRepeatEnabled
	CanvasItemTextureRepeatMirror
)

// CanvasTextureChannel selects one of the textures of a canvas texture.
type CanvasTextureChannel int

// Canvas texture channels.
const (
	CanvasTextureChannelDiffuse CanvasTextureChannel = iota
	CanvasTextureChannelNormal
	CanvasTextureChannelSpecular
)

// NinePatchAxisMode controls how the center of a nine patch fills an axis.
type NinePatchAxisMode int

// Nine patch axis modes.
const (
	NinePatchAxisStretch NinePatchAxisMode = iota
	NinePatchAxisTile
	NinePatchAxisTileFit
)

// CanvasGroupMode controls whether a canvas item renders its children into
// a group buffer.
type CanvasGroupMode int

// Canvas group modes.
const (
	CanvasGroupModeDisabled CanvasGroupMode = iota
	CanvasGroupModeClipOnly
	CanvasGroupModeClipAndDraw
	CanvasGroupModeTransparent
)

// CanvasLightMode is the kind of a 2D light.
type CanvasLightMode int

// Light modes.
const (
	CanvasLightModePoint CanvasLightMode = iota
	CanvasLightModeDirectional
)

// CanvasLightBlendMode controls how a light combines with the scene.
type CanvasLightBlendMode int

// Light blend modes.
const (
	CanvasLightBlendModeAdd CanvasLightBlendMode = iota
	CanvasLightBlendModeSub
	CanvasLightBlendModeMix
)

// CanvasLightShadowFilter selects the shadow filtering of a light.
type CanvasLightShadowFilter int

// Shadow filters.
const (
	CanvasLightFilterNone CanvasLightShadowFilter = iota
	CanvasLightFilterPCF5
	CanvasLightFilterPCF13
)

// CanvasOccluderPolygonCullMode controls occluder face culling.
type CanvasOccluderPolygonCullMode int

// Occluder cull modes.
const (
	CanvasOccluderPolygonCullDisabled CanvasOccluderPolygonCullMode = iota
	CanvasOccluderPolygonCullClockwise
	CanvasOccluderPolygonCullCounterClockwise
)

// GlobalShaderParameterType is the type of a global shader parameter.
type GlobalShaderParameterType int

// Global shader parameter types.
const (
	GlobalVarTypeBool GlobalShaderParameterType = iota
	GlobalVarTypeInt
	GlobalVarTypeUint
	GlobalVarTypeFloat
	GlobalVarTypeVec2
	GlobalVarTypeVec4
	GlobalVarTypeColor
	GlobalVarTypeSampler2D
	GlobalVarTypeMax
)

var globalVarTypeNames = [...]string{
	GlobalVarTypeBool:      "bool",
	GlobalVarTypeInt:       "int",
	GlobalVarTypeUint:      "uint",
	GlobalVarTypeFloat:     "float",
	GlobalVarTypeVec2:      "vec2",
	GlobalVarTypeVec4:      "vec4",
	GlobalVarTypeColor:     "color",
	GlobalVarTypeSampler2D: "sampler2D",
}

// String returns the shader-language name of the type.
func (t GlobalShaderParameterType) String() string {
	if t < 0 || t >= GlobalVarTypeMax {
		return "unknown"
	}
	return globalVarTypeNames[t]
}

// ParseGlobalShaderParameterType is the inverse of String.
func ParseGlobalShaderParameterType(s string) (GlobalShaderParameterType, bool) {
	for i, name := range globalVarTypeNames {
		if name == s {
			return GlobalShaderParameterType(i), true
		}
	}
	return GlobalVarTypeMax, false
}

// GlobalShaderParameter is a declared global shader parameter.
type GlobalShaderParameter struct {
	Type  GlobalShaderParameterType
	Value any
}

// PropertyInfo describes one shader parameter.
type PropertyInfo struct {
	Name string
	// Type is the shader-language type, e.g. "f32", "vec4<f32>" or
	// "texture_2d<f32>".
	Type string
	// Group is the binding group for resource parameters, -1 otherwise.
	Group int
	// Binding is the binding index for resource parameters, -1 otherwise.
	Binding int
}

// ShaderStageSource is the compiled code of one shader stage.
type ShaderStageSource struct {
	Stage string
	Code  []byte
}

// ShaderNativeSourceCode is the backend representation of a shader.
type ShaderNativeSourceCode struct {
	Stages []ShaderStageSource
}

// Feature is an optional server capability.
type Feature int

// Features.
const (
	FeatureShaders Feature = iota
	FeatureMultithreaded
)
