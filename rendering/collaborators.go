package rendering

import (
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rid"
)

// Collaborator is the part of the contract every resource-owning subsystem
// shares.
//
// Allocate methods (one per resource kind) are synchronous and safe from
// any goroutine. Initialize and mutating methods run on the render thread
// unless CanCreateResourcesAsync reports true, in which case the server may
// call them from any goroutine. Query methods may be called from any
// goroutine at any time.
type Collaborator interface {
	// Name identifies the collaborator in logs and commands.
	Name() string

	// CanCreateResourcesAsync reports whether initialize and mutating
	// operations may run on a goroutine other than the render thread.
	CanCreateResourcesAsync() bool

	// Owns reports whether r was allocated by this collaborator and is not
	// yet freed.
	Owns(r rid.RID) bool

	// Free releases r. The server calls it at most once per RID and only
	// after every earlier command has run. It returns false for RIDs the
	// collaborator does not own.
	Free(r rid.RID) bool
}

// Lifecycle is implemented by collaborators that need setup and teardown on
// the render thread.
type Lifecycle interface {
	Initialize() error
	Finalize()
}

// LoggerSetter is implemented by collaborators that accept a logger.
type LoggerSetter interface {
	SetLogger(*slog.Logger)
}

// TextureStorage owns textures.
type TextureStorage interface {
	Collaborator

	TextureAllocate() rid.RID
	Texture2DInitialize(tex rid.RID, img image.Image)
	TextureProxyInitialize(tex rid.RID, base rid.RID)
	Texture2DPlaceholderInitialize(tex rid.RID)

	Texture2DUpdate(tex rid.RID, img image.Image, layer int)
	TextureProxyUpdate(proxy rid.RID, base rid.RID)
	TextureReplace(tex rid.RID, by rid.RID)
	TextureSetSizeOverride(tex rid.RID, width, height int)
	TextureSetDetect3DCallback(tex rid.RID, cb TextureDetectCallback, userdata any)
	TextureSetDetectNormalCallback(tex rid.RID, cb TextureDetectCallback, userdata any)
	TextureSetDetectRoughnessCallback(tex rid.RID, cb TextureDetectRoughnessCallback, userdata any)
	TextureSetPath(tex rid.RID, path string)
	TextureSetForceRedrawIfVisible(tex rid.RID, enable bool)

	// TextureDetectUse fires the detect callback registered for use, once.
	// Render thread only.
	TextureDetectUse(tex rid.RID, use TextureUse)

	// Texture2DGet returns a copy of the texture contents at its effective
	// size, or nil.
	Texture2DGet(tex rid.RID) *image.RGBA

	// TextureImage returns the live contents of a texture for drawing, or
	// nil. Render thread only; the image must not be retained or modified.
	TextureImage(tex rid.RID) *image.RGBA
	TextureGetPath(tex rid.RID) string
	TextureGetFormat(tex rid.RID) gputypes.TextureFormat
	TextureGetNativeHandle(tex rid.RID, srgb bool) uint64
	TextureDebugUsage() []TextureInfo
	TextureMemUsed() uint64
}

// MaterialStorage owns shaders, materials and global shader parameters.
type MaterialStorage interface {
	Collaborator

	ShaderAllocate() rid.RID
	ShaderInitialize(shader rid.RID)
	ShaderSetCode(shader rid.RID, code string)
	ShaderSetPathHint(shader rid.RID, path string)
	ShaderSetDefaultTextureParameter(shader rid.RID, name string, tex rid.RID, index int)
	ShaderGetCode(shader rid.RID) string
	ShaderGetParameterList(shader rid.RID) []PropertyInfo
	ShaderGetDefaultTextureParameter(shader rid.RID, name string, index int) rid.RID
	ShaderGetParameterDefault(shader rid.RID, name string) any
	ShaderGetNativeSourceCode(shader rid.RID) ShaderNativeSourceCode

	MaterialAllocate() rid.RID
	MaterialInitialize(material rid.RID)
	MaterialSetShader(material rid.RID, shader rid.RID)
	MaterialSetParam(material rid.RID, name string, value any)
	MaterialGetParam(material rid.RID, name string) any

	GlobalShaderParameterAdd(name string, typ GlobalShaderParameterType, value any)
	GlobalShaderParameterRemove(name string)
	GlobalShaderParameterSet(name string, value any)
	GlobalShaderParameterSetOverride(name string, value any)
	// GlobalShaderParametersLoadSettings declares every parameter in params.
	// Sampler parameters keep their path value only when loadTextures is set.
	GlobalShaderParametersLoadSettings(params map[string]GlobalShaderParameter, loadTextures bool)
	GlobalShaderParametersClear()
	GlobalShaderParameterGetList() []string
	GlobalShaderParameterGetType(name string) GlobalShaderParameterType
	GlobalShaderParameterGet(name string) any
}

// ViewportManager owns viewports and runs the per-frame viewport draw.
type ViewportManager interface {
	Collaborator

	ViewportAllocate() rid.RID
	ViewportInitialize(vp rid.RID)

	ViewportSetSize(vp rid.RID, width, height int)
	ViewportSetActive(vp rid.RID, active bool)
	ViewportSetParentViewport(vp rid.RID, parent rid.RID)
	ViewportSetClearMode(vp rid.RID, mode ViewportClearMode)
	ViewportAttachToScreen(vp rid.RID, rect geom.Rect2, screen WindowID)
	ViewportSetRenderDirectToScreen(vp rid.RID, enable bool)
	ViewportSetUpdateMode(vp rid.RID, mode ViewportUpdateMode)
	ViewportSetDisable2D(vp rid.RID, disable bool)
	ViewportSetCanvasCullMask(vp rid.RID, mask uint32)
	ViewportAttachCamera(vp rid.RID, camera rid.RID)
	ViewportAttachCanvas(vp rid.RID, canvas rid.RID)
	ViewportRemoveCanvas(vp rid.RID, canvas rid.RID)
	ViewportSetCanvasTransform(vp rid.RID, canvas rid.RID, xform geom.Transform2D)
	ViewportSetClearColor(vp rid.RID, c Color)
	ViewportSetTransparentBackground(vp rid.RID, enable bool)
	ViewportSetSnap2DTransformsToPixel(vp rid.RID, enable bool)
	ViewportSetSnap2DVerticesToPixel(vp rid.RID, enable bool)
	ViewportSetDefaultCanvasItemTextureFilter(vp rid.RID, filter CanvasItemTextureFilter)
	ViewportSetDefaultCanvasItemTextureRepeat(vp rid.RID, repeat CanvasItemTextureRepeat)
	ViewportSetGlobalCanvasTransform(vp rid.RID, xform geom.Transform2D)
	ViewportSetCanvasStacking(vp rid.RID, canvas rid.RID, layer, sublayer int)
	ViewportSetSDFOversizeAndScale(vp rid.RID, oversize ViewportSDFOversize, scale ViewportSDFScale)
	ViewportSetMSAA2D(vp rid.RID, msaa ViewportMSAA)
	ViewportSetMeasureRenderTime(vp rid.RID, enable bool)
	SetVSyncMode(mode VSyncMode, window WindowID)
	SetDefaultClearColor(c Color)

	ViewportGetRenderTarget(vp rid.RID) rid.RID
	ViewportGetTexture(vp rid.RID) rid.RID
	ViewportGetRenderInfo(vp rid.RID, typ ViewportRenderInfoType, info ViewportRenderInfo) int
	ViewportGetMeasuredRenderTimeCPU(vp rid.RID) float64
	ViewportGetMeasuredRenderTimeGPU(vp rid.RID) float64
	ViewportFindFromScreenAttachment(screen WindowID) rid.RID
	VSyncMode(window WindowID) VSyncMode
	DefaultClearColor() Color

	// DrawViewports renders every viewport due for an update this frame.
	// It runs on the render thread only.
	DrawViewports()

	// TotalRenderInfo sums a statistic over the last drawn frame.
	TotalRenderInfo(info ViewportRenderInfo) uint64
}

// CanvasStats are the counters produced by drawing one canvas.
type CanvasStats struct {
	Objects    int
	Primitives int
	DrawCalls  int
}

// Add accumulates o into s.
func (s *CanvasStats) Add(o CanvasStats) {
	s.Objects += o.Objects
	s.Primitives += o.Primitives
	s.DrawCalls += o.DrawCalls
}

// CanvasRenderParams carries per-viewport state into a canvas draw.
type CanvasRenderParams struct {
	Transform     geom.Transform2D
	CullMask      uint32
	DefaultFilter CanvasItemTextureFilter
	DefaultRepeat CanvasItemTextureRepeat
	SnapVertices  bool
}

// CanvasCuller owns the 2D scene: canvases, canvas items, canvas textures,
// lights and occluders.
type CanvasCuller interface {
	Collaborator

	CanvasAllocate() rid.RID
	CanvasInitialize(canvas rid.RID)
	CanvasSetItemMirroring(canvas rid.RID, item rid.RID, mirroring geom.Vector2)
	CanvasSetModulate(canvas rid.RID, c Color)
	CanvasSetParent(canvas rid.RID, parent rid.RID, scale float32)
	CanvasSetDisableScale(disable bool)

	CanvasTextureAllocate() rid.RID
	CanvasTextureInitialize(ct rid.RID)
	CanvasTextureSetChannel(ct rid.RID, channel CanvasTextureChannel, tex rid.RID)
	CanvasTextureSetShadingParameters(ct rid.RID, specular Color, shininess float32)
	CanvasTextureSetTextureFilter(ct rid.RID, filter CanvasItemTextureFilter)
	CanvasTextureSetTextureRepeat(ct rid.RID, repeat CanvasItemTextureRepeat)

	CanvasItemAllocate() rid.RID
	CanvasItemInitialize(item rid.RID)
	CanvasItemSetParent(item rid.RID, parent rid.RID)
	CanvasItemSetDefaultTextureFilter(item rid.RID, filter CanvasItemTextureFilter)
	CanvasItemSetDefaultTextureRepeat(item rid.RID, repeat CanvasItemTextureRepeat)
	CanvasItemSetVisible(item rid.RID, visible bool)
	CanvasItemSetLightMask(item rid.RID, mask int)
	CanvasItemSetVisibilityLayer(item rid.RID, layer uint32)
	CanvasItemSetUpdateWhenVisible(item rid.RID, update bool)
	CanvasItemSetTransform(item rid.RID, xform geom.Transform2D)
	CanvasItemSetClip(item rid.RID, clip bool)
	CanvasItemSetDistanceFieldMode(item rid.RID, enable bool)
	CanvasItemSetCustomRect(item rid.RID, custom bool, rect geom.Rect2)
	CanvasItemSetModulate(item rid.RID, c Color)
	CanvasItemSetSelfModulate(item rid.RID, c Color)
	CanvasItemSetDrawBehindParent(item rid.RID, enable bool)

	CanvasItemAddLine(item rid.RID, from, to geom.Vector2, c Color, width float32, antialiased bool)
	CanvasItemAddPolyline(item rid.RID, points []geom.Vector2, colors []Color, width float32, antialiased bool)
	CanvasItemAddMultiline(item rid.RID, points []geom.Vector2, colors []Color, width float32)
	CanvasItemAddRect(item rid.RID, rect geom.Rect2, c Color)
	CanvasItemAddCircle(item rid.RID, pos geom.Vector2, radius float32, c Color)
	CanvasItemAddTextureRect(item rid.RID, rect geom.Rect2, tex rid.RID, tile bool, modulate Color, transpose bool)
	CanvasItemAddTextureRectRegion(item rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate Color, transpose, clipUV bool)
	CanvasItemAddMSDFTextureRectRegion(item rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate Color, outlineSize int, pxRange, scale float32)
	CanvasItemAddLCDTextureRectRegion(item rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate Color)
	CanvasItemAddNinePatch(item rid.RID, rect, source geom.Rect2, tex rid.RID, topLeft, bottomRight geom.Vector2, xAxis, yAxis NinePatchAxisMode, drawCenter bool, modulate Color)
	CanvasItemAddPrimitive(item rid.RID, points []geom.Vector2, colors []Color, uvs []geom.Vector2, tex rid.RID)
	CanvasItemAddPolygon(item rid.RID, points []geom.Vector2, colors []Color, uvs []geom.Vector2, tex rid.RID)
	CanvasItemAddTriangleArray(item rid.RID, indices []int, points []geom.Vector2, colors []Color, uvs []geom.Vector2, tex rid.RID, count int)
	CanvasItemAddSetTransform(item rid.RID, xform geom.Transform2D)
	CanvasItemAddClipIgnore(item rid.RID, ignore bool)
	CanvasItemAddAnimationSlice(item rid.RID, length, begin, end, offset float64)

	CanvasItemSetSortChildrenByY(item rid.RID, enable bool)
	CanvasItemSetZIndex(item rid.RID, z int)
	CanvasItemSetZAsRelativeToParent(item rid.RID, enable bool)
	CanvasItemSetCopyToBackbuffer(item rid.RID, enable bool, rect geom.Rect2)
	CanvasItemClear(item rid.RID)
	CanvasItemSetDrawIndex(item rid.RID, index int)
	CanvasItemSetMaterial(item rid.RID, material rid.RID)
	CanvasItemSetUseParentMaterial(item rid.RID, enable bool)
	CanvasItemSetVisibilityNotifier(item rid.RID, enable bool, area geom.Rect2, onEnter, onExit func())
	CanvasItemSetCanvasGroupMode(item rid.RID, mode CanvasGroupMode, clearMargin float32, fitEmpty bool, fitMargin float32, blurMipmaps bool)

	CanvasLightAllocate() rid.RID
	CanvasLightInitialize(light rid.RID)
	CanvasLightSetMode(light rid.RID, mode CanvasLightMode)
	CanvasLightAttachToCanvas(light rid.RID, canvas rid.RID)
	CanvasLightSetEnabled(light rid.RID, enabled bool)
	CanvasLightSetTextureScale(light rid.RID, scale float32)
	CanvasLightSetTransform(light rid.RID, xform geom.Transform2D)
	CanvasLightSetTexture(light rid.RID, tex rid.RID)
	CanvasLightSetTextureOffset(light rid.RID, offset geom.Vector2)
	CanvasLightSetColor(light rid.RID, c Color)
	CanvasLightSetHeight(light rid.RID, height float32)
	CanvasLightSetEnergy(light rid.RID, energy float32)
	CanvasLightSetZRange(light rid.RID, minZ, maxZ int)
	CanvasLightSetLayerRange(light rid.RID, minLayer, maxLayer int)
	CanvasLightSetItemCullMask(light rid.RID, mask int)
	CanvasLightSetItemShadowCullMask(light rid.RID, mask int)
	CanvasLightSetDirectionalDistance(light rid.RID, distance float32)
	CanvasLightSetBlendMode(light rid.RID, mode CanvasLightBlendMode)
	CanvasLightSetShadowEnabled(light rid.RID, enabled bool)
	CanvasLightSetShadowFilter(light rid.RID, filter CanvasLightShadowFilter)
	CanvasLightSetShadowColor(light rid.RID, c Color)
	CanvasLightSetShadowSmooth(light rid.RID, smooth float32)

	CanvasLightOccluderAllocate() rid.RID
	CanvasLightOccluderInitialize(occluder rid.RID)
	CanvasLightOccluderAttachToCanvas(occluder rid.RID, canvas rid.RID)
	CanvasLightOccluderSetEnabled(occluder rid.RID, enabled bool)
	CanvasLightOccluderSetPolygon(occluder rid.RID, polygon rid.RID)
	CanvasLightOccluderSetAsSDFCollision(occluder rid.RID, enable bool)
	CanvasLightOccluderSetTransform(occluder rid.RID, xform geom.Transform2D)
	CanvasLightOccluderSetLightMask(occluder rid.RID, mask int)

	CanvasOccluderPolygonAllocate() rid.RID
	CanvasOccluderPolygonInitialize(polygon rid.RID)
	CanvasOccluderPolygonSetShape(polygon rid.RID, shape []geom.Vector2, closed bool)
	CanvasOccluderPolygonSetCullMode(polygon rid.RID, mode CanvasOccluderPolygonCullMode)

	CanvasSetShadowTextureSize(size int)

	// DebugCanvasItemGetRect returns the local bounds of an item's draw
	// commands.
	DebugCanvasItemGetRect(item rid.RID) geom.Rect2

	// RenderCanvas draws a canvas into dst. It runs on the render thread.
	RenderCanvas(canvas rid.RID, dst *image.RGBA, params CanvasRenderParams) CanvasStats

	// Update runs per-frame bookkeeping after all viewports are drawn,
	// such as firing visibility notifiers.
	Update()
}

// Utilities reports adapter and platform information.
type Utilities interface {
	VideoAdapterName() string
	VideoAdapterVendor() string
	VideoAdapterAPIVersion() string
	HasOSFeature(feature string) bool
	IsLowEnd() bool
}

// Compositor owns the frame boundary and the screens.
type Compositor interface {
	// BeginFrame starts a frame.
	BeginFrame(frameStep float64)

	// BlitToScreen schedules img (the viewport render target) to be shown
	// on screen within rect.
	BlitToScreen(screen WindowID, img *image.RGBA, rect geom.Rect2)

	// EndFrame finishes a frame, presenting the screens if swapBuffers.
	EndFrame(swapBuffers bool)

	// SetBootImage shows img over a solid color until the first frame.
	SetBootImage(img image.Image, bg Color, scale, useFilter bool)

	// FramesDrawn returns the number of completed frames.
	FramesDrawn() uint64
}
