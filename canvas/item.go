package canvas

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

type commandKind uint8

const (
	cmdLine commandKind = iota
	cmdPolyline
	cmdMultiline
	cmdRect
	cmdCircle
	cmdTextureRect
	cmdTextureRegion
	cmdNinePatch
	cmdPolygon
	cmdTriangles
	cmdTransform
	cmdClipIgnore
	cmdAnimationSlice
)

var commandNames = [...]string{
	cmdLine:           "line",
	cmdPolyline:       "polyline",
	cmdMultiline:      "multiline",
	cmdRect:           "rect",
	cmdCircle:         "circle",
	cmdTextureRect:    "texture_rect",
	cmdTextureRegion:  "texture_rect_region",
	cmdNinePatch:      "nine_patch",
	cmdPolygon:        "polygon",
	cmdTriangles:      "triangle_array",
	cmdTransform:      "set_transform",
	cmdClipIgnore:     "clip_ignore",
	cmdAnimationSlice: "animation_slice",
}

func (k commandKind) String() string { return commandNames[k] }

// command is one recorded draw command. Which fields are meaningful depends
// on kind.
type command struct {
	kind    commandKind
	points  []geom.Vector2
	colors  []rendering.Color
	indices []int
	color   rendering.Color
	width   float32
	rect    geom.Rect2
	src     geom.Rect2
	tex     rid.RID
	tile    bool
	flip    bool
	xform   geom.Transform2D
	flag    bool

	// Nine patch margins and axis modes.
	topLeft, bottomRight geom.Vector2
	xAxis, yAxis         rendering.NinePatchAxisMode
}

type visibilityNotifier struct {
	area            geom.Rect2
	onEnter, onExit func()
}

type item struct {
	parent            rid.RID
	visible           bool
	xform             geom.Transform2D
	modulate          rendering.Color
	selfModulate      rendering.Color
	clip              bool
	drawBehindParent  bool
	visibilityLayer   uint32
	lightMask         int
	updateWhenVisible bool
	distanceField     bool
	customRect        bool
	rect              geom.Rect2
	filter            rendering.CanvasItemTextureFilter
	repeat            rendering.CanvasItemTextureRepeat
	z                 int
	zRelative         bool
	sortY             bool
	drawIndex         int
	material          rid.RID
	useParentMaterial bool
	copyBackbuffer    bool
	backbufferRect    geom.Rect2
	groupMode         rendering.CanvasGroupMode
	groupClearMargin  float32
	groupFitEmpty     bool
	groupFitMargin    float32
	groupBlurMipmaps  bool
	notifier          *visibilityNotifier

	commands []command
}

func (c *Culler) CanvasItemAllocate() rid.RID { return c.items.Allocate() }

func (c *Culler) CanvasItemInitialize(r rid.RID) {
	initOrWarn(c.items, r, item{
		visible:         true,
		xform:           geom.Identity(),
		modulate:        rendering.White,
		selfModulate:    rendering.White,
		visibilityLayer: 1,
		lightMask:       1,
		zRelative:       true,
	})
}

func (c *Culler) setItem(r rid.RID, op string, fn func(*item)) { updateOrWarn(c.items, r, op, fn) }

// CanvasItemSetParent attaches an item to a canvas or to another item.
func (c *Culler) CanvasItemSetParent(r, parent rid.RID) {
	if parent.IsValid() && !c.canvases.Owns(parent) && !c.items.Owns(parent) {
		slogger().Warn("canvas: item parent is neither a canvas nor an item", "item", r, "parent", parent)
		return
	}
	if c.createsCycle(r, parent) {
		slogger().Warn("canvas: item parent would create a cycle", "item", r, "parent", parent)
		return
	}
	c.setItem(r, "set_parent", func(it *item) { it.parent = parent })
}

func (c *Culler) createsCycle(r, parent rid.RID) bool {
	for p := parent; p.IsValid(); {
		if p == r {
			return true
		}
		it, ok := c.items.Get(p)
		if !ok {
			return false
		}
		p = it.parent
	}
	return false
}

func (c *Culler) CanvasItemSetDefaultTextureFilter(r rid.RID, filter rendering.CanvasItemTextureFilter) {
	c.setItem(r, "set_default_texture_filter", func(it *item) { it.filter = filter })
}

func (c *Culler) CanvasItemSetDefaultTextureRepeat(r rid.RID, repeat rendering.CanvasItemTextureRepeat) {
	c.setItem(r, "set_default_texture_repeat", func(it *item) { it.repeat = repeat })
}

func (c *Culler) CanvasItemSetVisible(r rid.RID, visible bool) {
	c.setItem(r, "set_visible", func(it *item) { it.visible = visible })
}

func (c *Culler) CanvasItemSetLightMask(r rid.RID, mask int) {
	c.setItem(r, "set_light_mask", func(it *item) { it.lightMask = mask })
}

func (c *Culler) CanvasItemSetVisibilityLayer(r rid.RID, layer uint32) {
	c.setItem(r, "set_visibility_layer", func(it *item) { it.visibilityLayer = layer })
}

func (c *Culler) CanvasItemSetUpdateWhenVisible(r rid.RID, update bool) {
	c.setItem(r, "set_update_when_visible", func(it *item) { it.updateWhenVisible = update })
}

func (c *Culler) CanvasItemSetTransform(r rid.RID, xform geom.Transform2D) {
	c.setItem(r, "set_transform", func(it *item) { it.xform = xform })
}

func (c *Culler) CanvasItemSetClip(r rid.RID, clip bool) {
	c.setItem(r, "set_clip", func(it *item) { it.clip = clip })
}

func (c *Culler) CanvasItemSetDistanceFieldMode(r rid.RID, enable bool) {
	c.setItem(r, "set_distance_field_mode", func(it *item) { it.distanceField = enable })
}

func (c *Culler) CanvasItemSetCustomRect(r rid.RID, custom bool, rect geom.Rect2) {
	c.setItem(r, "set_custom_rect", func(it *item) { it.customRect, it.rect = custom, rect })
}

func (c *Culler) CanvasItemSetModulate(r rid.RID, col rendering.Color) {
	c.setItem(r, "set_modulate", func(it *item) { it.modulate = col })
}

func (c *Culler) CanvasItemSetSelfModulate(r rid.RID, col rendering.Color) {
	c.setItem(r, "set_self_modulate", func(it *item) { it.selfModulate = col })
}

func (c *Culler) CanvasItemSetDrawBehindParent(r rid.RID, enable bool) {
	c.setItem(r, "set_draw_behind_parent", func(it *item) { it.drawBehindParent = enable })
}

func (c *Culler) CanvasItemSetSortChildrenByY(r rid.RID, enable bool) {
	c.setItem(r, "set_sort_children_by_y", func(it *item) { it.sortY = enable })
}

func (c *Culler) CanvasItemSetZIndex(r rid.RID, z int) {
	c.setItem(r, "set_z_index", func(it *item) { it.z = z })
}

func (c *Culler) CanvasItemSetZAsRelativeToParent(r rid.RID, enable bool) {
	c.setItem(r, "set_z_as_relative_to_parent", func(it *item) { it.zRelative = enable })
}

func (c *Culler) CanvasItemSetCopyToBackbuffer(r rid.RID, enable bool, rect geom.Rect2) {
	c.setItem(r, "set_copy_to_backbuffer", func(it *item) { it.copyBackbuffer, it.backbufferRect = enable, rect })
}

func (c *Culler) CanvasItemSetDrawIndex(r rid.RID, index int) {
	c.setItem(r, "set_draw_index", func(it *item) { it.drawIndex = index })
}

func (c *Culler) CanvasItemSetMaterial(r, material rid.RID) {
	c.setItem(r, "set_material", func(it *item) { it.material = material })
}

func (c *Culler) CanvasItemSetUseParentMaterial(r rid.RID, enable bool) {
	c.setItem(r, "set_use_parent_material", func(it *item) { it.useParentMaterial = enable })
}

// CanvasItemSetVisibilityNotifier calls onEnter when area, in item space,
// first appears in a drawn viewport and onExit when it is no longer drawn.
// The callbacks run on the render thread from Update.
func (c *Culler) CanvasItemSetVisibilityNotifier(r rid.RID, enable bool, area geom.Rect2, onEnter, onExit func()) {
	c.setItem(r, "set_visibility_notifier", func(it *item) {
		if !enable {
			it.notifier = nil
			return
		}
		it.notifier = &visibilityNotifier{area: area, onEnter: onEnter, onExit: onExit}
	})
	if !enable {
		c.notifyMu.Lock()
		delete(c.seen, r)
		delete(c.shown, r)
		c.notifyMu.Unlock()
	}
}

func (c *Culler) CanvasItemSetCanvasGroupMode(r rid.RID, mode rendering.CanvasGroupMode, clearMargin float32, fitEmpty bool, fitMargin float32, blurMipmaps bool) {
	c.setItem(r, "set_canvas_group_mode", func(it *item) {
		it.groupMode = mode
		it.groupClearMargin = clearMargin
		it.groupFitEmpty = fitEmpty
		it.groupFitMargin = fitMargin
		it.groupBlurMipmaps = blurMipmaps
	})
}

func (c *Culler) CanvasItemClear(r rid.RID) {
	c.setItem(r, "clear", func(it *item) { it.commands = nil })
}

func (c *Culler) addCommand(r rid.RID, cmd command) {
	c.setItem(r, "add_"+cmd.kind.String(), func(it *item) {
		it.commands = append(it.commands, cmd)
	})
}

func (c *Culler) CanvasItemAddLine(r rid.RID, from, to geom.Vector2, col rendering.Color, width float32, antialiased bool) {
	c.addCommand(r, command{kind: cmdLine, points: []geom.Vector2{from, to}, color: col, width: width, flag: antialiased})
}

func (c *Culler) CanvasItemAddPolyline(r rid.RID, points []geom.Vector2, colors []rendering.Color, width float32, antialiased bool) {
	if len(points) < 2 {
		return
	}
	c.addCommand(r, command{kind: cmdPolyline, points: slices.Clone(points), colors: slices.Clone(colors), width: width, flag: antialiased})
}

func (c *Culler) CanvasItemAddMultiline(r rid.RID, points []geom.Vector2, colors []rendering.Color, width float32) {
	if len(points) < 2 {
		return
	}
	c.addCommand(r, command{kind: cmdMultiline, points: slices.Clone(points), colors: slices.Clone(colors), width: width})
}

func (c *Culler) CanvasItemAddRect(r rid.RID, rect geom.Rect2, col rendering.Color) {
	c.addCommand(r, command{kind: cmdRect, rect: rect, color: col})
}

func (c *Culler) CanvasItemAddCircle(r rid.RID, pos geom.Vector2, radius float32, col rendering.Color) {
	c.addCommand(r, command{kind: cmdCircle, points: []geom.Vector2{pos}, width: radius, color: col})
}

func (c *Culler) CanvasItemAddTextureRect(r rid.RID, rect geom.Rect2, tex rid.RID, tile bool, modulate rendering.Color, transpose bool) {
	c.addCommand(r, command{kind: cmdTextureRect, rect: rect, tex: tex, tile: tile, color: modulate, flip: transpose})
}

func (c *Culler) CanvasItemAddTextureRectRegion(r rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate rendering.Color, transpose, clipUV bool) {
	c.addCommand(r, command{kind: cmdTextureRegion, rect: rect, tex: tex, src: src, color: modulate, flip: transpose, flag: clipUV})
}

// CanvasItemAddMSDFTextureRectRegion records a region of a multichannel
// distance field atlas. It is drawn as a plain texture region.
func (c *Culler) CanvasItemAddMSDFTextureRectRegion(r rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate rendering.Color, outlineSize int, pxRange, scale float32) {
	c.addCommand(r, command{kind: cmdTextureRegion, rect: rect, tex: tex, src: src, color: modulate, flag: true})
}

// CanvasItemAddLCDTextureRectRegion records a region of a subpixel glyph
// atlas. It is drawn as a plain texture region.
func (c *Culler) CanvasItemAddLCDTextureRectRegion(r rid.RID, rect geom.Rect2, tex rid.RID, src geom.Rect2, modulate rendering.Color) {
	c.addCommand(r, command{kind: cmdTextureRegion, rect: rect, tex: tex, src: src, color: modulate, flag: true})
}

func (c *Culler) CanvasItemAddNinePatch(r rid.RID, rect, source geom.Rect2, tex rid.RID, topLeft, bottomRight geom.Vector2, xAxis, yAxis rendering.NinePatchAxisMode, drawCenter bool, modulate rendering.Color) {
	c.addCommand(r, command{
		kind:        cmdNinePatch,
		rect:        rect,
		src:         source,
		tex:         tex,
		topLeft:     topLeft,
		bottomRight: bottomRight,
		xAxis:       xAxis,
		yAxis:       yAxis,
		flag:        drawCenter,
		color:       modulate,
	})
}

// CanvasItemAddPrimitive records a point, line, triangle or quad.
func (c *Culler) CanvasItemAddPrimitive(r rid.RID, points []geom.Vector2, colors []rendering.Color, uvs []geom.Vector2, tex rid.RID) {
	if n := len(points); n < 1 || n > 4 {
		slogger().Warn("canvas: primitive needs 1 to 4 points", "item", r, "points", n)
		return
	}
	kind := cmdPolygon
	if len(points) == 2 {
		kind = cmdLine
	}
	c.addCommand(r, command{kind: kind, points: slices.Clone(points), colors: slices.Clone(colors), color: firstColor(colors), width: 1, tex: tex})
}

func (c *Culler) CanvasItemAddPolygon(r rid.RID, points []geom.Vector2, colors []rendering.Color, uvs []geom.Vector2, tex rid.RID) {
	if len(points) < 3 {
		slogger().Warn("canvas: polygon needs at least 3 points", "item", r, "points", len(points))
		return
	}
	c.addCommand(r, command{kind: cmdPolygon, points: slices.Clone(points), colors: slices.Clone(colors), color: firstColor(colors), tex: tex})
}

// CanvasItemAddTriangleArray records triangles. Without indices, points are
// taken three at a time. A negative count draws every triangle.
func (c *Culler) CanvasItemAddTriangleArray(r rid.RID, indices []int, points []geom.Vector2, colors []rendering.Color, uvs []geom.Vector2, tex rid.RID, count int) {
	idx := slices.Clone(indices)
	if len(idx) == 0 {
		idx = make([]int, len(points)-len(points)%3)
		for i := range idx {
			idx[i] = i
		}
	}
	if count >= 0 && count*3 < len(idx) {
		idx = idx[:count*3]
	}
	for _, i := range idx {
		if i < 0 || i >= len(points) {
			slogger().Warn("canvas: triangle index out of range", "item", r, "index", i)
			return
		}
	}
	c.addCommand(r, command{kind: cmdTriangles, indices: idx, points: slices.Clone(points), colors: slices.Clone(colors), color: firstColor(colors), tex: tex})
}

// CanvasItemAddSetTransform changes the transform of the commands that
// follow, relative to the item.
func (c *Culler) CanvasItemAddSetTransform(r rid.RID, xform geom.Transform2D) {
	c.addCommand(r, command{kind: cmdTransform, xform: xform})
}

func (c *Culler) CanvasItemAddClipIgnore(r rid.RID, ignore bool) {
	c.addCommand(r, command{kind: cmdClipIgnore, flag: ignore})
}

// CanvasItemAddAnimationSlice is recorded for bounds and debugging. The
// rasterizer has no animation clock and draws every command.
func (c *Culler) CanvasItemAddAnimationSlice(r rid.RID, length, begin, end, offset float64) {
	c.addCommand(r, command{kind: cmdAnimationSlice})
}

func firstColor(colors []rendering.Color) rendering.Color {
	if len(colors) == 0 {
		return rendering.White
	}
	return colors[0]
}

// DebugCanvasItemGetRect returns the item-space bounds of the item's draw
// commands, or its custom rect when one is set.
func (c *Culler) DebugCanvasItemGetRect(r rid.RID) geom.Rect2 {
	var out geom.Rect2
	c.items.View(r, func(it item) {
		if it.customRect {
			out = it.rect
			return
		}
		out = commandBounds(it.commands)
	})
	return out
}

func commandBounds(cmds []command) geom.Rect2 {
	var (
		minP, maxP geom.Vector2
		have       bool
		xform      = geom.Identity()
	)
	add := func(r geom.Rect2) {
		r = xform.XformRect(r.Abs())
		e := r.End()
		if !have {
			minP, maxP, have = r.Position, e, true
			return
		}
		minP = geom.V2(math32.Min(minP.X, r.Position.X), math32.Min(minP.Y, r.Position.Y))
		maxP = geom.V2(math32.Max(maxP.X, e.X), math32.Max(maxP.Y, e.Y))
	}
	for _, cmd := range cmds {
		switch cmd.kind {
		case cmdTransform:
			xform = cmd.xform
		case cmdRect, cmdTextureRect, cmdTextureRegion, cmdNinePatch:
			add(cmd.rect)
		case cmdCircle:
			p, rad := cmd.points[0], cmd.width
			add(geom.R2(p.X-rad, p.Y-rad, 2*rad, 2*rad))
		case cmdLine, cmdPolyline, cmdMultiline, cmdPolygon, cmdTriangles:
			half := cmd.width / 2
			for _, p := range cmd.points {
				add(geom.R2(p.X-half, p.Y-half, 2*half, 2*half))
			}
		}
	}
	return geom.Rect2{Position: minP, Size: maxP.Sub(minP)}
}
