package canvas

import (
	"image"
	"slices"
	"sort"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

// drawItem is a canvas item resolved against its ancestors, ready to draw.
type drawItem struct {
	id       rid.RID
	it       item
	xform    geom.Transform2D
	modulate rendering.Color
	z        int
	clip     image.Rectangle
	filter   rendering.CanvasItemTextureFilter
	repeat   rendering.CanvasItemTextureRepeat
}

// frameScene is a lock-free copy of the items taken at the start of a
// canvas draw.
type frameScene struct {
	items    map[rid.RID]item
	children map[rid.RID][]rid.RID
}

func (c *Culler) snapshotScene() frameScene {
	sc := frameScene{
		items:    make(map[rid.RID]item),
		children: make(map[rid.RID][]rid.RID),
	}
	c.items.Range(func(r rid.RID, it item) bool {
		sc.items[r] = it
		if it.parent.IsValid() {
			sc.children[it.parent] = append(sc.children[it.parent], r)
		}
		return true
	})
	return sc
}

type canvasRenderer struct {
	c      *Culler
	dst    *image.RGBA
	params rendering.CanvasRenderParams
	scene  frameScene

	list  []drawItem
	seen  []rid.RID
	stats rendering.CanvasStats
}

// RenderCanvas draws the items of canvas, then the canvases parented to it,
// into dst. Items are ordered by z index, then by tree order. It returns the
// number of items, primitives and draw calls produced.
func (c *Culler) RenderCanvas(canvas rid.RID, dst *image.RGBA, params rendering.CanvasRenderParams) rendering.CanvasStats {
	cs, ok := c.canvases.Get(canvas)
	if !ok || dst == nil {
		return rendering.CanvasStats{}
	}

	var subCanvases []rid.RID
	subStates := make(map[rid.RID]canvasState)
	c.canvases.Range(func(r rid.RID, s canvasState) bool {
		subStates[r] = s
		subCanvases = append(subCanvases, r)
		return true
	})

	rr := &canvasRenderer{c: c, dst: dst, params: params, scene: c.snapshotScene()}
	visited := map[rid.RID]bool{}
	var collect func(id rid.RID, s canvasState, xform geom.Transform2D, mod rendering.Color)
	collect = func(id rid.RID, s canvasState, xform geom.Transform2D, mod rendering.Color) {
		if visited[id] {
			return
		}
		visited[id] = true
		mod = rendering.ModulateColor(mod, s.modulate)
		for _, child := range rr.sortedChildren(id) {
			rr.walk(child, xform, mod, 0, dst.Bounds(), params.DefaultFilter, params.DefaultRepeat)
		}
		for _, sub := range subCanvases {
			st := subStates[sub]
			if st.parent != id {
				continue
			}
			scale := st.parentScale
			if scale == 0 {
				scale = 1
			}
			collect(sub, st, xform.Mul(geom.Scaling(geom.V2(scale, scale))), mod)
		}
	}
	collect(canvas, cs, params.Transform, rendering.White)

	sort.SliceStable(rr.list, func(i, j int) bool { return rr.list[i].z < rr.list[j].z })
	for i := range rr.list {
		rr.draw(&rr.list[i])
	}

	if len(rr.seen) > 0 {
		c.notifyMu.Lock()
		for _, r := range rr.seen {
			c.seen[r] = struct{}{}
		}
		c.notifyMu.Unlock()
	}
	return rr.stats
}

// sortedChildren orders the children of parent by draw index, or by Y
// position when the parent sorts its children by Y.
func (rr *canvasRenderer) sortedChildren(parent rid.RID) []rid.RID {
	kids := slices.Clone(rr.scene.children[parent])
	byY := false
	if p, ok := rr.scene.items[parent]; ok {
		byY = p.sortY
	}
	sort.SliceStable(kids, func(i, j int) bool {
		a, b := rr.scene.items[kids[i]], rr.scene.items[kids[j]]
		if byY && a.xform.Origin.Y != b.xform.Origin.Y {
			return a.xform.Origin.Y < b.xform.Origin.Y
		}
		return a.drawIndex < b.drawIndex
	})
	return kids
}

func (rr *canvasRenderer) walk(id rid.RID, parent geom.Transform2D, mod rendering.Color, parentZ int, clip image.Rectangle, filter rendering.CanvasItemTextureFilter, repeat rendering.CanvasItemTextureRepeat) {
	it, ok := rr.scene.items[id]
	if !ok || !it.visible {
		return
	}
	xform := parent.Mul(it.xform)
	mod = rendering.ModulateColor(mod, it.modulate)
	z := it.z
	if it.zRelative {
		z += parentZ
	}
	if it.filter != rendering.CanvasItemTextureFilterDefault {
		filter = it.filter
	}
	if it.repeat != rendering.CanvasItemTextureRepeatDefault {
		repeat = it.repeat
	}
	if it.clip {
		local := it.rect
		if !it.customRect {
			local = commandBounds(it.commands)
		}
		clip = clip.Intersect(xform.XformRect(local).Image())
	}

	if n := it.notifier; n != nil && xform.XformRect(n.area).Image().Overlaps(rr.dst.Bounds()) {
		rr.seen = append(rr.seen, id)
	}

	kids := rr.sortedChildren(id)
	for _, k := range kids {
		if rr.scene.items[k].drawBehindParent {
			rr.walk(k, xform, mod, z, clip, filter, repeat)
		}
	}
	if it.visibilityLayer&rr.params.CullMask != 0 && len(it.commands) > 0 {
		rr.list = append(rr.list, drawItem{
			id:       id,
			it:       it,
			xform:    xform,
			modulate: mod,
			z:        z,
			clip:     clip,
			filter:   filter,
			repeat:   repeat,
		})
	}
	for _, k := range kids {
		if !rr.scene.items[k].drawBehindParent {
			rr.walk(k, xform, mod, z, clip, filter, repeat)
		}
	}
}

func (rr *canvasRenderer) draw(d *drawItem) {
	mod := rendering.ModulateColor(d.modulate, d.it.selfModulate)
	clipped := subImage(rr.dst, d.clip)
	cur := d.xform
	ignoreClip := false
	drawn := false

	for i := range d.it.commands {
		cmd := &d.it.commands[i]
		switch cmd.kind {
		case cmdTransform:
			cur = d.xform.Mul(cmd.xform)
			continue
		case cmdClipIgnore:
			ignoreClip = cmd.flag
			continue
		case cmdAnimationSlice:
			continue
		}
		target := clipped
		if ignoreClip {
			target = rr.dst
		}
		if target == nil {
			continue
		}
		if n := rr.drawCommand(target, cur, cmd, mod, d); n > 0 {
			rr.stats.Primitives += n
			rr.stats.DrawCalls++
			drawn = true
		}
	}
	if drawn {
		rr.stats.Objects++
	}
}

// subImage returns the part of dst inside r, or nil when they do not
// overlap.
func subImage(dst *image.RGBA, r image.Rectangle) *image.RGBA {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return nil
	}
	if r == dst.Bounds() {
		return dst
	}
	return dst.SubImage(r).(*image.RGBA)
}

// drawCommand rasterizes one command and returns the number of primitives
// drawn.
func (rr *canvasRenderer) drawCommand(dst *image.RGBA, xform geom.Transform2D, cmd *command, mod rendering.Color, d *drawItem) int {
	pt := func(p geom.Vector2) geom.Vector2 {
		q := xform.Xform(p)
		if rr.params.SnapVertices {
			q = geom.V2(float32(int(q.X+0.5)), float32(int(q.Y+0.5)))
		}
		return q
	}
	colorAt := func(i int) rendering.Color {
		if i < len(cmd.colors) {
			return rendering.ModulateColor(cmd.colors[i], mod)
		}
		return rendering.ModulateColor(firstColor(cmd.colors), mod)
	}

	switch cmd.kind {
	case cmdLine:
		col := rendering.ModulateColor(cmd.color, mod)
		if len(cmd.colors) > 0 {
			col = colorAt(0)
		}
		fillLine(dst, pt(cmd.points[0]), pt(cmd.points[1]), lineWidth(xform, cmd.width), col)
		return 1
	case cmdPolyline:
		w := lineWidth(xform, cmd.width)
		for i := 0; i+1 < len(cmd.points); i++ {
			fillLine(dst, pt(cmd.points[i]), pt(cmd.points[i+1]), w, colorAt(i))
		}
		return len(cmd.points) - 1
	case cmdMultiline:
		w := lineWidth(xform, cmd.width)
		n := 0
		for i := 0; i+1 < len(cmd.points); i += 2 {
			fillLine(dst, pt(cmd.points[i]), pt(cmd.points[i+1]), w, colorAt(i/2))
			n++
		}
		return n
	case cmdRect:
		r := cmd.rect
		e := r.End()
		fillPolygon(dst, []geom.Vector2{
			pt(r.Position), pt(geom.V2(e.X, r.Position.Y)), pt(e), pt(geom.V2(r.Position.X, e.Y)),
		}, rendering.ModulateColor(cmd.color, mod))
		return 1
	case cmdCircle:
		pts := circlePoints(cmd.points[0], cmd.width)
		for i := range pts {
			pts[i] = pt(pts[i])
		}
		fillPolygon(dst, pts, rendering.ModulateColor(cmd.color, mod))
		return 1
	case cmdPolygon:
		pts := make([]geom.Vector2, len(cmd.points))
		for i, p := range cmd.points {
			pts[i] = pt(p)
		}
		if len(pts) == 1 {
			fillPoint(dst, pts[0], rendering.ModulateColor(cmd.color, mod))
			return 1
		}
		fillPolygon(dst, pts, rendering.ModulateColor(cmd.color, mod))
		return 1
	case cmdTriangles:
		n := 0
		for i := 0; i+2 < len(cmd.indices); i += 3 {
			a, b, c := cmd.indices[i], cmd.indices[i+1], cmd.indices[i+2]
			fillPolygon(dst, []geom.Vector2{pt(cmd.points[a]), pt(cmd.points[b]), pt(cmd.points[c])}, colorAt(a))
			n++
		}
		return n
	case cmdTextureRect, cmdTextureRegion, cmdNinePatch:
		return rr.drawTextured(dst, xform, cmd, mod, d)
	}
	return 0
}

func (rr *canvasRenderer) drawTextured(dst *image.RGBA, xform geom.Transform2D, cmd *command, mod rendering.Color, d *drawItem) int {
	img, filter := rr.c.resolveTexture(cmd.tex, d.filter)
	if img == nil {
		return 0
	}
	tint := rendering.ModulateColor(cmd.color, mod)
	scaler := scalerFor(filter)
	bounds := img.Bounds()

	switch cmd.kind {
	case cmdTextureRect:
		src := geom.R2(float32(bounds.Min.X), float32(bounds.Min.Y), float32(bounds.Dx()), float32(bounds.Dy()))
		if cmd.tile {
			return drawTiled(dst, xform, img, cmd.rect.Abs(), src, tint, scaler)
		}
		drawRegion(dst, xform, img, cmd.rect, src, cmd.flip, tint, scaler)
		return 1
	case cmdTextureRegion:
		src := cmd.src
		if src.Area() == 0 {
			src = geom.R2(float32(bounds.Min.X), float32(bounds.Min.Y), float32(bounds.Dx()), float32(bounds.Dy()))
		}
		drawRegion(dst, xform, img, cmd.rect, src, cmd.flip, tint, scaler)
		return 1
	default:
		return drawNinePatch(dst, xform, img, cmd, tint, scaler)
	}
}

// resolveTexture returns the image for tex. A canvas texture resolves to its
// diffuse channel and reports its normal map as used.
func (c *Culler) resolveTexture(tex rid.RID, filter rendering.CanvasItemTextureFilter) (*image.RGBA, rendering.CanvasItemTextureFilter) {
	if !tex.IsValid() || c.textures == nil {
		return nil, filter
	}
	if ct, ok := c.ctextures.Get(tex); ok {
		if ct.normal.IsValid() {
			c.textures.TextureDetectUse(ct.normal, rendering.TextureUseNormal)
		}
		if ct.filter != rendering.CanvasItemTextureFilterDefault {
			filter = ct.filter
		}
		tex = ct.diffuse
	}
	return c.textures.TextureImage(tex), filter
}
