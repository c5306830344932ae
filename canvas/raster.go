package canvas

import (
	"image"

	"github.com/chewxy/math32"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
)

const circleSegments = 32

// fillPolygon fills the closed polygon pts (in dst coordinates) with col
// using the non-zero winding rule.
func fillPolygon(dst *image.RGBA, pts []geom.Vector2, col rendering.Color) {
	b := dst.Bounds()
	if len(pts) < 3 || col.A <= 0 || b.Empty() {
		return
	}
	pts = clipPolygon(pts, float32(b.Min.X), float32(b.Min.Y), float32(b.Max.X), float32(b.Max.Y))
	if len(pts) < 3 {
		return
	}
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	ox, oy := float32(b.Min.X), float32(b.Min.Y)
	z.MoveTo(pts[0].X-ox, pts[0].Y-oy)
	for _, p := range pts[1:] {
		z.LineTo(p.X-ox, p.Y-oy)
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(rendering.ToNRGBA(col)), image.Point{})
}

// fillLine draws the segment a-b as a quad of the given width.
func fillLine(dst *image.RGBA, a, b geom.Vector2, width float32, col rendering.Color) {
	d := b.Sub(a)
	if d.Length() == 0 {
		fillPoint(dst, a, col)
		return
	}
	n := d.Normalized().Orthogonal().Mul(width / 2)
	fillPolygon(dst, []geom.Vector2{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}, col)
}

// fillPoint covers the pixel containing p.
func fillPoint(dst *image.RGBA, p geom.Vector2, col rendering.Color) {
	x, y := math32.Floor(p.X), math32.Floor(p.Y)
	fillPolygon(dst, []geom.Vector2{{X: x, Y: y}, {X: x + 1, Y: y}, {X: x + 1, Y: y + 1}, {X: x, Y: y + 1}}, col)
}

// lineWidth converts an item-space width to pixels. Widths of zero or less
// mean a one pixel hairline.
func lineWidth(xform geom.Transform2D, width float32) float32 {
	if width <= 0 {
		return 1
	}
	s := xform.Scale()
	w := width * (s.X + s.Y) / 2
	return math32.Max(w, 1)
}

func circlePoints(center geom.Vector2, radius float32) []geom.Vector2 {
	pts := make([]geom.Vector2, circleSegments)
	for i := range pts {
		a := 2 * math32.Pi * float32(i) / circleSegments
		pts[i] = geom.V2(center.X+radius*math32.Cos(a), center.Y+radius*math32.Sin(a))
	}
	return pts
}

// clipPolygon clips pts to the rectangle [x0,x1]x[y0,y1] (Sutherland-Hodgman).
func clipPolygon(pts []geom.Vector2, x0, y0, x1, y1 float32) []geom.Vector2 {
	type edge struct {
		inside func(geom.Vector2) bool
		cross  func(a, b geom.Vector2) geom.Vector2
	}
	lerpX := func(x float32) func(a, b geom.Vector2) geom.Vector2 {
		return func(a, b geom.Vector2) geom.Vector2 {
			t := (x - a.X) / (b.X - a.X)
			return geom.V2(x, a.Y+t*(b.Y-a.Y))
		}
	}
	lerpY := func(y float32) func(a, b geom.Vector2) geom.Vector2 {
		return func(a, b geom.Vector2) geom.Vector2 {
			t := (y - a.Y) / (b.Y - a.Y)
			return geom.V2(a.X+t*(b.X-a.X), y)
		}
	}
	edges := [4]edge{
		{func(p geom.Vector2) bool { return p.X >= x0 }, lerpX(x0)},
		{func(p geom.Vector2) bool { return p.X <= x1 }, lerpX(x1)},
		{func(p geom.Vector2) bool { return p.Y >= y0 }, lerpY(y0)},
		{func(p geom.Vector2) bool { return p.Y <= y1 }, lerpY(y1)},
	}
	out := pts
	for _, e := range edges {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = make([]geom.Vector2, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur):
				if !e.inside(prev) {
					out = append(out, e.cross(prev, cur))
				}
				out = append(out, cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

func scalerFor(filter rendering.CanvasItemTextureFilter) draw.Transformer {
	switch filter {
	case rendering.CanvasItemTextureFilterNearest, rendering.CanvasItemTextureFilterNearestWithMipmaps:
		return draw.NearestNeighbor
	default:
		return draw.ApproxBiLinear
	}
}

// regionTransform maps source pixel coordinates of src onto rect in item
// space. With transpose the source X axis runs along the rect's Y axis.
func regionTransform(rect, src geom.Rect2, transpose bool) geom.Transform2D {
	if !transpose {
		sx, sy := rect.Size.X/src.Size.X, rect.Size.Y/src.Size.Y
		return geom.Transform2D{
			X:      geom.V2(sx, 0),
			Y:      geom.V2(0, sy),
			Origin: geom.V2(rect.Position.X-src.Position.X*sx, rect.Position.Y-src.Position.Y*sy),
		}
	}
	sx, sy := rect.Size.Y/src.Size.X, rect.Size.X/src.Size.Y
	return geom.Transform2D{
		X:      geom.V2(0, sx),
		Y:      geom.V2(sy, 0),
		Origin: geom.V2(rect.Position.X-src.Position.Y*sy, rect.Position.Y-src.Position.X*sx),
	}
}

// drawRegion draws the src region of img stretched over rect.
func drawRegion(dst *image.RGBA, xform geom.Transform2D, img *image.RGBA, rect, src geom.Rect2, transpose bool, tint rendering.Color, scaler draw.Transformer) {
	if rect.Size.X == 0 || rect.Size.Y == 0 || src.Size.X <= 0 || src.Size.Y <= 0 {
		return
	}
	sr := src.Image().Intersect(img.Bounds())
	if sr.Empty() {
		return
	}
	m := xform.Mul(regionTransform(rect, src, transpose))
	scaler.Transform(dst, m.Aff3(), tinted(img, sr, tint), sr, draw.Over, nil)
}

// drawTiled repeats the src region of img at its native size across rect.
func drawTiled(dst *image.RGBA, xform geom.Transform2D, img *image.RGBA, rect, src geom.Rect2, tint rendering.Color, scaler draw.Transformer) int {
	if src.Size.X <= 0 || src.Size.Y <= 0 {
		return 0
	}
	n := 0
	end := rect.End()
	for y := rect.Position.Y; y < end.Y; y += src.Size.Y {
		h := math32.Min(src.Size.Y, end.Y-y)
		for x := rect.Position.X; x < end.X; x += src.Size.X {
			w := math32.Min(src.Size.X, end.X-x)
			drawRegion(dst, xform, img, geom.R2(x, y, w, h), geom.Rect2{Position: src.Position, Size: geom.V2(w, h)}, false, tint, scaler)
			n++
		}
	}
	return n
}

// span is one piece of a nine patch axis: a destination interval and the
// source interval drawn into it.
type span struct{ d0, d1, s0, s1 float32 }

func axisSpans(d0, d1, s0, s1 float32, mode rendering.NinePatchAxisMode) []span {
	srcLen, dstLen := s1-s0, d1-d0
	if srcLen <= 0 || dstLen <= 0 {
		return nil
	}
	switch mode {
	case rendering.NinePatchAxisTile:
		var out []span
		for d := d0; d < d1; d += srcLen {
			l := math32.Min(srcLen, d1-d)
			out = append(out, span{d, d + l, s0, s0 + l})
		}
		return out
	case rendering.NinePatchAxisTileFit:
		count := int(math32.Max(1, math32.Floor(dstLen/srcLen+0.5)))
		step := dstLen / float32(count)
		out := make([]span, count)
		for i := range out {
			out[i] = span{d0 + float32(i)*step, d0 + float32(i+1)*step, s0, s1}
		}
		return out
	default:
		return []span{{d0, d1, s0, s1}}
	}
}

func drawNinePatch(dst *image.RGBA, xform geom.Transform2D, img *image.RGBA, cmd *command, tint rendering.Color, scaler draw.Transformer) int {
	src := cmd.src
	if src.Area() == 0 {
		b := img.Bounds()
		src = geom.R2(float32(b.Min.X), float32(b.Min.Y), float32(b.Dx()), float32(b.Dy()))
	}
	rect := cmd.rect.Abs()
	l, t := cmd.topLeft.X, cmd.topLeft.Y
	r, b := cmd.bottomRight.X, cmd.bottomRight.Y
	se, de := src.End(), rect.End()

	sx := [4]float32{src.Position.X, src.Position.X + l, se.X - r, se.X}
	sy := [4]float32{src.Position.Y, src.Position.Y + t, se.Y - b, se.Y}
	dx := [4]float32{rect.Position.X, rect.Position.X + l, de.X - r, de.X}
	dy := [4]float32{rect.Position.Y, rect.Position.Y + t, de.Y - b, de.Y}

	n := 0
	for j := 0; j < 3; j++ {
		modeY := rendering.NinePatchAxisStretch
		if j == 1 {
			modeY = cmd.yAxis
		}
		rows := axisSpans(dy[j], dy[j+1], sy[j], sy[j+1], modeY)
		for i := 0; i < 3; i++ {
			if i == 1 && j == 1 && !cmd.flag {
				continue
			}
			modeX := rendering.NinePatchAxisStretch
			if i == 1 {
				modeX = cmd.xAxis
			}
			cols := axisSpans(dx[i], dx[i+1], sx[i], sx[i+1], modeX)
			for _, row := range rows {
				for _, col := range cols {
					drawRegion(dst, xform, img,
						geom.R2(col.d0, row.d0, col.d1-col.d0, row.d1-row.d0),
						geom.R2(col.s0, row.s0, col.s1-col.s0, row.s1-row.s0),
						false, tint, scaler)
					n++
				}
			}
		}
	}
	return n
}

// tinted returns img, or a copy of its sr region multiplied by tint when
// tint is not white.
func tinted(img *image.RGBA, sr image.Rectangle, tint rendering.Color) *image.RGBA {
	if tint == rendering.White {
		return img
	}
	out := image.NewRGBA(sr)
	mr, mg, mb, ma := clamp01(tint.R), clamp01(tint.G), clamp01(tint.B), clamp01(tint.A)
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		si := img.PixOffset(sr.Min.X, y)
		di := out.PixOffset(sr.Min.X, y)
		for x := 0; x < sr.Dx(); x++ {
			s := img.Pix[si+4*x : si+4*x+4 : si+4*x+4]
			d := out.Pix[di+4*x : di+4*x+4 : di+4*x+4]
			// Pixels are premultiplied, so alpha scales the color channels too.
			d[0] = uint8(float64(s[0])*mr*ma + 0.5)
			d[1] = uint8(float64(s[1])*mg*ma + 0.5)
			d[2] = uint8(float64(s[2])*mb*ma + 0.5)
			d[3] = uint8(float64(s[3])*ma + 0.5)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
