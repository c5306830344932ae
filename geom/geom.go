// Package geom provides the float32 2D value types used by the rendering
// server API: vectors, rectangles and affine transforms.
package geom

import (
	"image"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f64"
)

// Vector2 is a 2D vector or point.
type Vector2 struct {
	X, Y float32
}

// V2 is shorthand for Vector2{x, y}.
func V2(x, y float32) Vector2 { return Vector2{X: x, Y: y} }

// Add returns v+o.
func (v Vector2) Add(o Vector2) Vector2 { return Vector2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vector2) Sub(o Vector2) Vector2 { return Vector2{v.X - o.X, v.Y - o.Y} }

// Mul returns v scaled by s.
func (v Vector2) Mul(s float32) Vector2 { return Vector2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vector2) Dot(o Vector2) float32 { return v.X*o.X + v.Y*o.Y }

// Length returns the Euclidean length of v.
func (v Vector2) Length() float32 { return math32.Sqrt(v.X*v.X + v.Y*v.Y) }

// Normalized returns v with unit length, or the zero vector.
func (v Vector2) Normalized() Vector2 {
	l := v.Length()
	if l == 0 {
		return Vector2{}
	}
	return Vector2{v.X / l, v.Y / l}
}

// Orthogonal returns v rotated by 90 degrees counter-clockwise.
func (v Vector2) Orthogonal() Vector2 { return Vector2{-v.Y, v.X} }

// Rect2 is an axis-aligned rectangle given by position and size.
type Rect2 struct {
	Position Vector2
	Size     Vector2
}

// R2 is shorthand for a Rect2 at (x, y) with size (w, h).
func R2(x, y, w, h float32) Rect2 {
	return Rect2{Position: Vector2{x, y}, Size: Vector2{w, h}}
}

// End returns the bottom-right corner.
func (r Rect2) End() Vector2 { return r.Position.Add(r.Size) }

// Area returns the rectangle area.
func (r Rect2) Area() float32 { return r.Size.X * r.Size.Y }

// HasPoint reports whether p lies inside r. The end edges are exclusive.
func (r Rect2) HasPoint(p Vector2) bool {
	e := r.End()
	return p.X >= r.Position.X && p.Y >= r.Position.Y && p.X < e.X && p.Y < e.Y
}

// Merge returns the smallest rectangle containing r and o.
func (r Rect2) Merge(o Rect2) Rect2 {
	if r.Size == (Vector2{}) {
		return o
	}
	e1, e2 := r.End(), o.End()
	minX := math32.Min(r.Position.X, o.Position.X)
	minY := math32.Min(r.Position.Y, o.Position.Y)
	maxX := math32.Max(e1.X, e2.X)
	maxY := math32.Max(e1.Y, e2.Y)
	return R2(minX, minY, maxX-minX, maxY-minY)
}

// Abs returns r with non-negative size.
func (r Rect2) Abs() Rect2 {
	out := r
	if out.Size.X < 0 {
		out.Position.X += out.Size.X
		out.Size.X = -out.Size.X
	}
	if out.Size.Y < 0 {
		out.Position.Y += out.Size.Y
		out.Size.Y = -out.Size.Y
	}
	return out
}

// Image returns the integer rectangle covering r.
func (r Rect2) Image() image.Rectangle {
	e := r.End()
	return image.Rect(
		int(math32.Floor(r.Position.X)), int(math32.Floor(r.Position.Y)),
		int(math32.Ceil(e.X)), int(math32.Ceil(e.Y)),
	)
}

// Transform2D is a 2D affine transform stored as two basis columns and an
// origin: p' = X*p.x + Y*p.y + Origin.
type Transform2D struct {
	X, Y   Vector2
	Origin Vector2
}

// Identity returns the identity transform.
func Identity() Transform2D {
	return Transform2D{X: Vector2{1, 0}, Y: Vector2{0, 1}}
}

// Translation returns a transform that moves points by o.
func Translation(o Vector2) Transform2D {
	t := Identity()
	t.Origin = o
	return t
}

// Rotation returns a transform rotating by angle radians.
func Rotation(angle float32) Transform2D {
	s, c := math32.Sin(angle), math32.Cos(angle)
	return Transform2D{X: Vector2{c, s}, Y: Vector2{-s, c}}
}

// Scaling returns a transform scaling by s.
func Scaling(s Vector2) Transform2D {
	return Transform2D{X: Vector2{s.X, 0}, Y: Vector2{0, s.Y}}
}

// IsIdentity reports whether t is exactly the identity.
func (t Transform2D) IsIdentity() bool { return t == Identity() }

// Xform applies t to point p.
func (t Transform2D) Xform(p Vector2) Vector2 {
	return Vector2{
		X: t.X.X*p.X + t.Y.X*p.Y + t.Origin.X,
		Y: t.X.Y*p.X + t.Y.Y*p.Y + t.Origin.Y,
	}
}

// BasisXform applies t to vector v ignoring the origin.
func (t Transform2D) BasisXform(v Vector2) Vector2 {
	return Vector2{
		X: t.X.X*v.X + t.Y.X*v.Y,
		Y: t.X.Y*v.X + t.Y.Y*v.Y,
	}
}

// Mul returns t*o, the transform that applies o first and then t.
func (t Transform2D) Mul(o Transform2D) Transform2D {
	return Transform2D{
		X:      t.BasisXform(o.X),
		Y:      t.BasisXform(o.Y),
		Origin: t.Xform(o.Origin),
	}
}

// Determinant returns the determinant of the basis.
func (t Transform2D) Determinant() float32 {
	return t.X.X*t.Y.Y - t.X.Y*t.Y.X
}

// AffineInverse returns the inverse of t. A singular transform returns the
// identity.
func (t Transform2D) AffineInverse() Transform2D {
	det := t.Determinant()
	if det == 0 {
		return Identity()
	}
	idet := 1 / det
	inv := Transform2D{
		X: Vector2{t.Y.Y * idet, -t.X.Y * idet},
		Y: Vector2{-t.Y.X * idet, t.X.X * idet},
	}
	inv.Origin = inv.BasisXform(t.Origin).Mul(-1)
	return inv
}

// Scale returns the length of each basis column.
func (t Transform2D) Scale() Vector2 {
	return Vector2{t.X.Length(), t.Y.Length()}
}

// XformRect returns the bounding box of r transformed by t.
func (t Transform2D) XformRect(r Rect2) Rect2 {
	e := r.End()
	pts := [4]Vector2{
		t.Xform(r.Position),
		t.Xform(Vector2{e.X, r.Position.Y}),
		t.Xform(e),
		t.Xform(Vector2{r.Position.X, e.Y}),
	}
	minP, maxP := pts[0], pts[0]
	for _, p := range pts[1:] {
		minP.X, minP.Y = math32.Min(minP.X, p.X), math32.Min(minP.Y, p.Y)
		maxP.X, maxP.Y = math32.Max(maxP.X, p.X), math32.Max(maxP.Y, p.Y)
	}
	return Rect2{Position: minP, Size: maxP.Sub(minP)}
}

// Aff3 converts t to the float64 matrix used by golang.org/x/image/draw.
func (t Transform2D) Aff3() f64.Aff3 {
	return f64.Aff3{
		float64(t.X.X), float64(t.Y.X), float64(t.Origin.X),
		float64(t.X.Y), float64(t.Y.Y), float64(t.Origin.Y),
	}
}
