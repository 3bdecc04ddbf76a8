// Package geometry holds the value types shared by every page operation:
// points, axis-aligned rectangles and affine matrices.
//
// Rectangles use the page's top-left corner as origin with y growing
// downwards, the same frame the layout engine reasons in. Conversion to PDF
// user space (bottom-left origin) happens in the document backend.
package geometry

import (
	"fmt"
	"math"
)

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box given by its two corners.
// Well-formed values satisfy X1 >= X0 and Y1 >= Y0.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect creates a rectangle from corner coordinates
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// FromOriginSize creates a rectangle from its top-left corner and size
func FromOriginSize(x, y, width, height float64) Rect {
	return Rect{X0: x, Y0: y, X1: x + width, Y1: y + height}
}

// Width returns the horizontal extent
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Area returns the area, zero for degenerate rectangles
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Valid reports whether the rectangle has strictly positive width and height.
// Only valid rectangles are drawn or used as redaction masks.
func (r Rect) Valid() bool {
	return r.X1 > r.X0 && r.Y1 > r.Y0
}

// IsEmpty returns true if the rectangle has zero or negative area
func (r Rect) IsEmpty() bool {
	return !r.Valid()
}

// Center returns the center point
func (r Rect) Center() Point {
	return Point{X: (r.X0 + r.X1) / 2, Y: (r.Y0 + r.Y1) / 2}
}

// Intersects reports whether two rectangles share a region of positive area
func (r Rect) Intersects(other Rect) bool {
	return r.X0 < other.X1 && other.X0 < r.X1 &&
		r.Y0 < other.Y1 && other.Y0 < r.Y1
}

// Contains reports whether other lies entirely inside r
func (r Rect) Contains(other Rect) bool {
	return other.X0 >= r.X0 && other.X1 <= r.X1 &&
		other.Y0 >= r.Y0 && other.Y1 <= r.Y1
}

// Intersection returns the overlap of two rectangles, or the zero Rect
func (r Rect) Intersection(other Rect) Rect {
	if !r.Intersects(other) {
		return Rect{}
	}
	return Rect{
		X0: math.Max(r.X0, other.X0),
		Y0: math.Max(r.Y0, other.Y0),
		X1: math.Min(r.X1, other.X1),
		Y1: math.Min(r.Y1, other.Y1),
	}
}

// Subtract returns disjoint pieces covering r minus other, at most four
func (r Rect) Subtract(other Rect) []Rect {
	if !r.Intersects(other) {
		return []Rect{r}
	}
	cut := r.Intersection(other)
	var pieces []Rect
	for _, p := range []Rect{
		{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: cut.Y0},
		{X0: r.X0, Y0: cut.Y1, X1: r.X1, Y1: r.Y1},
		{X0: r.X0, Y0: cut.Y0, X1: cut.X0, Y1: cut.Y1},
		{X0: cut.X1, Y0: cut.Y0, X1: r.X1, Y1: cut.Y1},
	} {
		if p.Valid() {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// Union returns the smallest rectangle containing both
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

// Inset shrinks the rectangle by independent amounts on each side
func (r Rect) Inset(left, top, right, bottom float64) Rect {
	return Rect{X0: r.X0 + left, Y0: r.Y0 + top, X1: r.X1 - right, Y1: r.Y1 - bottom}
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect(%g, %g, %g, %g)", r.X0, r.Y0, r.X1, r.Y1)
}

// BoundingRect returns the smallest rectangle containing all points
func BoundingRect(pts ...Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{X0: pts[0].X, Y0: pts[0].Y, X1: pts[0].X, Y1: pts[0].Y}
	for _, p := range pts[1:] {
		r.X0 = math.Min(r.X0, p.X)
		r.Y0 = math.Min(r.Y0, p.Y)
		r.X1 = math.Max(r.X1, p.X)
		r.Y1 = math.Max(r.Y1, p.Y)
	}
	return r
}

// Matrix represents a 2D affine transformation matrix [a b c d e f]
type Matrix [6]float64

// Identity returns an identity matrix
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Translate creates a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale creates a scaling matrix
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// Transform applies the matrix transformation to a point
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Multiply returns m followed by other, the order PDF concatenates with cm.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// TransformRect maps all four corners and returns their bounding box
func (m Matrix) TransformRect(r Rect) Rect {
	return BoundingRect(
		m.Transform(Point{r.X0, r.Y0}),
		m.Transform(Point{r.X1, r.Y0}),
		m.Transform(Point{r.X0, r.Y1}),
		m.Transform(Point{r.X1, r.Y1}),
	)
}

// Invert returns the inverse transformation, false for singular matrices
func (m Matrix) Invert() (Matrix, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return Matrix{}, false
	}
	a, b, c, d := m[3]/det, -m[1]/det, -m[2]/det, m[0]/det
	return Matrix{a, b, c, d, -(m[4]*a + m[5]*c), -(m[4]*b + m[5]*d)}, true
}

// Rectilinear reports whether the matrix maps axis-aligned rectangles onto
// axis-aligned rectangles
func (m Matrix) Rectilinear() bool {
	return (m[1] == 0 && m[2] == 0) || (m[0] == 0 && m[3] == 0)
}

// IsIdentity returns true if the matrix is an identity matrix
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}
