package geometry

import (
	"math"
	"testing"
)

// ============================================================================
// Rect Tests
// ============================================================================

func TestFromOriginSize(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h float64
	}{
		{"unit", 0, 0, 1, 1},
		{"offset", 10, 20, 100, 50},
		{"fractional", 0.5, 0.25, 0.1, 0.3},
		{"negative origin", -40, -7, 12, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromOriginSize(tt.x, tt.y, tt.w, tt.h)
			if r.X0 != tt.x || r.Y0 != tt.y {
				t.Errorf("origin = (%v, %v), want (%v, %v)", r.X0, r.Y0, tt.x, tt.y)
			}
			if r.X1 != tt.x+tt.w || r.Y1 != tt.y+tt.h {
				t.Errorf("corner = (%v, %v), want (%v, %v)", r.X1, r.Y1, tt.x+tt.w, tt.y+tt.h)
			}
			if !(r.X1 > r.X0 && r.Y1 > r.Y0) {
				t.Errorf("FromOriginSize(%v) not strictly positive", r)
			}
			if !r.Valid() {
				t.Errorf("Valid() = false for %v", r)
			}
		})
	}
}

func TestRectValid(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"proper", NewRect(0, 0, 10, 10), true},
		{"zero width", NewRect(5, 0, 5, 10), false},
		{"zero height", NewRect(0, 5, 10, 5), false},
		{"inverted", NewRect(10, 10, 0, 0), false},
		{"zero value", Rect{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
			if got := tt.r.IsEmpty(); got == tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, !tt.want)
			}
		})
	}
}

func TestRectIntersection(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 15, 15)

	if !a.Intersects(b) {
		t.Fatal("expected overlap")
	}
	got := a.Intersection(b)
	if got != NewRect(5, 5, 10, 10) {
		t.Errorf("Intersection() = %v", got)
	}

	touching := NewRect(10, 0, 20, 10)
	if a.Intersects(touching) {
		t.Error("rectangles sharing only an edge should not intersect")
	}
	if a.Intersection(touching) != (Rect{}) {
		t.Error("expected zero Rect for edge-touching rectangles")
	}
}

func TestRectContainsAndUnion(t *testing.T) {
	outer := NewRect(0, 0, 100, 100)
	inner := NewRect(10, 10, 20, 20)
	if !outer.Contains(inner) {
		t.Error("outer should contain inner")
	}
	if inner.Contains(outer) {
		t.Error("inner should not contain outer")
	}
	if u := inner.Union(NewRect(50, 50, 60, 70)); u != NewRect(10, 10, 60, 70) {
		t.Errorf("Union() = %v", u)
	}
}

func TestRectInset(t *testing.T) {
	r := NewRect(0, 0, 200, 70).Inset(10, 20, 20, 0)
	if r != NewRect(10, 20, 180, 70) {
		t.Errorf("Inset() = %v", r)
	}
}

func TestRectSubtract(t *testing.T) {
	r := NewRect(0, 0, 100, 100)
	tests := []struct {
		name string
		cut  Rect
		want int
		area float64
	}{
		{name: "disjoint", cut: NewRect(200, 200, 300, 300), want: 1, area: 10000},
		{name: "center hole", cut: NewRect(40, 40, 60, 60), want: 4, area: 9600},
		{name: "corner", cut: NewRect(50, 50, 150, 150), want: 2, area: 7500},
		{name: "right strip", cut: NewRect(90, -10, 110, 110), want: 1, area: 9000},
		{name: "covered", cut: NewRect(-1, -1, 101, 101), want: 0, area: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces := r.Subtract(tt.cut)
			if len(pieces) != tt.want {
				t.Fatalf("Subtract() = %v, want %d pieces", pieces, tt.want)
			}
			var area float64
			for _, p := range pieces {
				if p.Intersects(tt.cut) {
					t.Errorf("piece %v overlaps the cut", p)
				}
				area += p.Area()
			}
			if math.Abs(area-tt.area) > 1e-9 {
				t.Errorf("area = %v, want %v", area, tt.area)
			}
		})
	}
}

// ============================================================================
// Matrix Tests
// ============================================================================

func TestMatrixMultiplyOrder(t *testing.T) {
	// scale then translate
	m := Scale(2, 3).Multiply(Translate(10, 20))
	p := m.Transform(Point{1, 1})
	if math.Abs(p.X-12) > 1e-9 || math.Abs(p.Y-23) > 1e-9 {
		t.Errorf("Transform() = %+v, want {12 23}", p)
	}
}

func TestMatrixTransformRect(t *testing.T) {
	// 90 degree rotation maps the unit square onto [-1,0]x[0,1]
	rot := Matrix{0, 1, -1, 0, 0, 0}
	got := rot.TransformRect(NewRect(0, 0, 1, 1))
	want := NewRect(-1, 0, 0, 1)
	if got != want {
		t.Errorf("TransformRect() = %v, want %v", got, want)
	}
	if !Identity().IsIdentity() {
		t.Error("Identity().IsIdentity() = false")
	}
}

func TestMatrixInvert(t *testing.T) {
	m := Matrix{2, 0, 0, -3, 10, 400}
	inv, ok := m.Invert()
	if !ok {
		t.Fatal("Invert() reported a singular matrix")
	}
	p := inv.Transform(m.Transform(Point{7, 11}))
	if math.Abs(p.X-7) > 1e-9 || math.Abs(p.Y-11) > 1e-9 {
		t.Errorf("round trip = %+v", p)
	}
	if _, ok := (Matrix{1, 2, 2, 4, 0, 0}).Invert(); ok {
		t.Error("singular matrix inverted")
	}

	if !m.Rectilinear() || !(Matrix{0, 1, -1, 0, 0, 0}).Rectilinear() {
		t.Error("scale and quarter turn should be rectilinear")
	}
	if (Matrix{1, 0.5, 0, 1, 0, 0}).Rectilinear() {
		t.Error("shear reported rectilinear")
	}
}
