// Package grid draws a three-tier calibration grid over a page. Each tier
// tiles the whole page at a multiple of the base interval and is committed as
// its own style layer, coarser tiers on top.
package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// Multipliers of the base interval, thin to thick
var Multipliers = [3]int{1, 5, 10}

// Spec configures the grid. Tiers are derived from it, never set one by one.
type Spec struct {
	Interval  float64
	LineWidth float64
	// Colors of the thin, medium and thick tiers
	Colors [3]document.Color
}

// DefaultSpec is a 10pt grid in three shades of green
func DefaultSpec() Spec {
	return Spec{
		Interval:  10,
		LineWidth: 0.1,
		Colors: [3]document.Color{
			{R: 0.502, G: 1, B: 0.553},
			{R: 0.008, G: 0.859, B: 0.102},
			{R: 0, G: 0.702, B: 0.075},
		},
	}
}

// Validate rejects specs that cannot tile a page
func (s Spec) Validate() error {
	if s.Interval <= 0 || math.IsNaN(s.Interval) || math.IsInf(s.Interval, 0) {
		return fmt.Errorf("grid interval must be positive: %g", s.Interval)
	}
	if s.LineWidth < 0 {
		return fmt.Errorf("grid line width must not be negative: %g", s.LineWidth)
	}
	return nil
}

// Tier is one pass of the grid
type Tier struct {
	Multiplier int
	Interval   float64
	Style      document.Style
}

// Tiers derives the three passes from interval and line width
func (s Spec) Tiers() []Tier {
	tiers := make([]Tier, len(Multipliers))
	for i, m := range Multipliers {
		tiers[i] = Tier{
			Multiplier: m,
			Interval:   s.Interval * float64(m),
			Style:      document.Stroke(s.LineWidth*float64(m), s.Colors[i]),
		}
	}
	return tiers
}

// Cells tiles a width x height page row by row from the top-left corner with
// cells of multiplier*base. Edges are computed from integer multiples of base
// so every coarse edge equals a fine edge exactly. Cells are clipped at the
// page edge and dropped when the clipped cell has no area.
func Cells(width, height, base float64, multiplier int) []geometry.Rect {
	if base <= 0 || multiplier <= 0 {
		return nil
	}
	edge := func(k int) float64 { return float64(k*multiplier) * base }

	var cells []geometry.Rect
	for row := 0; edge(row) < height; row++ {
		y0, y1 := edge(row), math.Min(edge(row+1), height)
		for col := 0; edge(col) < width; col++ {
			x0, x1 := edge(col), math.Min(edge(col+1), width)
			if x1 > x0 && y1 > y0 {
				cells = append(cells, geometry.NewRect(x0, y0, x1, y1))
			}
		}
	}
	return cells
}

// Result counts the cells drawn per tier
type Result struct {
	Cells [3]int
}

// Render draws the grid over the whole (unrotated) page
func Render(page document.Page, spec Spec) (Result, error) {
	var res Result
	if err := spec.Validate(); err != nil {
		return res, err
	}
	w, h := page.Size()
	if w <= 0 || h <= 0 {
		return res, errors.New("page has no area")
	}

	shape := page.NewShape()
	for i, tier := range spec.Tiers() {
		cells := Cells(w, h, spec.Interval, tier.Multiplier)
		for _, c := range cells {
			shape.DrawRect(c)
		}
		shape.Finish(tier.Style)
		res.Cells[i] = len(cells)
	}
	if err := shape.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit grid: %w", err)
	}

	slog.Debug("Drew grid",
		"page", page.Index()+1,
		"width", w,
		"height", h,
		"thin", res.Cells[0],
		"medium", res.Cells[1],
		"thick", res.Cells[2])
	return res, nil
}
