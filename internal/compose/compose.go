// Package compose places the content of a source page into a target region
// of a destination page without rasterizing it.
package compose

import (
	"fmt"
	"math"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// Placement is where a source page ends up inside a target region
type Placement struct {
	Rect  geometry.Rect
	Scale float64
}

// Fit scales a srcWidth x srcHeight page into target by the largest factor
// that keeps both dimensions within bounds, centered on the axis with slack.
func Fit(srcWidth, srcHeight float64, target geometry.Rect) (Placement, error) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return Placement{}, fmt.Errorf("invalid source size %gx%g", srcWidth, srcHeight)
	}
	if !target.Valid() {
		return Placement{}, fmt.Errorf("invalid target region %v", target)
	}

	scale := math.Min(target.Width()/srcWidth, target.Height()/srcHeight)
	w := srcWidth * scale
	h := srcHeight * scale
	x := target.X0 + (target.Width()-w)/2
	y := target.Y0 + (target.Height()-h)/2

	return Placement{Rect: geometry.FromOriginSize(x, y, w, h), Scale: scale}, nil
}

// Place draws page srcIndex of src into target on dst
func Place(dst document.Page, target geometry.Rect, src document.Document, srcIndex int) (Placement, error) {
	srcPage, err := src.Page(srcIndex)
	if err != nil {
		return Placement{}, err
	}
	w, h := srcPage.Size()

	placement, err := Fit(w, h, target)
	if err != nil {
		return Placement{}, err
	}
	if err := dst.ShowSourcePage(placement.Rect, src, srcIndex, true); err != nil {
		return Placement{}, fmt.Errorf("failed to embed page %d: %w", srcIndex+1, err)
	}
	return placement, nil
}
