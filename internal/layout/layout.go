// Package layout derives the named regions of a stamped page (header,
// footer, content and frame) from the page size and a Config.
package layout

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// ErrRegionCollapse is returned when the content region has no positive
// extent, e.g. when header and footer together are taller than the page.
var ErrRegionCollapse = errors.New("content region collapsed")

// Config is the immutable layout configuration of one operation call.
// It is passed by value; components never modify it.
type Config struct {
	HeaderHeight  float64
	FooterHeight  float64
	HeaderPadding float64
	FooterPadding float64

	// ResizeOriginal shrinks the original content into the space left
	// between header and footer. Otherwise header and footer are drawn over
	// the unscaled page.
	ResizeOriginal     bool
	StampOnlyFirstPage bool

	DrawHeaderLine bool
	DrawFooterLine bool
	DrawFrame      bool
	HeaderLine     document.Style
	FooterLine     document.Style
	Frame          document.Style

	Delimiter  Delimiter
	HeaderFont document.Font
	FooterFont document.Font

	WritePageNumber bool
	ShowTotalPages  bool

	// StrictRegions turns a region collapse into a failure of the file
	// instead of a verbatim copy of the page.
	StrictRegions bool
}

// DefaultConfig mirrors the defaults of the combined header and page number
// stamp.
func DefaultConfig() Config {
	return Config{
		HeaderHeight:    70,
		FooterHeight:    30,
		HeaderPadding:   10,
		FooterPadding:   3,
		ResizeOriginal:  true,
		HeaderLine:      document.Stroke(0.5, document.Black),
		FooterLine:      document.Stroke(0.5, document.Black),
		Frame:           document.Stroke(0.5, document.Black),
		Delimiter:       DelimiterSpace,
		HeaderFont:      document.Font{Name: "goregular", Size: 20, Color: document.Red},
		FooterFont:      document.Font{Name: "goregular", Size: 8, Color: document.Black},
		WritePageNumber: true,
		DrawFrame:       true,
	}
}

// HeaderDefaults is the configuration of the header-only stamp: no footer
// band, content drawn unscaled underneath.
func HeaderDefaults() Config {
	c := DefaultConfig()
	c.FooterHeight = 0
	c.FooterPadding = 0
	c.ResizeOriginal = false
	c.DrawFrame = false
	c.WritePageNumber = false
	return c
}

// PageNumberDefaults is the configuration of the page-number-only stamp
func PageNumberDefaults() Config {
	c := DefaultConfig()
	c.HeaderHeight = 0
	c.HeaderPadding = 0
	c.FooterPadding = 5
	c.ResizeOriginal = false
	c.DrawFrame = false
	return c
}

// Validate rejects configurations no page could satisfy
func (c Config) Validate() error {
	switch {
	case c.HeaderHeight < 0:
		return fmt.Errorf("header height must not be negative: %g", c.HeaderHeight)
	case c.FooterHeight < 0:
		return fmt.Errorf("footer height must not be negative: %g", c.FooterHeight)
	case c.HeaderPadding < 0 || c.FooterPadding < 0:
		return fmt.Errorf("padding must not be negative")
	}
	if _, ok := delimiterRules[c.Delimiter]; !ok {
		return fmt.Errorf("unknown delimiter %d", c.Delimiter)
	}
	return nil
}

// Regions are the named rectangles of one page
type Regions struct {
	Page    geometry.Rect
	Header  geometry.Rect
	Footer  geometry.Rect
	Content geometry.Rect
	// Frame is the zero Rect unless ResizeOriginal and DrawFrame are set
	Frame geometry.Rect
}

// HasFrame reports whether a frame region was derived
func (r Regions) HasFrame() bool {
	return r.Frame.Valid()
}

// Compute derives the regions of a page of the given size. The page must
// already be unrotated. On ErrRegionCollapse the returned Regions still
// carry the header and footer so callers can log them.
func Compute(width, height float64, cfg Config) (Regions, error) {
	r := Regions{
		Page:   geometry.NewRect(0, 0, width, height),
		Header: geometry.NewRect(0, 0, width, cfg.HeaderHeight),
		Footer: geometry.NewRect(0, height-cfg.FooterHeight, width, height),
	}

	if cfg.ResizeOriginal {
		r.Content = geometry.NewRect(0, cfg.HeaderHeight, width, height-cfg.FooterHeight)
	} else {
		r.Content = r.Page
	}

	if r.Content.Height() <= 0 || r.Content.Width() <= 0 {
		return r, fmt.Errorf("%w: page %gx%g, header %g, footer %g",
			ErrRegionCollapse, width, height, cfg.HeaderHeight, cfg.FooterHeight)
	}

	if cfg.ResizeOriginal && cfg.DrawFrame {
		r.Frame = FrameRect(r.Content, width, height, cfg.HeaderHeight)
	}
	return r, nil
}

// FrameRect is the area the scaled original occupies inside content:
// horizontally centered, full content height.
func FrameRect(content geometry.Rect, pageWidth, pageHeight, headerHeight float64) geometry.Rect {
	ratio := content.Height() / pageHeight
	shownWidth := pageWidth * ratio
	return geometry.FromOriginSize(
		(content.Width()-shownWidth)/2,
		headerHeight,
		shownWidth,
		content.Height(),
	)
}

// InsetBorder trims the frame height by the border width, used when the
// border is drawn flush inside the content area.
func (r Regions) InsetBorder(borderWidth float64) Regions {
	if r.HasFrame() {
		r.Frame.Y1 -= borderWidth
	}
	return r
}
