// Package annotate draws the stamp of an operation (header label, page
// number, separator lines and frame border) inside the regions derived by the
// layout engine.
package annotate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/layout"
)

// Mode selects which bands a Renderer stamps
type Mode int

const (
	// ModeHeader stamps the header band only
	ModeHeader Mode = iota
	// ModePageNumber stamps the footer band only
	ModePageNumber
	// ModeCombined stamps header and footer bands together
	ModeCombined
)

func (m Mode) String() string {
	switch m {
	case ModeHeader:
		return "header"
	case ModePageNumber:
		return "pagenum"
	case ModeCombined:
		return "header+pagenum"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// headerInset is the padding multiplier applied to the top and trailing edge
// of the header text box. The combined stamp keeps text further from the trim.
func (m Mode) headerInset() float64 {
	if m == ModeCombined {
		return 3
	}
	return 2
}

func (m Mode) header() bool { return m != ModePageNumber }
func (m Mode) footer() bool { return m != ModeHeader }

// Stamp is the per-page input of a Renderer
type Stamp struct {
	Label string
	Index int
	Total int
}

// Renderer draws one operation's annotations. It holds a copy of the layout
// configuration and never modifies it.
type Renderer struct {
	Config layout.Config
	Mode   Mode
}

// Render draws every annotation of the mode onto page. Text that does not
// fit its box is logged and skipped; any other drawing failure is returned.
func (r Renderer) Render(page document.Page, regions layout.Regions, s Stamp) error {
	cfg := r.Config

	if r.Mode.footer() {
		if cfg.WritePageNumber {
			text := PageNumber(s.Index, s.Total, cfg.ShowTotalPages)
			if err := r.insertText(page, FooterTextBox(regions.Footer, cfg.FooterPadding), text, cfg.FooterFont, document.AlignCenter); err != nil {
				return err
			}
		}
		if cfg.DrawFooterLine {
			p0, p1 := FooterLine(regions.Footer, cfg.FooterPadding)
			if err := page.DrawLine(p0, p1, cfg.FooterLine); err != nil {
				return fmt.Errorf("failed to draw footer line: %w", err)
			}
		}
	}

	if r.Mode != ModePageNumber && regions.HasFrame() {
		frame := regions
		if r.Mode == ModeHeader {
			frame = regions.InsetBorder(cfg.Frame.Width)
		}
		if err := Frame(page, frame.Frame, cfg.Frame); err != nil {
			return err
		}
	}

	if !r.Mode.header() {
		return nil
	}
	if cfg.DrawHeaderLine {
		p0, p1 := HeaderLine(regions.Header, cfg.HeaderPadding)
		if err := page.DrawLine(p0, p1, cfg.HeaderLine); err != nil {
			return fmt.Errorf("failed to draw header line: %w", err)
		}
	}
	if cfg.StampOnlyFirstPage && s.Index > 0 {
		return nil
	}
	box := HeaderTextBox(regions.Header, cfg.HeaderPadding, r.Mode.headerInset())
	return r.insertText(page, box, s.Label, cfg.HeaderFont, document.AlignRight)
}

func (r Renderer) insertText(page document.Page, box geometry.Rect, text string, font document.Font, align document.Align) error {
	err := page.InsertTextBox(box, text, font, align)
	if errors.Is(err, document.ErrTextOverflow) {
		slog.Warn("Text does not fit its box, skipping",
			"page", page.Index()+1,
			"text", text,
			"box", box.String(),
			"font_size", font.Size)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert text %q: %w", text, err)
	}
	return nil
}

// HeaderTextBox insets the header band by p on the leading edge and by k*p
// on the top and trailing edge.
func HeaderTextBox(header geometry.Rect, p, k float64) geometry.Rect {
	return geometry.NewRect(header.X0+p, header.Y0+k*p, header.X1-k*p, header.Y1)
}

// FooterTextBox insets the footer band by p on every side
func FooterTextBox(footer geometry.Rect, p float64) geometry.Rect {
	return footer.Inset(p, p, p, p)
}

// HeaderLine is the separator at the inner edge of the header band
func HeaderLine(header geometry.Rect, p float64) (geometry.Point, geometry.Point) {
	y := header.Y1 - p
	return geometry.Point{X: header.X0 + p, Y: y}, geometry.Point{X: header.X1 - p, Y: y}
}

// FooterLine is the separator at the inner edge of the footer band
func FooterLine(footer geometry.Rect, p float64) (geometry.Point, geometry.Point) {
	y := footer.Y0 + p
	return geometry.Point{X: footer.X0 + p, Y: y}, geometry.Point{X: footer.X1 - p, Y: y}
}

// Frame strokes a border around rect
func Frame(page document.Page, rect geometry.Rect, style document.Style) error {
	if !rect.Valid() {
		return nil
	}
	style.Filled = false

	shape := page.NewShape()
	shape.DrawRect(rect)
	shape.Finish(style)
	if err := shape.Commit(); err != nil {
		return fmt.Errorf("failed to draw frame: %w", err)
	}
	return nil
}

// PageNumber formats a 0-based page index as 1-based text
func PageNumber(index, total int, showTotal bool) string {
	if showTotal {
		return fmt.Sprintf("%d / %d", index+1, total)
	}
	return fmt.Sprintf("%d", index+1)
}
