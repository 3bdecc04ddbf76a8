package toolkit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/annotate"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/compose"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/layout"
)

// Header stamps the file name label into a header band on every page.
// The footer band and page numbers of cfg are ignored.
func (t *Toolkit) Header(input, output string, cfg layout.Config, overwrite bool) error {
	cfg.FooterHeight = 0
	cfg.FooterPadding = 0
	cfg.WritePageNumber = false
	return t.stamp("header", annotate.ModeHeader, input, output, cfg, overwrite)
}

// PageNumbers stamps "n" or "n / total" into a footer band on every page
func (t *Toolkit) PageNumbers(input, output string, cfg layout.Config, overwrite bool) error {
	cfg.HeaderHeight = 0
	cfg.HeaderPadding = 0
	cfg.WritePageNumber = true
	cfg.DrawFrame = false
	return t.stamp("pagenum", annotate.ModePageNumber, input, output, cfg, overwrite)
}

// HeaderAndPageNumbers stamps header label and page numbers together
func (t *Toolkit) HeaderAndPageNumbers(input, output string, cfg layout.Config, overwrite bool) error {
	return t.stamp("stamp", annotate.ModeCombined, input, output, cfg, overwrite)
}

// HeaderAndFrame stamps the header label and frames the scaled original;
// the footer band is kept empty.
func (t *Toolkit) HeaderAndFrame(input, output string, cfg layout.Config, overwrite bool) error {
	cfg.WritePageNumber = false
	cfg.DrawFrame = true
	cfg.ResizeOriginal = true
	return t.stamp("frame", annotate.ModeCombined, input, output, cfg, overwrite)
}

// stamp composes every source page onto a fresh page of a new document and
// draws the annotations of mode over it.
func (t *Toolkit) stamp(op string, mode annotate.Mode, input, output string, cfg layout.Config, overwrite bool) error {
	if err := guard.Files(op, input, output, overwrite); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: invalid layout: %w", op, err)
	}

	var src, dst document.Session
	defer src.Close()
	defer dst.Close()

	srcDoc, err := src.Open(t.Opener, input)
	if err != nil {
		return openFailed(op, input, err)
	}
	dstDoc, err := dst.Create(t.Opener)
	if err != nil {
		return fmt.Errorf("failed to create output document: %w", err)
	}

	renderer := annotate.Renderer{Config: cfg, Mode: mode}
	label := layout.HeaderLabel(input, cfg.Delimiter)
	total := srcDoc.PageCount()
	copied := 0

	for i := 0; i < total; i++ {
		collapsed, err := t.stampPage(srcDoc, dstDoc, i, renderer, annotate.Stamp{Label: label, Index: i, Total: total})
		if err != nil {
			return fmt.Errorf("%s: page %d: %w", op, i+1, err)
		}
		if collapsed {
			copied++
		}
	}

	if err := t.save(dstDoc, output); err != nil {
		return err
	}

	slog.Info("Stamped document",
		"op", op,
		"input", input,
		"output", output,
		"label", label,
		"pages", total,
		"copied_verbatim", copied)
	return nil
}

// stampPage reports whether the page was copied verbatim because its
// content region collapsed.
func (t *Toolkit) stampPage(src, dst document.Document, i int, r annotate.Renderer, s annotate.Stamp) (bool, error) {
	page, err := src.Page(i)
	if err != nil {
		return false, err
	}
	if page.Rotation() != 0 {
		if err := page.NormalizeRotation(); err != nil {
			return false, fmt.Errorf("failed to normalize rotation: %w", err)
		}
	}

	w, h := page.Size()
	regions, err := layout.Compute(w, h, r.Config)
	if errors.Is(err, layout.ErrRegionCollapse) {
		if r.Config.StrictRegions {
			return false, err
		}
		slog.Warn("Content region collapsed, copying page verbatim",
			"page", i+1,
			"width", w,
			"height", h,
			"header_height", r.Config.HeaderHeight,
			"footer_height", r.Config.FooterHeight)
		if err := dst.InsertPages(src, i, i); err != nil {
			return false, fmt.Errorf("failed to copy page: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	out, err := dst.NewPage(w, h)
	if err != nil {
		return false, fmt.Errorf("failed to create page: %w", err)
	}
	if _, err := compose.Place(out, regions.Content, src, i); err != nil {
		return false, err
	}
	if err := r.Render(out, regions, s); err != nil {
		return false, err
	}
	return false, nil
}
