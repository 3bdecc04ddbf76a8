// Package toolkit exposes the document operations: masking, grid overlay,
// header and page number stamping, concatenation and inspection. Every
// operation reads one input and writes one new output; inputs are never
// modified in place.
package toolkit

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/grid"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/redact"
)

// Toolkit runs operations against one document backend
type Toolkit struct {
	Opener document.Opener
	Save   document.SaveOptions
}

// New creates a toolkit that compacts its output
func New(opener document.Opener) *Toolkit {
	return &Toolkit{
		Opener: opener,
		Save:   document.SaveOptions{Compact: true},
	}
}

func (t *Toolkit) save(doc document.Document, output string) error {
	if err := doc.Save(output, t.Save); err != nil {
		return fmt.Errorf("%w %s: %w", document.ErrSave, output, err)
	}
	return nil
}

func openFailed(op, input string, err error) error {
	slog.Error("Failed to open document", "op", op, "input", input, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

// Mask redacts every page of input under masks and writes output. Invalid
// masks are skipped; a page whose masks are all invalid is written as is.
func (t *Toolkit) Mask(input, output string, masks []geometry.Rect, opts redact.Options, overwrite bool) error {
	const op = "mask"
	if err := guard.Files(op, input, output, overwrite); err != nil {
		return err
	}

	var src document.Session
	defer src.Close()

	doc, err := src.Open(t.Opener, input)
	if err != nil {
		return openFailed(op, input, err)
	}
	slog.Debug("Masking document", "input", input, "pages", doc.PageCount(), "masks", len(masks))

	res, err := redact.Document(doc, masks, opts)
	if err != nil {
		return fmt.Errorf("failed to redact %s: %w", input, err)
	}
	if err := t.save(doc, output); err != nil {
		return err
	}

	slog.Info("Masked document",
		"input", input,
		"output", output,
		"pages", res.Pages,
		"applied", res.Applied,
		"skipped", res.Skipped)
	return nil
}

// Grid draws the calibration grid over every page of input
func (t *Toolkit) Grid(input, output string, spec grid.Spec, overwrite bool) error {
	const op = "grid"
	if err := guard.Files(op, input, output, overwrite); err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	var src document.Session
	defer src.Close()

	doc, err := src.Open(t.Opener, input)
	if err != nil {
		return openFailed(op, input, err)
	}

	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			return err
		}
		if page.Rotation() != 0 {
			if err := page.NormalizeRotation(); err != nil {
				return fmt.Errorf("failed to normalize rotation of page %d: %w", i+1, err)
			}
		}
		if _, err := grid.Render(page, spec); err != nil {
			return fmt.Errorf("failed to draw grid on page %d: %w", i+1, err)
		}
	}
	if err := t.save(doc, output); err != nil {
		return err
	}

	slog.Info("Drew grid", "input", input, "output", output, "pages", doc.PageCount(), "interval", spec.Interval)
	return nil
}
