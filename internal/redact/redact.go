// Package redact removes page content under masking rectangles and paints
// the rectangles opaque. Removal is destructive: nothing under a mask
// survives in the output document.
package redact

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// Options control how masks are painted
type Options struct {
	Fill document.Color
}

// DefaultOptions paints masks black
func DefaultOptions() Options {
	return Options{Fill: document.Black}
}

// Result counts masks per outcome
type Result struct {
	Pages   int
	Applied int
	Skipped int
}

func (r *Result) add(o Result) {
	r.Pages += o.Pages
	r.Applied += o.Applied
	r.Skipped += o.Skipped
}

// Partition splits masks into proper rectangles and degenerate ones. Invalid
// masks are never coerced into valid ones.
func Partition(masks []geometry.Rect) (valid, invalid []geometry.Rect) {
	for _, m := range masks {
		if m.Valid() {
			valid = append(valid, m)
		} else {
			invalid = append(invalid, m)
		}
	}
	return valid, invalid
}

// Page redacts a single page. Invalid masks are logged and skipped; when no
// mask is valid the page content is left untouched.
func Page(page document.Page, masks []geometry.Rect, opts Options) (Result, error) {
	res := Result{Pages: 1}

	if page.Rotation() != 0 {
		if err := page.NormalizeRotation(); err != nil {
			return res, fmt.Errorf("failed to normalize rotation of page %d: %w", page.Index()+1, err)
		}
	}

	valid, invalid := Partition(masks)
	for _, m := range invalid {
		slog.Warn("Invalid mask rectangle, skipping", "page", page.Index()+1, "mask", m.String())
	}
	res.Skipped = len(invalid)

	if len(valid) == 0 {
		return res, nil
	}
	for _, m := range valid {
		if err := page.AddRedactionMask(m, opts.Fill); err != nil {
			return res, fmt.Errorf("failed to add mask %v on page %d: %w", m, page.Index()+1, err)
		}
	}
	if err := page.ApplyRedactions(); err != nil {
		return res, fmt.Errorf("failed to apply redactions on page %d: %w", page.Index()+1, err)
	}
	res.Applied = len(valid)
	return res, nil
}

// Document redacts every page of doc with the same masks
func Document(doc document.Document, masks []geometry.Rect, opts Options) (Result, error) {
	var total Result
	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			return total, err
		}
		res, err := Page(page, masks, opts)
		total.add(res)
		if err != nil {
			return total, err
		}
		slog.Debug("Redacted page", "page", i+1, "applied", res.Applied, "skipped", res.Skipped)
	}
	return total, nil
}
