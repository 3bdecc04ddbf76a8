package toolcmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/config"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/grid"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/redact"
)

var errNoMasks = errors.New("no mask rectangles: use --rect or mask.rects in the config file")

// parseRect reads "x0,y0,x1,y1"
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("invalid rectangle %q: want x0,y0,x1,y1", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid rectangle %q: %w", s, err)
		}
		v[i] = f
	}
	return geometry.NewRect(v[0], v[1], v[2], v[3]), nil
}

func executeMask(ctx context.Context, cfg *config.Config, f ioFlags, rects []string, fill string) error {
	masks := cfg.Mask.Masks()
	if len(rects) > 0 {
		masks = masks[:0]
		for _, s := range rects {
			r, err := parseRect(s)
			if err != nil {
				return err
			}
			masks = append(masks, r)
		}
	}
	if len(masks) == 0 {
		return errNoMasks
	}

	opts := cfg.Mask.Options(redact.DefaultOptions())
	if fill != "" {
		c, err := document.ParseColor(fill)
		if err != nil {
			return err
		}
		opts.Fill = c
	}

	tk := newToolkit(cfg)
	return execute(ctx, "mask", f, func(input, output string) error {
		return tk.Mask(input, output, masks, opts, f.overwrite)
	})
}

func executeGrid(ctx context.Context, cfg *config.Config, f ioFlags, spec grid.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	tk := newToolkit(cfg)
	return execute(ctx, "grid", f, func(input, output string) error {
		return tk.Grid(input, output, spec, f.overwrite)
	})
}
