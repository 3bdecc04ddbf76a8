package toolcmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/config"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/layout"
)

// stampMode names one of the stamping commands
type stampMode string

const (
	modeHeader  stampMode = "header"
	modePageNum stampMode = "pagenum"
	modeStamp   stampMode = "stamp"
	modeFrame   stampMode = "frame"
)

// defaults returns the layout a mode starts from before config and flags
func (m stampMode) defaults() layout.Config {
	switch m {
	case modeHeader:
		return layout.HeaderDefaults()
	case modePageNum:
		return layout.PageNumberDefaults()
	}
	return layout.DefaultConfig()
}

func (m stampMode) header() bool { return m != modePageNum }
func (m stampMode) footer() bool { return m != modeHeader }

// stampFlags override single layout values from the command line
type stampFlags struct {
	delimiter     string
	headerHeight  float64
	footerHeight  float64
	headerLine    bool
	footerLine    bool
	showTotal     bool
	firstPageOnly bool
	resize        bool
	noResize      bool
	frame         bool
	strict        bool
}

func (s *stampFlags) bind(cmd *cobra.Command, m stampMode) {
	fs := cmd.Flags()
	if m.header() {
		fs.StringVar(&s.delimiter, "delimiter", "", "Cut the header label at this delimiter (none, space, colon, underscore, ...)")
		fs.Float64Var(&s.headerHeight, "header-height", 0, "Header band height in points")
		fs.BoolVar(&s.headerLine, "header-line", false, "Draw a line under the header")
		fs.BoolVar(&s.firstPageOnly, "first-page-only", false, "Stamp only the first page")
	}
	if m.footer() {
		fs.Float64Var(&s.footerHeight, "footer-height", 0, "Footer band height in points")
		fs.BoolVar(&s.footerLine, "footer-line", false, "Draw a line above the footer")
	}
	if m == modePageNum || m == modeStamp {
		fs.BoolVar(&s.showTotal, "show-total", false, "Write \"n / total\" instead of \"n\"")
	}
	if m == modeHeader || m == modePageNum {
		fs.BoolVar(&s.resize, "resize", false, "Shrink the page into the space left by the bands instead of drawing over it")
	}
	if m == modeHeader {
		fs.BoolVar(&s.frame, "frame", false, "Frame the shrunk original content (needs --resize)")
	}
	if m == modeStamp || m == modeFrame {
		fs.BoolVar(&s.noResize, "no-resize", false, "Draw bands over the unscaled page instead of shrinking it")
		fs.BoolVar(&s.strict, "strict", false, "Fail a file whose content region collapses instead of copying the page as is")
	}
}

// apply overrides base with every flag given on the command line
func (s *stampFlags) apply(cmd *cobra.Command, base layout.Config) (layout.Config, error) {
	fs := cmd.Flags()
	if fs.Changed("delimiter") {
		d, err := layout.ParseDelimiter(s.delimiter)
		if err != nil {
			return base, err
		}
		base.Delimiter = d
	}
	if fs.Changed("header-height") {
		base.HeaderHeight = s.headerHeight
	}
	if fs.Changed("footer-height") {
		base.FooterHeight = s.footerHeight
	}
	if fs.Changed("header-line") {
		base.DrawHeaderLine = s.headerLine
	}
	if fs.Changed("footer-line") {
		base.DrawFooterLine = s.footerLine
	}
	if fs.Changed("show-total") {
		base.ShowTotalPages = s.showTotal
	}
	if fs.Changed("first-page-only") {
		base.StampOnlyFirstPage = s.firstPageOnly
	}
	if fs.Changed("resize") {
		base.ResizeOriginal = s.resize
	}
	if fs.Changed("no-resize") {
		base.ResizeOriginal = !s.noResize
	}
	if fs.Changed("frame") {
		base.DrawFrame = s.frame
	}
	if fs.Changed("strict") {
		base.StrictRegions = s.strict
	}
	return base, base.Validate()
}

func executeStamp(ctx context.Context, cfg *config.Config, f ioFlags, m stampMode, lc layout.Config) error {
	tk := newToolkit(cfg)

	var run func(input, output string, cfg layout.Config, overwrite bool) error
	switch m {
	case modeHeader:
		run = tk.Header
	case modePageNum:
		run = tk.PageNumbers
	case modeStamp:
		run = tk.HeaderAndPageNumbers
	case modeFrame:
		run = tk.HeaderAndFrame
	default:
		return fmt.Errorf("unknown stamp mode: %s", m)
	}

	return execute(ctx, string(m), f, func(input, output string) error {
		return run(input, output, lc, f.overwrite)
	})
}
