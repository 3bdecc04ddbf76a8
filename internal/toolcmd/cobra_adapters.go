package toolcmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/grid"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/report"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/toolkit"
)

// Commands returns every toolkit command, in help order
func Commands() []*cobra.Command {
	return []*cobra.Command{
		NewMaskCmd(),
		NewGridCmd(),
		NewHeaderCmd(),
		NewPageNumCmd(),
		NewStampCmd(),
		NewFrameCmd(),
		NewConcatCmd(),
		NewInfoCmd(),
		NewReportCmd(),
	}
}

// NewMaskCmd creates the mask command for redacting rectangles on every page
func NewMaskCmd() *cobra.Command {
	var f ioFlags
	var rects []string
	var fill string

	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Redact rectangular areas on every page",
		Long: `Redact the same rectangles on every page of a PDF.

Text, images and vector graphics under a rectangle are removed from the page
content, then the rectangle is painted with the fill color. Rectangles are
given in points from the top-left corner of the page as x0,y0,x1,y1.
Rectangles without area are skipped with a warning.`,
		Example: `  # Black out the top-left corner of every page
  pdftoolkit mask -i scan.pdf -o scan_masked.pdf --rect 0,0,200,80

  # Mask every PDF of a folder with the rectangles of a config file
  pdftoolkit mask -c masks.yaml -i ./in -o ./out --report ./out/run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeMask(cmd.Context(), configFrom(cmd), f, rects, fill)
		},
	}

	f.bind(cmd)
	cmd.Flags().StringArrayVar(&rects, "rect", nil, "Mask rectangle x0,y0,x1,y1 in points (repeatable, replaces mask.rects of the config file)")
	cmd.Flags().StringVar(&fill, "fill", "", "Fill color of the masks as #RRGGBB (default black)")
	return cmd
}

// NewGridCmd creates the grid command for drawing a calibration grid
func NewGridCmd() *cobra.Command {
	var f ioFlags
	var interval, lineWidth float64

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Draw a three-tier measuring grid over every page",
		Long: `Draw a measuring grid over every page of a PDF.

The grid has three tiers: thin lines every interval, medium lines every five
intervals and thick lines every ten intervals, each in its own color. It is
meant for finding the coordinates of mask rectangles.`,
		Example: `  # 10pt grid
  pdftoolkit grid -i form.pdf -o form_grid.pdf

  # Coarser grid with thicker lines
  pdftoolkit grid -i form.pdf -o form_grid.pdf --interval 25 --line-width 0.3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			spec := cfg.Grid.Apply(grid.DefaultSpec())
			if cmd.Flags().Changed("interval") {
				spec.Interval = interval
			}
			if cmd.Flags().Changed("line-width") {
				spec.LineWidth = lineWidth
			}
			return executeGrid(cmd.Context(), cfg, f, spec)
		},
	}

	f.bind(cmd)
	cmd.Flags().Float64Var(&interval, "interval", grid.DefaultSpec().Interval, "Distance between thin grid lines in points")
	cmd.Flags().Float64Var(&lineWidth, "line-width", grid.DefaultSpec().LineWidth, "Grid line width in points")
	return cmd
}

func newStampCmd(m stampMode, short, long, example string) *cobra.Command {
	var f ioFlags
	var s stampFlags

	cmd := &cobra.Command{
		Use:     string(m),
		Short:   short,
		Long:    long,
		Example: example,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			lc, err := s.apply(cmd, cfg.Layout.Apply(m.defaults()))
			if err != nil {
				return err
			}
			return executeStamp(cmd.Context(), cfg, f, m, lc)
		},
	}

	f.bind(cmd)
	s.bind(cmd, m)
	return cmd
}

// NewHeaderCmd creates the header command for stamping the file name label
func NewHeaderCmd() *cobra.Command {
	return newStampCmd(modeHeader,
		"Stamp the file name into a header band",
		`Stamp the file name, without extension and cut at the delimiter, into a
header band at the top of every page. The page content is drawn unscaled
underneath; with --resize it is shrunk below the band, and --frame draws a
border around it.`,
		`  # Label with the part of the name before the first underscore
  pdftoolkit header -i A123_scan.pdf -o out/A123_scan.pdf --delimiter underscore

  # Shrink and frame the original below the label
  pdftoolkit header -i ./in -o ./out --resize --frame`)
}

// NewPageNumCmd creates the pagenum command for numbering pages
func NewPageNumCmd() *cobra.Command {
	return newStampCmd(modePageNum,
		"Write page numbers into a footer band",
		`Write "n" or "n / total" centered into a footer band at the bottom of
every page. With --resize the page is shrunk above the band instead of being
drawn over.`,
		`  pdftoolkit pagenum -i report.pdf -o report_numbered.pdf --show-total

  # Number every PDF of a folder
  pdftoolkit pagenum -i ./in -o ./out`)
}

// NewStampCmd creates the stamp command for header and page numbers together
func NewStampCmd() *cobra.Command {
	return newStampCmd(modeStamp,
		"Stamp header label and page numbers",
		`Shrink every page into the space between a header band and a footer band,
stamp the file name label into the header and the page number into the footer,
and frame the original content.

A page too small for both bands is copied unchanged and a warning is logged;
with --strict the file fails instead.`,
		`  pdftoolkit stamp -i scan.pdf -o out/scan.pdf --show-total --header-line`)
}

// NewFrameCmd creates the frame command for header label and frame
func NewFrameCmd() *cobra.Command {
	return newStampCmd(modeFrame,
		"Stamp header label and frame the original content",
		`Shrink every page below a header band, stamp the file name label into the
header and draw a frame around the original content. No page numbers are
written.`,
		`  pdftoolkit frame -i ./in -o ./out --delimiter hyphen`)
}

// NewConcatCmd creates the concat command for merging a folder of PDFs
func NewConcatCmd() *cobra.Command {
	var inputDir, output string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "concat",
		Short: "Concatenate every PDF of a folder into one document",
		Long: `Concatenate every PDF of a folder into one document.

Files are taken in natural order (file2 before file10), each keeping its page
order. Files that cannot be opened are skipped with a warning. The output file
is never read back when it lives in the input folder.`,
		Example: `  pdftoolkit concat -i ./chapters -o book.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeConcat(cmd.OutOrStdout(), configFrom(cmd), inputDir, output, overwrite)
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Input directory (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF file (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing output file")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// NewInfoCmd creates the info command for inspecting documents
func NewInfoCmd() *cobra.Command {
	var input, unit, format string

	unitNames := make([]string, len(toolkit.Units))
	for i, u := range toolkit.Units {
		unitNames[i] = string(u)
	}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print page count, page size and rotation",
		Long: `Print the page count of a PDF together with the size and rotation of its
first page. Given a directory, every PDF in it is described.`,
		Example: `  pdftoolkit info -i scan.pdf
  pdftoolkit info -i ./in --unit mm --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "json" && unit == "" {
				unit = string(toolkit.Point)
			}
			return executeInfo(cmd.OutOrStdout(), configFrom(cmd), input, unit, format)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input PDF file or directory (required)")
	cmd.Flags().StringVar(&unit, "unit", "", "Size unit: "+strings.Join(unitNames, ", ")+" (default all)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// NewReportCmd creates the report command for printing a saved batch report
func NewReportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Print a saved batch report",
		Long: `Print a batch report written with --report. The report format follows the
file extension: .yaml, .json or .parquet.`,
		Example: `  pdftoolkit report ./out/run.yaml
  pdftoolkit report ./out/run.parquet --format csv > run.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(cmd.OutOrStdout(), args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: "+strings.Join(report.Formats, ", "))
	return cmd
}
