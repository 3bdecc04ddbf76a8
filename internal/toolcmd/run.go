package toolcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/batch"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/config"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/pdfdoc"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/report"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/toolkit"
)

// ErrBatchFailures is returned when a batch finished with failed files
var ErrBatchFailures = errors.New("some files failed")

// ioFlags are the input/output flags of the per-file commands
type ioFlags struct {
	input      string
	output     string
	overwrite  bool
	reportPath string
	ext        string
}

func (f *ioFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Input PDF file, or a directory to process every PDF in it (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output PDF file, or output directory when --input is a directory (required)")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Replace existing output files")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "Directory mode: write the run report to this file (.yaml, .json or .parquet)")
	cmd.Flags().StringVar(&f.ext, "ext", batch.DefaultExt, "Directory mode: extension of the files to process")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
}

func (f *ioFlags) isDir() bool {
	info, err := os.Stat(f.input)
	return err == nil && info.IsDir()
}

func newToolkit(cfg *config.Config) *toolkit.Toolkit {
	tk := toolkit.New(pdfdoc.NewOpener(cfg.FontDir))
	tk.Save.Compact = cfg.CompactOutput()
	return tk
}

// execute runs op on one file, or through batch.Run when the input is a
// directory.
func execute(ctx context.Context, name string, f ioFlags, op batch.Op) error {
	if !f.isDir() {
		return op(f.input, f.output)
	}

	if f.reportPath != "" {
		if err := guard.Output(name, f.reportPath, f.overwrite); err != nil {
			return err
		}
	}

	rep, err := batch.Run(ctx, name, f.input, f.output, f.ext, op)
	if rep != nil && f.reportPath != "" {
		if saveErr := report.Save(f.reportPath, rep); saveErr != nil {
			slog.Error("Failed to save report", "path", f.reportPath, "error", saveErr)
			if err == nil {
				err = saveErr
			}
		}
	}
	if err != nil {
		return err
	}

	if rep.Failed() > 0 {
		return fmt.Errorf("%s: %d of %d: %w", name, rep.Failed(), len(rep.Results), ErrBatchFailures)
	}
	return nil
}
