package toolcmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/config"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/report"
)

func executeConcat(w io.Writer, cfg *config.Config, inputDir, output string, overwrite bool) error {
	tk := newToolkit(cfg)
	res, err := tk.Concat(inputDir, output, overwrite)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote %s: %d pages from %d files\n", output, res.Pages, len(res.Files))
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "  skipped: %s\n", s)
	}
	return nil
}

func executeReport(w io.Writer, path, format string) error {
	rep, err := report.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	return report.Print(w, rep, format)
}
