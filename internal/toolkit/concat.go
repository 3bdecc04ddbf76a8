package toolkit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/batch"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
)

// ErrNothingToConcat is returned when no input page could be collected
var ErrNothingToConcat = errors.New("no pages to concatenate")

// ConcatResult lists what went into a concatenated document
type ConcatResult struct {
	Files   []string
	Skipped []string
	Pages   int
}

// Concat appends every PDF of inputDir, in natural order, into output. Each
// source keeps its page order. Files that cannot be opened are logged and
// skipped; output itself is never read back when it lives in inputDir.
func (t *Toolkit) Concat(inputDir, output string, overwrite bool) (ConcatResult, error) {
	const op = "concat"
	var res ConcatResult

	info, err := os.Stat(inputDir)
	if err != nil {
		return res, guard.Fail(op, inputDir, guard.ErrInputDirMissing)
	}
	if !info.IsDir() {
		return res, guard.Fail(op, inputDir, guard.ErrInputNotDir)
	}
	if err := guard.Output(op, output, overwrite); err != nil {
		return res, err
	}

	files, err := batch.List(inputDir, batch.DefaultExt)
	if err != nil {
		return res, err
	}

	var dst document.Session
	defer dst.Close()

	dstDoc, err := dst.Create(t.Opener)
	if err != nil {
		return res, fmt.Errorf("failed to create output document: %w", err)
	}

	for _, f := range files {
		if guard.SamePath(f, output) {
			slog.Info("Skipping output file found in input directory", "file", f)
			continue
		}
		n, err := t.appendFile(dstDoc, f)
		if err != nil {
			slog.Warn("Skipping file", "file", f, "error", err)
			res.Skipped = append(res.Skipped, f)
			continue
		}
		res.Files = append(res.Files, f)
		res.Pages += n
	}

	if res.Pages == 0 {
		return res, fmt.Errorf("%s %s: %w", op, inputDir, ErrNothingToConcat)
	}
	if err := t.save(dstDoc, output); err != nil {
		return res, err
	}

	slog.Info("Concatenated documents",
		"input", inputDir,
		"output", output,
		"files", len(res.Files),
		"skipped", len(res.Skipped),
		"pages", res.Pages)
	return res, nil
}

func (t *Toolkit) appendFile(dst document.Document, path string) (int, error) {
	var src document.Session
	defer src.Close()

	doc, err := src.Open(t.Opener, path)
	if err != nil {
		return 0, err
	}
	n := doc.PageCount()
	if n == 0 {
		return 0, nil
	}
	if err := dst.InsertPages(doc, 0, n-1); err != nil {
		return 0, fmt.Errorf("failed to insert pages: %w", err)
	}
	slog.Debug("Appended document", "file", path, "pages", n)
	return n, nil
}
