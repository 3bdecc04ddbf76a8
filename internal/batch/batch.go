// Package batch applies a single-document operation to every matching file
// of a directory, in natural order, isolating per-file failures.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/layout"
)

// DefaultExt is the extension enumerated when none is given
const DefaultExt = ".pdf"

// Op processes one input file into one output file
type Op func(input, output string) error

// ErrorKind classifies a per-file failure
type ErrorKind string

const (
	KindNone     ErrorKind = ""
	KindGuard    ErrorKind = "guard"
	KindOpen     ErrorKind = "open"
	KindCollapse ErrorKind = "collapse"
	KindRender   ErrorKind = "render"
	KindSave     ErrorKind = "save"
)

// Classify maps an operation error to its kind
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case guard.Is(err):
		return KindGuard
	case errors.Is(err, document.ErrOpen):
		return KindOpen
	case errors.Is(err, layout.ErrRegionCollapse):
		return KindCollapse
	case errors.Is(err, document.ErrSave):
		return KindSave
	default:
		return KindRender
	}
}

// Result is the outcome of one file
type Result struct {
	Input     string        `yaml:"input" json:"input"`
	Output    string        `yaml:"output" json:"output"`
	Succeeded bool          `yaml:"succeeded" json:"succeeded"`
	ErrorKind ErrorKind     `yaml:"error_kind,omitempty" json:"error_kind,omitempty"`
	Error     string        `yaml:"error,omitempty" json:"error,omitempty"`
	Duration  time.Duration `yaml:"duration" json:"duration"`
}

// Report accumulates the results of one run
type Report struct {
	Operation  string    `yaml:"operation" json:"operation"`
	InputDir   string    `yaml:"input_dir" json:"input_dir"`
	OutputDir  string    `yaml:"output_dir" json:"output_dir"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time `yaml:"finished_at" json:"finished_at"`
	Results    []Result  `yaml:"results" json:"results"`
}

// Succeeded counts successful files
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded {
			n++
		}
	}
	return n
}

// Failed counts failed files
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// List returns the files of dir with extension ext (case-insensitive), in
// natural order. Subdirectories are not descended into.
func List(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	NaturalSort(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// Run applies op to every file with extension ext in inputDir, writing to
// outputDir under the same base name. Guard failures abort before anything
// is written; any other failure is recorded and the next file is processed.
// The context is checked between files only.
func Run(ctx context.Context, operation, inputDir, outputDir, ext string, op Op) (*Report, error) {
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := guard.Dirs(operation, inputDir, outputDir); err != nil {
		return nil, err
	}

	inAbs, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory: %w", err)
	}
	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	files, err := List(inAbs, ext)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(outAbs); os.IsNotExist(err) {
		if err := os.MkdirAll(outAbs, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		slog.Info("Created output directory", "dir", outAbs)
	}

	report := &Report{
		Operation: operation,
		InputDir:  inAbs,
		OutputDir: outAbs,
		StartedAt: time.Now(),
	}
	slog.Info("Starting batch", "operation", operation, "input", inAbs, "output", outAbs, "files", len(files))

	for i, in := range files {
		if err := ctx.Err(); err != nil {
			slog.Warn("Batch interrupted", "processed", i, "total", len(files))
			report.FinishedAt = time.Now()
			return report, err
		}

		out := filepath.Join(outAbs, filepath.Base(in))
		slog.Info("Processing file", "index", i+1, "total", len(files), "input", in, "output", out)

		start := time.Now()
		opErr := op(in, out)
		res := Result{
			Input:     in,
			Output:    out,
			Succeeded: opErr == nil,
			ErrorKind: Classify(opErr),
			Duration:  time.Since(start),
		}
		if opErr != nil {
			res.Error = opErr.Error()
			slog.Error("Failed to process file", "input", in, "kind", res.ErrorKind, "error", opErr)
		}
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = time.Now()
	slog.Info("Batch complete",
		"operation", operation,
		"succeeded", report.Succeeded(),
		"failed", report.Failed())
	return report, nil
}
