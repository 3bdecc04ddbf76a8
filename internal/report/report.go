// Package report persists batch reports and prints their summaries.
// The file format follows the extension: .yaml/.yml, .json or .parquet.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/batch"
)

// ErrUnsupportedFormat is returned for report paths with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Row is one batch result flattened for columnar storage. Every row repeats
// the run it belongs to.
type Row struct {
	Operation  string `parquet:"operation"`
	InputDir   string `parquet:"input_dir"`
	OutputDir  string `parquet:"output_dir"`
	StartedAt  int64  `parquet:"started_at_ns"`
	FinishedAt int64  `parquet:"finished_at_ns"`
	Input      string `parquet:"input"`
	Output     string `parquet:"output"`
	Succeeded  bool   `parquet:"succeeded"`
	ErrorKind  string `parquet:"error_kind"`
	Error      string `parquet:"error"`
	DurationNs int64  `parquet:"duration_ns"`
}

// Rows flattens r
func Rows(r *batch.Report) []Row {
	rows := make([]Row, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, Row{
			Operation:  r.Operation,
			InputDir:   r.InputDir,
			OutputDir:  r.OutputDir,
			StartedAt:  r.StartedAt.UnixNano(),
			FinishedAt: r.FinishedAt.UnixNano(),
			Input:      res.Input,
			Output:     res.Output,
			Succeeded:  res.Succeeded,
			ErrorKind:  string(res.ErrorKind),
			Error:      res.Error,
			DurationNs: int64(res.Duration),
		})
	}
	return rows
}

// FromRows rebuilds a report. The run fields are taken from the first row.
func FromRows(rows []Row) *batch.Report {
	r := &batch.Report{}
	if len(rows) == 0 {
		return r
	}
	first := rows[0]
	r.Operation = first.Operation
	r.InputDir = first.InputDir
	r.OutputDir = first.OutputDir
	r.StartedAt = time.Unix(0, first.StartedAt).UTC()
	r.FinishedAt = time.Unix(0, first.FinishedAt).UTC()

	r.Results = make([]batch.Result, 0, len(rows))
	for _, row := range rows {
		r.Results = append(r.Results, batch.Result{
			Input:     row.Input,
			Output:    row.Output,
			Succeeded: row.Succeeded,
			ErrorKind: batch.ErrorKind(row.ErrorKind),
			Error:     row.Error,
			Duration:  time.Duration(row.DurationNs),
		})
	}
	return r
}

func format(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	case ".parquet":
		return "parquet", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Save writes r to path, creating the parent directory if needed
func Save(path string, r *batch.Report) error {
	f, err := format(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	switch f {
	case "yaml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	case "parquet":
		if err := saveParquet(path, Rows(r)); err != nil {
			return err
		}
	}

	slog.Info("Report saved", "path", path, "format", f, "results", len(r.Results))
	return nil
}

func saveParquet(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	w := parquet.NewGenericWriter[Row](file)
	if _, err := w.Write(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}

// Load reads a report written by Save
func Load(path string) (*batch.Report, error) {
	f, err := format(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loading report", "path", path, "format", f)

	if f == "parquet" {
		rows, err := loadParquet(path)
		if err != nil {
			return nil, err
		}
		return FromRows(rows), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	r := &batch.Report{}
	if f == "yaml" {
		err = yaml.Unmarshal(data, r)
	} else {
		err = json.Unmarshal(data, r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s report: %w", f, err)
	}
	return r, nil
}

func loadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet report opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	buf := make([]Row, 128)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return rows, nil
}
