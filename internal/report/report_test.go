package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/batch"
)

func sampleReport() *batch.Report {
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return &batch.Report{
		Operation:  "mask",
		InputDir:   "/data/in",
		OutputDir:  "/data/out",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Results: []batch.Result{
			{Input: "/data/in/a.pdf", Output: "/data/out/a.pdf", Succeeded: true, Duration: 1200 * time.Millisecond},
			{Input: "/data/in/b.pdf", Output: "/data/out/b.pdf", ErrorKind: batch.KindOpen, Error: "failed to open document", Duration: 300 * time.Millisecond},
			{Input: "/data/in/c.pdf", Output: "/data/out/c.pdf", Succeeded: true, Duration: 1500 * time.Millisecond},
		},
	}
}

func TestSaveLoadFormats(t *testing.T) {
	want := sampleReport()

	tests := []struct {
		name string
		file string
	}{
		{name: "yaml", file: "run.yaml"},
		{name: "yml", file: "run.yml"},
		{name: "json", file: "run.json"},
		{name: "parquet", file: "run.parquet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reports", tt.file)
			if err := Save(path, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if got.Operation != want.Operation || got.InputDir != want.InputDir || got.OutputDir != want.OutputDir {
				t.Errorf("run fields = %+v", got)
			}
			if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
				t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.FinishedAt, want.StartedAt, want.FinishedAt)
			}
			if len(got.Results) != len(want.Results) {
				t.Fatalf("got %d results, want %d", len(got.Results), len(want.Results))
			}
			for i := range want.Results {
				if got.Results[i] != want.Results[i] {
					t.Errorf("result %d = %+v, want %+v", i, got.Results[i], want.Results[i])
				}
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.txt")
	if err := Save(path, sampleReport()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Save() error = %v, want %v", err, ErrUnsupportedFormat)
	}
	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load() error = %v, want %v", err, ErrUnsupportedFormat)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestFromRowsEmpty(t *testing.T) {
	r := FromRows(nil)
	if r == nil || len(r.Results) != 0 || r.Operation != "" {
		t.Errorf("FromRows(nil) = %+v", r)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleReport())

	if s.Total != 3 || s.Succeeded != 2 || s.Failed != 1 {
		t.Errorf("counts = %d/%d/%d", s.Total, s.Succeeded, s.Failed)
	}
	if s.FailuresByKind[batch.KindOpen] != 1 || len(s.FailuresByKind) != 1 {
		t.Errorf("failures by kind = %v", s.FailuresByKind)
	}
	if s.TotalDuration != 3*time.Second || s.AverageDuration != time.Second {
		t.Errorf("durations = %v / %v", s.TotalDuration, s.AverageDuration)
	}
	if s.WallTime != 3*time.Second {
		t.Errorf("wall time = %v", s.WallTime)
	}

	empty := Summarize(&batch.Report{})
	if empty.Total != 0 || empty.AverageDuration != 0 || empty.SuccessRate != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestPrintText(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, sampleReport(), "text"); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Batch Report: mask",
		"Files:     3",
		"Succeeded: 2 (66.7%)",
		"  open: 1",
		"[2] /data/in/b.pdf",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, sampleReport(), "json"); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	var out struct {
		Summary Summary        `json:"summary"`
		Results []batch.Result `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Summary.Failed != 1 || len(out.Results) != 3 {
		t.Errorf("json report = %+v", out)
	}
}

func TestPrintCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, sampleReport(), "csv"); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if got := records[2]; got[2] != "false" || got[3] != "open" || got[5] != "300" {
		t.Errorf("failure row = %q", got)
	}
}

func TestPrintUnknownFormat(t *testing.T) {
	if err := Print(&bytes.Buffer{}, sampleReport(), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
