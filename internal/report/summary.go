package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/batch"
)

// Formats lists the formats Print accepts
var Formats = []string{"text", "json", "csv"}

// Summary aggregates the results of one run
type Summary struct {
	Operation       string                  `json:"operation"`
	InputDir        string                  `json:"input_dir"`
	OutputDir       string                  `json:"output_dir"`
	Total           int                     `json:"total"`
	Succeeded       int                     `json:"succeeded"`
	Failed          int                     `json:"failed"`
	FailuresByKind  map[batch.ErrorKind]int `json:"failures_by_kind,omitempty"`
	TotalDuration   time.Duration           `json:"total_duration"`
	AverageDuration time.Duration           `json:"average_duration"`
	WallTime        time.Duration           `json:"wall_time"`
	SuccessRate     float64                 `json:"success_rate"`
}

// Summarize aggregates r
func Summarize(r *batch.Report) Summary {
	s := Summary{
		Operation: r.Operation,
		InputDir:  r.InputDir,
		OutputDir: r.OutputDir,
		Total:     len(r.Results),
	}
	if !r.StartedAt.IsZero() && r.FinishedAt.After(r.StartedAt) {
		s.WallTime = r.FinishedAt.Sub(r.StartedAt)
	}

	for _, res := range r.Results {
		s.TotalDuration += res.Duration
		if res.Succeeded {
			s.Succeeded++
			continue
		}
		s.Failed++
		if s.FailuresByKind == nil {
			s.FailuresByKind = make(map[batch.ErrorKind]int)
		}
		s.FailuresByKind[res.ErrorKind]++
	}

	if s.Total > 0 {
		s.AverageDuration = s.TotalDuration / time.Duration(s.Total)
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total)
	}
	return s
}

// kinds returns the failure kinds of s in a stable order
func (s Summary) kinds() []batch.ErrorKind {
	kinds := make([]batch.ErrorKind, 0, len(s.FailuresByKind))
	for k := range s.FailuresByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Print writes r to w as text, json or csv
func Print(w io.Writer, r *batch.Report, format string) error {
	switch format {
	case "text", "":
		return printText(w, r)
	case "json":
		return printJSON(w, r)
	case "csv":
		return printCSV(w, r)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printText(w io.Writer, r *batch.Report) error {
	s := Summarize(r)

	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Batch Report: %s\n", s.Operation)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Input:     %s\n", s.InputDir)
	fmt.Fprintf(w, "Output:    %s\n", s.OutputDir)
	fmt.Fprintf(w, "Files:     %d\n", s.Total)
	fmt.Fprintf(w, "Succeeded: %d (%.1f%%)\n", s.Succeeded, s.SuccessRate*100)
	fmt.Fprintf(w, "Failed:    %d\n", s.Failed)
	for _, k := range s.kinds() {
		fmt.Fprintf(w, "  %s: %d\n", k, s.FailuresByKind[k])
	}
	fmt.Fprintf(w, "Average:   %s\n", s.AverageDuration.Round(time.Millisecond))
	if s.WallTime > 0 {
		fmt.Fprintf(w, "Wall time: %s\n", s.WallTime.Round(time.Millisecond))
	}

	if s.Failed == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nFailures:")
	fmt.Fprintln(w, "========================================")
	for i, res := range r.Results {
		if res.Succeeded {
			continue
		}
		fmt.Fprintf(w, "[%d] %s\n", i+1, res.Input)
		fmt.Fprintf(w, "  %s: %s\n", res.ErrorKind, truncate(res.Error, 120))
	}
	return nil
}

func printJSON(w io.Writer, r *batch.Report) error {
	out := struct {
		Summary Summary        `json:"summary"`
		Results []batch.Result `json:"results"`
	}{Summarize(r), r.Results}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func printCSV(w io.Writer, r *batch.Report) error {
	writer := csv.NewWriter(w)

	header := []string{"Input", "Output", "Succeeded", "Error Kind", "Error", "Duration (ms)"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, res := range r.Results {
		row := []string{
			res.Input,
			res.Output,
			strconv.FormatBool(res.Succeeded),
			string(res.ErrorKind),
			res.Error,
			strconv.FormatInt(res.Duration.Milliseconds(), 10),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
