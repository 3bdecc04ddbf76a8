package toolcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/batch"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/config"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/toolkit"
)

// infoRecord is the json shape of one document
type infoRecord struct {
	Path     string  `json:"path"`
	Pages    int     `json:"pages"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Unit     string  `json:"unit"`
	Rotation int     `json:"rotation"`
	Error    string  `json:"error,omitempty"`
}

func executeInfo(w io.Writer, cfg *config.Config, input, unit, format string) error {
	var units []toolkit.Unit
	if unit == "" {
		units = toolkit.Units
	} else {
		u, err := toolkit.ParseUnit(unit)
		if err != nil {
			return err
		}
		units = []toolkit.Unit{u}
	}

	files := []string{input}
	if info, err := os.Stat(input); err == nil && info.IsDir() {
		files, err = batch.List(input, batch.DefaultExt)
		if err != nil {
			return err
		}
	}

	tk := newToolkit(cfg)
	var infos []toolkit.Info
	var errs []error
	for _, path := range files {
		info, err := tk.Info(path)
		infos = append(infos, info)
		errs = append(errs, err)
	}

	switch format {
	case "text", "":
		printInfoText(w, infos, errs, units)
	case "json":
		if err := printInfoJSON(w, infos, errs, units[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if len(files) == 1 {
		return errs[0]
	}
	return nil
}

func printInfoText(w io.Writer, infos []toolkit.Info, errs []error, units []toolkit.Unit) {
	for i, info := range infos {
		fmt.Fprintln(w, info.Path)
		if errs[i] != nil {
			fmt.Fprintf(w, "  Error:    %v\n", errs[i])
			continue
		}
		fmt.Fprintf(w, "  Pages:    %d\n", info.Pages)
		if info.Pages == 0 {
			continue
		}
		sizes := make([]string, 0, len(units))
		for _, u := range units {
			width, height := info.Size(u)
			sizes = append(sizes, fmt.Sprintf("%.2f x %.2f %s", width, height, u))
		}
		fmt.Fprintf(w, "  Size:     %s\n", strings.Join(sizes, " | "))
		fmt.Fprintf(w, "  Rotation: %d\n", info.Rotation)
	}
}

func printInfoJSON(w io.Writer, infos []toolkit.Info, errs []error, unit toolkit.Unit) error {
	records := make([]infoRecord, 0, len(infos))
	for i, info := range infos {
		width, height := info.Size(unit)
		rec := infoRecord{
			Path:     info.Path,
			Pages:    info.Pages,
			Width:    width,
			Height:   height,
			Unit:     string(unit),
			Rotation: info.Rotation,
		}
		if errs[i] != nil {
			rec.Error = errs[i].Error()
		}
		records = append(records, rec)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
