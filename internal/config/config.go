// Package config loads the YAML configuration file and the PDFTOOLKIT_*
// environment. Every file value is optional: an absent value keeps the
// default of the operation it is applied to.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/grid"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/layout"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/redact"
)

// Environment variables read by Load
const (
	EnvLogLevel  = "PDFTOOLKIT_LOG_LEVEL"
	EnvLogFormat = "PDFTOOLKIT_LOG_FORMAT"
	EnvFontDir   = "PDFTOOLKIT_FONT_DIR"
)

// Config is the whole configuration file
type Config struct {
	Log     Log    `yaml:"log"`
	FontDir string `yaml:"font_dir"`
	// Compact runs the optimizer before every save
	Compact *bool  `yaml:"compact"`
	Layout  Layout `yaml:"layout"`
	Grid    Grid   `yaml:"grid"`
	Mask    Mask   `yaml:"mask"`
}

// Log selects level and handler of the process logger
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LineStyle overrides a stroke style
type LineStyle struct {
	Width *float64        `yaml:"width"`
	Color *document.Color `yaml:"color"`
}

// FontStyle overrides a font
type FontStyle struct {
	Name  string          `yaml:"name"`
	Size  *float64        `yaml:"size"`
	Color *document.Color `yaml:"color"`
}

// Layout overrides the stamp layout
type Layout struct {
	HeaderHeight  *float64 `yaml:"header_height"`
	FooterHeight  *float64 `yaml:"footer_height"`
	HeaderPadding *float64 `yaml:"header_padding"`
	FooterPadding *float64 `yaml:"footer_padding"`

	ResizeOriginal     *bool `yaml:"resize_original"`
	StampOnlyFirstPage *bool `yaml:"stamp_only_first_page"`

	DrawHeaderLine *bool     `yaml:"draw_header_line"`
	DrawFooterLine *bool     `yaml:"draw_footer_line"`
	DrawFrame      *bool     `yaml:"draw_frame"`
	HeaderLine     LineStyle `yaml:"header_line"`
	FooterLine     LineStyle `yaml:"footer_line"`
	Frame          LineStyle `yaml:"frame"`

	Delimiter  *layout.Delimiter `yaml:"delimiter"`
	HeaderFont FontStyle         `yaml:"header_font"`
	FooterFont FontStyle         `yaml:"footer_font"`

	WritePageNumber *bool `yaml:"write_page_number"`
	ShowTotalPages  *bool `yaml:"show_total_pages"`
	StrictRegions   *bool `yaml:"strict_regions"`
}

// Grid overrides the grid spec. Colors, when set, lists the thin, medium
// and thick tier colors.
type Grid struct {
	Interval  *float64         `yaml:"interval"`
	LineWidth *float64         `yaml:"line_width"`
	Colors    []document.Color `yaml:"colors"`
}

// Mask holds the redaction rectangles, each [x0, y0, x1, y1] in points
// from the top-left corner of the page.
type Mask struct {
	Fill  *document.Color `yaml:"fill"`
	Rects [][4]float64    `yaml:"rects"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path (optional) and applies the environment on top of it
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		slog.Debug("Loaded config file", "path", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvFontDir); v != "" {
		c.FontDir = v
	}
}

// Validate checks the values that can be checked without an operation
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	if n := len(c.Grid.Colors); n != 0 && n != len(grid.Multipliers) {
		return fmt.Errorf("grid colors: want %d colors, got %d", len(grid.Multipliers), n)
	}
	return nil
}

// ParseLevel maps a level name to its slog level. "fatal" is the guard level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "fatal":
		return guard.LevelFatal, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// CompactOutput reports whether saved documents are optimized
func (c *Config) CompactOutput() bool {
	return c.Compact == nil || *c.Compact
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setColor(dst *document.Color, v *document.Color) {
	if v != nil {
		*dst = *v
	}
}

func (s LineStyle) apply(base document.Style) document.Style {
	setFloat(&base.Width, s.Width)
	setColor(&base.Color, s.Color)
	return base
}

func (f FontStyle) apply(base document.Font) document.Font {
	if f.Name != "" {
		base.Name = f.Name
	}
	setFloat(&base.Size, f.Size)
	setColor(&base.Color, f.Color)
	return base
}

// Apply overrides base with every value set in l
func (l Layout) Apply(base layout.Config) layout.Config {
	setFloat(&base.HeaderHeight, l.HeaderHeight)
	setFloat(&base.FooterHeight, l.FooterHeight)
	setFloat(&base.HeaderPadding, l.HeaderPadding)
	setFloat(&base.FooterPadding, l.FooterPadding)

	setBool(&base.ResizeOriginal, l.ResizeOriginal)
	setBool(&base.StampOnlyFirstPage, l.StampOnlyFirstPage)
	setBool(&base.DrawHeaderLine, l.DrawHeaderLine)
	setBool(&base.DrawFooterLine, l.DrawFooterLine)
	setBool(&base.DrawFrame, l.DrawFrame)
	base.HeaderLine = l.HeaderLine.apply(base.HeaderLine)
	base.FooterLine = l.FooterLine.apply(base.FooterLine)
	base.Frame = l.Frame.apply(base.Frame)

	if l.Delimiter != nil {
		base.Delimiter = *l.Delimiter
	}
	base.HeaderFont = l.HeaderFont.apply(base.HeaderFont)
	base.FooterFont = l.FooterFont.apply(base.FooterFont)

	setBool(&base.WritePageNumber, l.WritePageNumber)
	setBool(&base.ShowTotalPages, l.ShowTotalPages)
	setBool(&base.StrictRegions, l.StrictRegions)
	return base
}

// Apply overrides base with every value set in g
func (g Grid) Apply(base grid.Spec) grid.Spec {
	setFloat(&base.Interval, g.Interval)
	setFloat(&base.LineWidth, g.LineWidth)
	if len(g.Colors) == len(base.Colors) {
		copy(base.Colors[:], g.Colors)
	}
	return base
}

// Options overrides base with the fill color of m
func (m Mask) Options(base redact.Options) redact.Options {
	setColor(&base.Fill, m.Fill)
	return base
}

// Masks returns the configured rectangles as given, valid or not
func (m Mask) Masks() []geometry.Rect {
	rects := make([]geometry.Rect, 0, len(m.Rects))
	for _, r := range m.Rects {
		rects = append(rects, geometry.NewRect(r[0], r[1], r[2], r[3]))
	}
	return rects
}
