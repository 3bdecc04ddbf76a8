package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB color with components in [0, 1].
// Colors are plain values; every draw call receives its own copy.
type Color struct {
	R, G, B float64
}

var (
	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
	Red   = Color{1, 0, 0}
)

// ParseColor accepts "#RRGGBB", "RRGGBB" or "#RGB"
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

// Hex formats the color as #RRGGBB
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

// UnmarshalText parses a color in any form ParseColor accepts
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText formats the color as #RRGGBB
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Style describes how a shape layer or line is painted.
// Fill is only used when Filled is set; the toolkit's own drawings are
// stroke-only.
type Style struct {
	Width  float64
	Color  Color
	Fill   Color
	Filled bool
}

// Stroke returns a stroke-only style
func Stroke(width float64, c Color) Style {
	return Style{Width: width, Color: c}
}

// Font selects a typeface, size and color for text boxes.
// Name is one of the built-in Go fonts ("goregular", "gobold", ...) or a path
// to a TrueType file.
type Font struct {
	Name  string
	Size  float64
	Color Color
}
