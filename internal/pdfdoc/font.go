package pdfdoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"
)

// DefaultFont is used when a font name is empty
const DefaultFont = "goregular"

const (
	firstChar = 32
	lastChar  = 255
)

var builtinFonts = map[string][]byte{
	"goregular":    goregular.TTF,
	"gobold":       gobold.TTF,
	"goitalic":     goitalic.TTF,
	"gobolditalic": gobolditalic.TTF,
	"gomedium":     gomedium.TTF,
	"gomono":       gomono.TTF,
}

// BuiltinFonts lists the font names that need no file
func BuiltinFonts() []string {
	return []string{"goregular", "gobold", "goitalic", "gobolditalic", "gomedium", "gomono"}
}

// face is a parsed TrueType font with metrics in 1/1000 em, the unit PDF
// font dictionaries use.
type face struct {
	name     string
	baseFont string
	data     []byte
	widths   [lastChar + 1]float64
	ascent   float64
	descent  float64
	height   float64
	capH     float64
	bbox     [4]float64
}

// loadFace resolves name to a builtin Go font or a TrueType file. Relative
// file names are looked up in fontDir.
func loadFace(name, fontDir string) (*face, error) {
	if name == "" {
		name = DefaultFont
	}
	data, ok := builtinFonts[strings.ToLower(name)]
	if !ok {
		path := name
		if !filepath.IsAbs(path) && fontDir != "" {
			if _, err := os.Stat(path); err != nil {
				path = filepath.Join(fontDir, name)
			}
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font %q: %w", name, err)
		}
		data = raw
	}
	return parseFace(name, data)
}

func parseFace(name string, data []byte) (*face, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %q: %w", name, err)
	}

	var buf sfnt.Buffer
	upem := float64(f.UnitsPerEm())
	ppem := fixed.I(int(f.UnitsPerEm()))
	scale := func(v fixed.Int26_6) float64 {
		return float64(v) / 64 / upem * 1000
	}

	fc := &face{name: name, data: data, baseFont: baseFontName(f, &buf, name)}

	m, err := f.Metrics(&buf, ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics of %q: %w", name, err)
	}
	fc.ascent = scale(m.Ascent)
	fc.descent = scale(m.Descent)
	fc.height = scale(m.Height)
	fc.capH = scale(m.CapHeight)
	if fc.height < fc.ascent+fc.descent {
		fc.height = fc.ascent + fc.descent
	}

	b, err := f.Bounds(&buf, ppem, font.HintingNone)
	if err == nil {
		// sfnt bounds grow downwards
		fc.bbox = [4]float64{scale(b.Min.X), -scale(b.Max.Y), scale(b.Max.X), -scale(b.Min.Y)}
	}

	for code := firstChar; code <= lastChar; code++ {
		r := charmap.Windows1252.DecodeByte(byte(code))
		gi, err := f.GlyphIndex(&buf, r)
		if err != nil {
			continue
		}
		adv, err := f.GlyphAdvance(&buf, gi, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		fc.widths[code] = scale(adv)
	}
	return fc, nil
}

func baseFontName(f *sfnt.Font, buf *sfnt.Buffer, fallback string) string {
	name, err := f.Name(buf, sfnt.NameIDPostScript)
	if err != nil || name == "" {
		name = strings.TrimSuffix(filepath.Base(fallback), filepath.Ext(fallback))
	}
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' || strings.ContainsRune("()<>[]{}/%#", r) {
			return '-'
		}
		return r
	}, name)
}

// encode converts text to WinAnsi codes. Runes outside the encoding become
// '?', tabs become spaces.
func encode(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r == '\t' {
			r = ' '
		}
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok || b < firstChar {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// width returns the advance of codes at size points
func (f *face) width(codes []byte, size float64) float64 {
	var w float64
	for _, c := range codes {
		w += f.widths[c]
	}
	return w / 1000 * size
}

// embed writes the font program, descriptor and font dictionary into ctx
func (f *face) embed(ctx *model.Context) (types.IndirectRef, error) {
	file, err := newStream(ctx, f.data, types.Dict{"Length1": types.Integer(len(f.data))})
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to embed font %q: %w", f.name, err)
	}

	descriptor := types.Dict{
		"Type":        types.Name("FontDescriptor"),
		"FontName":    types.Name(f.baseFont),
		"Flags":       types.Integer(32),
		"FontBBox":    numberArray(round(f.bbox[0]), round(f.bbox[1]), round(f.bbox[2]), round(f.bbox[3])),
		"ItalicAngle": types.Integer(0),
		"Ascent":      types.Integer(int(round(f.ascent))),
		"Descent":     types.Integer(-int(round(f.descent))),
		"CapHeight":   types.Integer(int(round(f.capH))),
		"StemV":       types.Integer(80),
		"FontFile2":   file,
	}
	descRef, err := ctx.IndRefForNewObject(descriptor)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to add font descriptor: %w", err)
	}

	widths := make(types.Array, 0, lastChar-firstChar+1)
	for code := firstChar; code <= lastChar; code++ {
		widths = append(widths, types.Integer(int(round(f.widths[code]))))
	}
	fontDict := types.Dict{
		"Type":           types.Name("Font"),
		"Subtype":        types.Name("TrueType"),
		"BaseFont":       types.Name(f.baseFont),
		"FirstChar":      types.Integer(firstChar),
		"LastChar":       types.Integer(lastChar),
		"Widths":         widths,
		"FontDescriptor": *descRef,
		"Encoding":       types.Name("WinAnsiEncoding"),
	}
	ref, err := ctx.IndRefForNewObject(fontDict)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to add font: %w", err)
	}
	return *ref, nil
}

func round(v float64) float64 {
	if v < 0 {
		return float64(int(v - 0.5))
	}
	return float64(int(v + 0.5))
}
