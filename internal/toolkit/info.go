package toolkit

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
)

// Unit is a length unit for reporting page sizes
type Unit string

const (
	Point      Unit = "pt"
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Inch       Unit = "in"
)

// Units lists the supported units in display order
var Units = []Unit{Point, Millimeter, Centimeter, Inch}

// perPoint is the length of one PDF point (1/72 inch) in each unit
var perPoint = map[Unit]float64{
	Point:      1,
	Millimeter: 25.4 / 72,
	Centimeter: 2.54 / 72,
	Inch:       1.0 / 72,
}

// ParseUnit accepts a unit name such as "mm" or "inch"
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pt", "point", "points", "":
		return Point, nil
	case "mm":
		return Millimeter, nil
	case "cm":
		return Centimeter, nil
	case "in", "inch", "inches":
		return Inch, nil
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// Info describes a document by its first page
type Info struct {
	Path     string
	Pages    int
	Width    float64
	Height   float64
	Rotation int
}

// Size returns the first page size converted to unit
func (i Info) Size(u Unit) (float64, float64) {
	f, ok := perPoint[u]
	if !ok {
		f = 1
	}
	return i.Width * f, i.Height * f
}

// Info reads page count, first page size and rotation of input
func (t *Toolkit) Info(input string) (Info, error) {
	const op = "info"
	res := Info{Path: input}

	if !guard.Exists(input) {
		return res, guard.Fail(op, input, guard.ErrInputMissing)
	}

	var src document.Session
	defer src.Close()

	doc, err := src.Open(t.Opener, input)
	if err != nil {
		return res, openFailed(op, input, err)
	}

	res.Pages = doc.PageCount()
	if res.Pages == 0 {
		return res, nil
	}
	page, err := doc.Page(0)
	if err != nil {
		return res, err
	}
	res.Width, res.Height = page.Size()
	res.Rotation = page.Rotation()
	return res, nil
}
