package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/compose"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// defaultFontSize applies when a Font has no size
const defaultFontSize = 11

// Page is one page of a Doc. Content is loaded on first change and kept in
// memory until the document is saved.
type Page struct {
	doc      *Doc
	ref      types.IndirectRef
	dict     types.Dict
	index    int
	box      geometry.Rect // visible box in PDF user space
	rotation int

	content []byte
	loaded  bool
	wrapped bool
	dirty   bool
	version int

	fonts map[string]string // face name to resource name
	masks []redaction
}

type redaction struct {
	box  geometry.Rect
	fill document.Color
}

// Index returns the page position in its document
func (p *Page) Index() int {
	return p.index
}

// Size returns the displayed page size
func (p *Page) Size() (float64, float64) {
	w, h := p.box.Width(), p.box.Height()
	if p.rotation == 90 || p.rotation == 270 {
		return h, w
	}
	return w, h
}

// Rotation returns the page rotation in degrees, one of 0, 90, 180, 270
func (p *Page) Rotation() int {
	return p.rotation
}

// load reads and joins the page content streams
func (p *Page) load() error {
	if p.loaded {
		return nil
	}
	if err := p.doc.check(); err != nil {
		return err
	}
	var buf bytes.Buffer
	obj, err := resolve(p.doc.ctx, p.dict["Contents"])
	if err != nil {
		return err
	}
	var streams types.Array
	switch v := obj.(type) {
	case types.StreamDict:
		streams = types.Array{v}
	case types.Array:
		streams = v
	}
	for _, s := range streams {
		o, err := resolve(p.doc.ctx, s)
		if err != nil {
			return err
		}
		sd, ok := o.(types.StreamDict)
		if !ok {
			continue
		}
		data, err := streamContent(sd)
		if err != nil {
			return fmt.Errorf("page %d: %w", p.index, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	p.content = buf.Bytes()
	p.loaded = true
	return nil
}

// closing returns the Q operators needed to balance content, plus one for
// the wrapping q
func closing(content []byte) string {
	depth := 0
	if ops, err := parseContent(content); err == nil {
		for _, op := range ops {
			switch op.op {
			case "q":
				depth++
			case "Q":
				if depth > 0 {
					depth--
				}
			}
		}
	}
	return strings.Repeat("Q\n", depth+1)
}

// begin prepares the page for drawing: rotation is normalized and the
// original content is isolated in its own graphics state.
func (p *Page) begin() error {
	if err := p.load(); err != nil {
		return err
	}
	if p.rotation != 0 {
		if err := p.NormalizeRotation(); err != nil {
			return err
		}
	}
	if !p.wrapped {
		p.content = []byte("q\n" + string(p.content) + closing(p.content))
		p.wrapped = true
	}
	p.touch()
	return nil
}

func (p *Page) touch() {
	p.dirty = true
	p.version++
}

func (p *Page) appendContent(s string) {
	p.content = append(p.content, s...)
	if !strings.HasSuffix(s, "\n") {
		p.content = append(p.content, '\n')
	}
}

// rotationMatrix maps an origin-based w×h box rotated clockwise by rot onto
// its upright position
func rotationMatrix(rot int, w, h float64) geometry.Matrix {
	switch rot {
	case 90:
		return geometry.Matrix{0, -1, 1, 0, 0, w}
	case 180:
		return geometry.Matrix{-1, 0, 0, -1, w, h}
	case 270:
		return geometry.Matrix{0, 1, -1, 0, h, 0}
	}
	return geometry.Identity()
}

// upright returns the matrix from the page's user space to its displayed,
// origin-based frame
func (p *Page) upright() geometry.Matrix {
	return geometry.Translate(-p.box.X0, -p.box.Y0).
		Multiply(rotationMatrix(p.rotation, p.box.Width(), p.box.Height()))
}

// NormalizeRotation bakes the rotation into the content so the page looks
// the same with /Rotate 0
func (p *Page) NormalizeRotation() error {
	if p.rotation == 0 {
		return nil
	}
	if err := p.load(); err != nil {
		return err
	}
	m := p.upright()
	w, h := p.Size()

	p.content = []byte("q\n" + matrixOp(m) + "\n" + string(p.content) + closing(p.content))
	p.wrapped = true

	if err := p.transformAnnotations(m); err != nil {
		slog.Warn("Failed to move annotations", "page", p.index, "err", err)
	}

	p.box = geometry.NewRect(0, 0, w, h)
	p.dict["MediaBox"] = boxArray(p.box)
	for _, k := range []string{"CropBox", "TrimBox", "BleedBox", "ArtBox", "Rotate"} {
		delete(p.dict, k)
	}
	slog.Debug("Normalized page rotation", "page", p.index, "rotation", p.rotation)
	p.rotation = 0
	p.touch()
	return nil
}

func (p *Page) transformAnnotations(m geometry.Matrix) error {
	annots, err := arrayOf(p.doc.ctx, p.dict["Annots"])
	if err != nil {
		return err
	}
	for _, a := range annots {
		d, err := dictOf(p.doc.ctx, a)
		if err != nil || d == nil {
			continue
		}
		if r, ok := boxOf(p.doc.ctx, d["Rect"]); ok {
			d["Rect"] = boxArray(m.TransformRect(r))
		}
	}
	return nil
}

// userPoint converts a top-left page point to PDF user space
func (p *Page) userPoint(pt geometry.Point) geometry.Point {
	return geometry.Point{X: p.box.X0 + pt.X, Y: p.box.Y1 - pt.Y}
}

// userRect converts a top-left page rectangle to PDF user space
func (p *Page) userRect(r geometry.Rect) geometry.Rect {
	return geometry.BoundingRect(p.userPoint(geometry.Point{X: r.X0, Y: r.Y0}), p.userPoint(geometry.Point{X: r.X1, Y: r.Y1}))
}

func colorOp(c document.Color, op string) string {
	return fmt.Sprintf("%s %s %s %s", num(c.R), num(c.G), num(c.B), op)
}

func reOp(r geometry.Rect) string {
	return fmt.Sprintf("%s %s %s %s re", num(r.X0), num(r.Y0), num(r.Width()), num(r.Height()))
}

// NewShape starts a batch of rectangles
func (p *Page) NewShape() document.Shape {
	return &shape{page: p}
}

type shapeLayer struct {
	rects []geometry.Rect
	style document.Style
}

type shape struct {
	page    *Page
	pending []geometry.Rect
	layers  []shapeLayer
}

func (s *shape) DrawRect(r geometry.Rect) {
	if r.Valid() {
		s.pending = append(s.pending, r)
	}
}

func (s *shape) Finish(style document.Style) {
	s.layers = append(s.layers, shapeLayer{rects: s.pending, style: style})
	s.pending = nil
}

func (s *shape) Commit() error {
	if len(s.pending) > 0 {
		return errors.New("shape has rectangles after the last Finish")
	}
	if err := s.page.begin(); err != nil {
		return err
	}
	var b strings.Builder
	for _, l := range s.layers {
		if len(l.rects) == 0 {
			continue
		}
		b.WriteString("q\n")
		b.WriteString(colorOp(l.style.Color, "RG") + "\n")
		b.WriteString(num(l.style.Width) + " w\n")
		paint := "S"
		if l.style.Filled {
			b.WriteString(colorOp(l.style.Fill, "rg") + "\n")
			paint = "B"
		}
		for _, r := range l.rects {
			b.WriteString(reOp(s.page.userRect(r)) + "\n")
		}
		b.WriteString(paint + "\nQ\n")
	}
	s.page.appendContent(b.String())
	s.layers = nil
	return nil
}

// DrawLine strokes a straight line
func (p *Page) DrawLine(p0, p1 geometry.Point, style document.Style) error {
	if err := p.begin(); err != nil {
		return err
	}
	a, b := p.userPoint(p0), p.userPoint(p1)
	p.appendContent(fmt.Sprintf("q\n%s\n%s w\n%s %s m\n%s %s l\nS\nQ\n",
		colorOp(style.Color, "RG"), num(style.Width),
		num(a.X), num(a.Y), num(b.X), num(b.Y)))
	return nil
}

// fontResource returns the resource name of a face on this page
func (p *Page) fontResource(f *face) (string, error) {
	if name, ok := p.fonts[f.name]; ok {
		return name, nil
	}
	ref, err := p.doc.fontRef(f)
	if err != nil {
		return "", err
	}
	res, err := ownedDict(p.doc.ctx, p.dict, "Resources")
	if err != nil {
		return "", err
	}
	fonts, err := ownedDict(p.doc.ctx, res, "Font")
	if err != nil {
		return "", err
	}
	name := uniqueName(fonts, "PTF", &p.doc.seq, ref)
	if p.fonts == nil {
		p.fonts = map[string]string{}
	}
	p.fonts[f.name] = name
	return name, nil
}

// wrapText breaks text into lines no wider than width. It fails when a
// single word is wider than the box.
func wrapText(f *face, text string, size, width float64) ([][]byte, error) {
	var lines [][]byte
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, nil)
			continue
		}
		var line []byte
		for _, w := range words {
			word := encode(w)
			if f.width(word, size) > width {
				return nil, document.ErrTextOverflow
			}
			if line == nil {
				line = word
				continue
			}
			candidate := append(append(append([]byte(nil), line...), ' '), word...)
			if f.width(candidate, size) <= width {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = word
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// InsertTextBox writes text into box, wrapping at word boundaries. When the
// text does not fit nothing is drawn and document.ErrTextOverflow is
// returned.
func (p *Page) InsertTextBox(box geometry.Rect, text string, font document.Font, align document.Align) error {
	if !box.Valid() {
		return document.ErrTextOverflow
	}
	if err := p.doc.check(); err != nil {
		return err
	}
	f, err := p.doc.face(font.Name)
	if err != nil {
		return err
	}
	size := font.Size
	if size <= 0 {
		size = defaultFontSize
	}

	lines, err := wrapText(f, text, size, box.Width())
	if err != nil {
		return err
	}
	ascent := f.ascent / 1000 * size
	descent := f.descent / 1000 * size
	lineHeight := f.height / 1000 * size
	if ascent+descent+float64(len(lines)-1)*lineHeight > box.Height() {
		return document.ErrTextOverflow
	}

	if err := p.begin(); err != nil {
		return err
	}
	name, err := p.fontResource(f)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "q\nBT\n/%s %s Tf\n%s\n", name, num(size), colorOp(font.Color, "rg"))
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		x := box.X0
		switch align {
		case document.AlignCenter:
			x += (box.Width() - f.width(line, size)) / 2
		case document.AlignRight:
			x += box.Width() - f.width(line, size)
		}
		origin := p.userPoint(geometry.Point{X: x, Y: box.Y0 + ascent + float64(i)*lineHeight})
		fmt.Fprintf(&b, "1 0 0 1 %s %s Tm\n%s Tj\n", num(origin.X), num(origin.Y), hexString(line))
	}
	b.WriteString("ET\nQ\n")
	p.appendContent(b.String())
	return nil
}

// AddRedactionMask registers box for the next ApplyRedactions
func (p *Page) AddRedactionMask(box geometry.Rect, fill document.Color) error {
	if !box.Valid() {
		return fmt.Errorf("invalid redaction mask %s", box)
	}
	if err := p.load(); err != nil {
		return err
	}
	if err := p.NormalizeRotation(); err != nil {
		return err
	}
	p.masks = append(p.masks, redaction{box: box, fill: fill})
	return nil
}

// ApplyRedactions rewrites the page content without anything drawn inside
// a registered mask, removes annotations touching one and paints the masks.
func (p *Page) ApplyRedactions() error {
	if len(p.masks) == 0 {
		return nil
	}
	if err := p.load(); err != nil {
		return err
	}

	masks := make([]geometry.Rect, len(p.masks))
	fills := make([]document.Color, len(p.masks))
	for i, m := range p.masks {
		masks[i] = p.userRect(m.box)
		fills[i] = m.fill
	}
	res, err := ownedDict(p.doc.ctx, p.dict, "Resources")
	if err != nil {
		return err
	}

	filter := newContentFilter(p.doc, masks, res, geometry.Identity(), 0)
	filter.fills = fills
	if err := filter.run(p.content); err != nil {
		return fmt.Errorf("page %d: failed to filter content: %w", p.index, err)
	}
	dropped := p.dropAnnotations(masks)

	var b strings.Builder
	b.WriteString("q\n")
	b.Write(filter.out.Bytes())
	b.WriteString("Q\n")
	for i, m := range p.masks {
		fmt.Fprintf(&b, "q\n%s\n%s\nf\nQ\n", colorOp(m.fill, "rg"), reOp(masks[i]))
	}
	p.content = []byte(b.String())
	p.wrapped = true
	p.touch()

	slog.Debug("Applied redactions",
		"page", p.index,
		"masks", len(p.masks),
		"removed", filter.removed,
		"annotations", dropped)
	p.masks = nil
	return nil
}

func (p *Page) dropAnnotations(masks []geometry.Rect) int {
	annots, err := arrayOf(p.doc.ctx, p.dict["Annots"])
	if err != nil || len(annots) == 0 {
		return 0
	}
	kept := make(types.Array, 0, len(annots))
	for _, a := range annots {
		d, err := dictOf(p.doc.ctx, a)
		if err == nil && d != nil {
			if r, ok := boxOf(p.doc.ctx, d["Rect"]); ok && intersectsAny(r, masks) {
				continue
			}
		}
		kept = append(kept, a)
	}
	dropped := len(annots) - len(kept)
	if dropped > 0 {
		p.dict["Annots"] = kept
	}
	return dropped
}

func intersectsAny(r geometry.Rect, masks []geometry.Rect) bool {
	for _, m := range masks {
		if m.Intersects(r) {
			return true
		}
	}
	return false
}

// ShowSourcePage draws a page of src into target through a form XObject
func (p *Page) ShowSourcePage(target geometry.Rect, src document.Document, srcIndex int, keepProportion bool) error {
	s, ok := src.(*Doc)
	if !ok {
		return document.ErrForeignDocument
	}
	sp, err := s.page(srcIndex)
	if err != nil {
		return err
	}
	if !target.Valid() {
		return fmt.Errorf("invalid target %s", target)
	}

	fm, err := p.doc.formFor(s, sp)
	if err != nil {
		return fmt.Errorf("failed to embed page %d: %w", srcIndex, err)
	}

	placed := target
	if keepProportion {
		pl, err := compose.Fit(fm.width, fm.height, target)
		if err != nil {
			return err
		}
		placed = pl.Rect
	}

	if err := p.begin(); err != nil {
		return err
	}
	res, err := ownedDict(p.doc.ctx, p.dict, "Resources")
	if err != nil {
		return err
	}
	xobjects, err := ownedDict(p.doc.ctx, res, "XObject")
	if err != nil {
		return err
	}
	name := uniqueName(xobjects, "PTX", &p.doc.seq, fm.ref)

	at := p.userRect(placed)
	m := geometry.Scale(placed.Width()/fm.width, placed.Height()/fm.height).
		Multiply(geometry.Translate(at.X0, at.Y0))
	p.appendContent(fmt.Sprintf("q\n%s\n/%s Do\nQ\n", matrixOp(m), name))
	return nil
}

// form is a page of some document embedded as a form XObject
type form struct {
	ref    types.IndirectRef
	width  float64
	height float64
}

// formFor embeds sp as a form XObject of d. The form's matrix maps the page
// to its displayed, upright frame so callers only scale and translate.
func (d *Doc) formFor(src *Doc, sp *Page) (form, error) {
	key := formKey{src: src, page: sp.index, version: sp.version}
	if f, ok := d.forms[key]; ok {
		return f, nil
	}
	if err := sp.load(); err != nil {
		return form{}, err
	}

	var resources types.Object = types.Dict{}
	if r, ok := sp.dict["Resources"]; ok {
		resources = r
		if src != d {
			copied, err := d.migratorFor(src).copy(r)
			if err != nil {
				return form{}, err
			}
			resources = copied
		}
	}

	entries := types.Dict{
		"Type":      types.Name("XObject"),
		"Subtype":   types.Name("Form"),
		"FormType":  types.Integer(1),
		"BBox":      boxArray(sp.box),
		"Matrix":    matrixArray(sp.upright()),
		"Resources": resources,
	}
	ref, err := newStream(d.ctx, sp.content, entries)
	if err != nil {
		return form{}, err
	}
	w, h := sp.Size()
	f := form{ref: ref, width: w, height: h}
	d.forms[key] = f
	d.track(src)
	return f, nil
}
