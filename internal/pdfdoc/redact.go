package pdfdoc

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	corefont "github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// maxFormDepth bounds recursion into nested form XObjects. Deeper forms that
// touch a mask are dropped whole.
const maxFormDepth = 8

// glyph space box of a glyph relative to its origin, in em
const (
	glyphBottom = -0.25
	glyphTop    = 0.95
)

type textState struct {
	font      string
	size      float64
	charSpace float64
	wordSpace float64
	scale     float64
	leading   float64
	rise      float64
}

type graphicsState struct {
	ctm  geometry.Matrix
	text textState
}

// fontMetrics holds what the filter needs to measure shown strings
type fontMetrics struct {
	twoByte   bool
	unit      float64 // glyph space to text space
	firstChar int
	widths    []float64
	cidWidths map[int]float64
	missing   float64
}

func (m *fontMetrics) width(code int) float64 {
	if m.twoByte {
		if w, ok := m.cidWidths[code]; ok {
			return w * m.unit
		}
		return m.missing * m.unit
	}
	i := code - m.firstChar
	if i >= 0 && i < len(m.widths) {
		return m.widths[i] * m.unit
	}
	return m.missing * m.unit
}

// contentFilter rewrites one content stream, dropping everything that is
// drawn inside a mask. Masks are in the user space of the page.
type contentFilter struct {
	doc   *Doc
	masks []geometry.Rect
	fills []document.Color // per mask, black when missing
	res   types.Dict
	depth int

	fonts map[string]*fontMetrics
	gs    graphicsState
	stack []graphicsState
	tm    geometry.Matrix
	tlm   geometry.Matrix
	path  []geometry.Point
	// rectangles of the current path in its own space, valid while the
	// path holds no other segments
	pathRects  []geometry.Rect
	pathCurves bool

	out     bytes.Buffer
	changed bool
	removed int
}

func newContentFilter(doc *Doc, masks []geometry.Rect, res types.Dict, ctm geometry.Matrix, depth int) *contentFilter {
	return &contentFilter{
		doc:   doc,
		masks: masks,
		res:   res,
		depth: depth,
		fonts: map[string]*fontMetrics{},
		gs:    graphicsState{ctm: ctm, text: textState{scale: 1}},
		tm:    geometry.Identity(),
		tlm:   geometry.Identity(),
	}
}

func (f *contentFilter) intersects(r geometry.Rect) bool {
	for _, m := range f.masks {
		if m.Intersects(r) {
			return true
		}
	}
	return false
}

func (f *contentFilter) covered(r geometry.Rect) bool {
	for _, m := range f.masks {
		if m.Contains(r) {
			return true
		}
	}
	return false
}

// run filters data. Unbalanced q operators are closed at the end so the
// caller can append content in a clean state.
func (f *contentFilter) run(data []byte) error {
	ops, err := parseContent(data)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := f.apply(data, op); err != nil {
			return err
		}
	}
	for range f.stack {
		f.out.WriteString("Q\n")
	}
	return nil
}

func (f *contentFilter) keep(data []byte, op operation) {
	f.out.Write(data[op.start:op.end])
	f.out.WriteByte('\n')
}

func (f *contentFilter) apply(data []byte, op operation) error {
	nums, _ := op.numbers()
	ts := &f.gs.text

	switch op.op {
	case "q":
		f.stack = append(f.stack, f.gs)
	case "Q":
		if len(f.stack) == 0 {
			// stray Q would pop state we do not own
			f.changed = true
			return nil
		}
		f.gs = f.stack[len(f.stack)-1]
		f.stack = f.stack[:len(f.stack)-1]
	case "cm":
		if len(nums) == 6 {
			var m geometry.Matrix
			copy(m[:], nums)
			f.gs.ctm = m.Multiply(f.gs.ctm)
		}

	case "BT":
		f.tm = geometry.Identity()
		f.tlm = geometry.Identity()
	case "Tf":
		if name, ok := firstName(op); ok && len(op.operands) == 2 && op.operands[1].kind == kindNumber {
			ts.font = name
			ts.size = op.operands[1].num
		}
	case "Tc":
		if len(nums) == 1 {
			ts.charSpace = nums[0]
		}
	case "Tw":
		if len(nums) == 1 {
			ts.wordSpace = nums[0]
		}
	case "Tz":
		if len(nums) == 1 {
			ts.scale = nums[0] / 100
		}
	case "TL":
		if len(nums) == 1 {
			ts.leading = nums[0]
		}
	case "Ts":
		if len(nums) == 1 {
			ts.rise = nums[0]
		}
	case "Td":
		if len(nums) == 2 {
			f.moveLine(nums[0], nums[1])
		}
	case "TD":
		if len(nums) == 2 {
			ts.leading = -nums[1]
			f.moveLine(nums[0], nums[1])
		}
	case "Tm":
		if len(nums) == 6 {
			copy(f.tlm[:], nums)
			f.tm = f.tlm
		}
	case "T*":
		f.moveLine(0, -ts.leading)

	case "Tj", "TJ", "'", "\"":
		return f.showText(data, op)

	case "m", "l":
		f.pathCurves = true
		if len(nums) == 2 {
			f.addPoints(nums)
		}
	case "c":
		f.pathCurves = true
		if len(nums) == 6 {
			f.addPoints(nums)
		}
	case "v", "y":
		f.pathCurves = true
		if len(nums) == 4 {
			f.addPoints(nums)
		}
	case "re":
		if len(nums) == 4 {
			x, y, w, h := nums[0], nums[1], nums[2], nums[3]
			f.addPoints([]float64{x, y, x + w, y, x + w, y + h, x, y + h})
			f.pathRects = append(f.pathRects, geometry.BoundingRect(
				geometry.Point{X: x, Y: y}, geometry.Point{X: x + w, Y: y + h}))
		}
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		path, rects, curves := f.path, f.pathRects, f.pathCurves
		f.resetPath()
		if len(path) == 0 || !f.intersects(geometry.BoundingRect(path...)) {
			break
		}
		f.out.WriteString("n\n")
		f.changed = true
		f.removed++
		if isFill(op.op) && !curves && f.splitRects(rects) > 0 {
			f.keep(data, op)
		}
		return nil
	case "n":
		f.resetPath()

	case "Do":
		return f.paintXObject(data, op)
	case "BI":
		return f.paintImage(data, op, "inline", func() (*types.StreamDict, error) {
			return f.inlineImage(data, op)
		})
	}

	f.keep(data, op)
	return nil
}

func firstName(op operation) (string, bool) {
	if len(op.operands) == 0 || op.operands[0].kind != kindName {
		return "", false
	}
	return string(op.operands[0].str), true
}

func (f *contentFilter) moveLine(tx, ty float64) {
	f.tlm = geometry.Translate(tx, ty).Multiply(f.tlm)
	f.tm = f.tlm
}

func (f *contentFilter) resetPath() {
	f.path = nil
	f.pathRects = nil
	f.pathCurves = false
}

func isFill(op string) bool {
	return op == "f" || op == "F" || op == "f*"
}

// splitRects writes the parts of rects that lie outside every mask as a new
// path and returns how many rectangles it wrote. Paths under a skewed matrix or a
// rotation other than a quarter turn are not split.
func (f *contentFilter) splitRects(rects []geometry.Rect) int {
	if !f.gs.ctm.Rectilinear() {
		return 0
	}
	inv, ok := f.gs.ctm.Invert()
	if !ok {
		return 0
	}
	pieces := rects
	for _, m := range f.masks {
		cut := inv.TransformRect(m)
		var next []geometry.Rect
		for _, r := range pieces {
			next = append(next, r.Subtract(cut)...)
		}
		pieces = next
	}
	for _, r := range pieces {
		fmt.Fprintf(&f.out, "%s %s %s %s re\n", num(r.X0), num(r.Y0), num(r.Width()), num(r.Height()))
	}
	return len(pieces)
}

func (f *contentFilter) addPoints(xy []float64) {
	for i := 0; i+1 < len(xy); i += 2 {
		f.path = append(f.path, f.gs.ctm.Transform(geometry.Point{X: xy[i], Y: xy[i+1]}))
	}
}

// showText measures every glyph of a text-show operator. When any glyph
// lies in a mask the operator is rewritten as a TJ that keeps the other
// glyphs and replaces removed ones with an equal displacement.
func (f *contentFilter) showText(data []byte, op operation) error {
	ts := &f.gs.text
	var prefix string
	var items []operand

	switch op.op {
	case "Tj":
		items = op.operands
	case "TJ":
		if len(op.operands) == 1 && op.operands[0].kind == kindArray {
			items = op.operands[0].items
		}
	case "'":
		f.moveLine(0, -ts.leading)
		prefix = "T*\n"
		items = op.operands
	case "\"":
		if len(op.operands) == 3 {
			ts.wordSpace = op.operands[0].num
			ts.charSpace = op.operands[1].num
			f.moveLine(0, -ts.leading)
			prefix = fmt.Sprintf("%s Tw %s Tc T*\n", num(ts.wordSpace), num(ts.charSpace))
			items = op.operands[2:]
		}
	}

	metrics := f.fontMetrics(ts.font)
	var parts []string
	var run []byte
	flush := func() {
		if len(run) > 0 {
			parts = append(parts, hexString(run))
			run = nil
		}
	}
	removed := false

	for _, it := range items {
		switch it.kind {
		case kindNumber:
			flush()
			parts = append(parts, num(it.num))
			f.advance(-it.num / 1000 * ts.size * ts.scale)
		case kindString:
			step := 1
			if metrics.twoByte {
				step = 2
			}
			for i := 0; i+step <= len(it.str); i += step {
				code := int(it.str[i])
				if step == 2 {
					code = code<<8 | int(it.str[i+1])
				}
				w0 := metrics.width(code)
				adv := w0*ts.size + ts.charSpace
				if step == 1 && code == ' ' {
					adv += ts.wordSpace
				}
				if f.glyphMasked(w0) {
					removed = true
					flush()
					if ts.size != 0 {
						parts = append(parts, num(-adv*1000/ts.size))
					}
				} else {
					run = append(run, it.str[i:i+step]...)
				}
				f.advance(adv * ts.scale)
			}
		}
	}
	flush()

	if !removed {
		f.keep(data, op)
		return nil
	}
	f.changed = true
	f.removed++
	f.out.WriteString(prefix)
	f.out.WriteString("[" + strings.Join(parts, " ") + "] TJ\n")
	return nil
}

func (f *contentFilter) advance(tx float64) {
	f.tm = geometry.Translate(tx, 0).Multiply(f.tm)
}

func (f *contentFilter) glyphMasked(w0 float64) bool {
	ts := f.gs.text
	if ts.size == 0 {
		return false
	}
	if w0 <= 0 {
		w0 = 0.5
	}
	trm := geometry.Matrix{ts.size * ts.scale, 0, 0, ts.size, 0, ts.rise}.
		Multiply(f.tm).
		Multiply(f.gs.ctm)
	return f.intersects(trm.TransformRect(geometry.NewRect(0, glyphBottom, w0, glyphTop)))
}

func (f *contentFilter) fontMetrics(name string) *fontMetrics {
	if m, ok := f.fonts[name]; ok {
		return m
	}
	m, err := f.doc.readFontMetrics(f.res, name)
	if err != nil {
		slog.Debug("Using default glyph widths", "font", name, "err", err)
		m = &fontMetrics{unit: 0.001, missing: 500}
	}
	f.fonts[name] = m
	return m
}

// paintXObject redacts images touching a mask, drops forms inside one and
// rewrites forms that are partly covered.
func (f *contentFilter) paintXObject(data []byte, op operation) error {
	name, ok := op.lastName()
	if !ok {
		f.keep(data, op)
		return nil
	}
	sd, err := f.doc.xobject(f.res, name)
	if err != nil || sd == nil {
		f.keep(data, op)
		return nil
	}

	switch nameOf(f.doc.ctx, sd.Dict, "Subtype") {
	case "Image":
		return f.paintImage(data, op, name, func() (*types.StreamDict, error) {
			return sd, nil
		})
	case "Form":
		bbox, ok := boxOf(f.doc.ctx, sd.Dict["BBox"])
		if !ok {
			break
		}
		ctm := matrixOf(f.doc.ctx, sd.Dict["Matrix"]).Multiply(f.gs.ctm)
		extent := ctm.TransformRect(bbox)
		if !f.intersects(extent) {
			break
		}
		if f.covered(extent) || f.depth >= maxFormDepth {
			f.changed = true
			f.removed++
			return nil
		}
		renamed, err := f.filterForm(sd, ctm)
		if err != nil {
			return fmt.Errorf("form %s: %w", name, err)
		}
		if renamed != "" {
			f.changed = true
			f.removed++
			fmt.Fprintf(&f.out, "/%s Do\n", renamed)
			return nil
		}
	}
	f.keep(data, op)
	return nil
}

// filterForm writes a filtered copy of a form and registers it in the
// current resources. It returns "" when the form needed no change.
func (f *contentFilter) filterForm(sd *types.StreamDict, ctm geometry.Matrix) (string, error) {
	content, err := streamContent(*sd)
	if err != nil {
		return "", err
	}
	res := f.res
	if formRes, err := dictOf(f.doc.ctx, sd.Dict["Resources"]); err == nil && formRes != nil {
		res = formRes
	}

	sub := newContentFilter(f.doc, f.masks, res, ctm, f.depth+1)
	sub.fills = f.fills
	sub.gs.text = f.gs.text
	if err := sub.run(content); err != nil {
		return "", err
	}
	if !sub.changed {
		return "", nil
	}
	f.removed += sub.removed

	entries := types.Dict{}
	for k, v := range sd.Dict {
		switch k {
		case "Length", "Filter", "DecodeParms":
			continue
		}
		entries[k] = v
	}
	ref, err := newStream(f.doc.ctx, sub.out.Bytes(), entries)
	if err != nil {
		return "", err
	}
	xobjects, err := ownedDict(f.doc.ctx, f.res, "XObject")
	if err != nil {
		return "", err
	}
	return uniqueName(xobjects, "PTR", &f.doc.seq, ref), nil
}

// readFontMetrics loads glyph widths of a font resource
func (d *Doc) readFontMetrics(res types.Dict, name string) (*fontMetrics, error) {
	fonts, err := dictOf(d.ctx, res["Font"])
	if err != nil || fonts == nil {
		return nil, fmt.Errorf("no font resources")
	}
	fd, err := dictOf(d.ctx, fonts[name])
	if err != nil || fd == nil {
		return nil, fmt.Errorf("font %s not found", name)
	}

	m := &fontMetrics{unit: 0.001, missing: 500}
	switch nameOf(d.ctx, fd, "Subtype") {
	case "Type0":
		m.twoByte = true
		m.missing = 1000
		m.cidWidths = map[int]float64{}
		descendants, err := arrayOf(d.ctx, fd["DescendantFonts"])
		if err != nil || len(descendants) == 0 {
			return m, nil
		}
		cid, err := dictOf(d.ctx, descendants[0])
		if err != nil || cid == nil {
			return m, nil
		}
		if dw, ok := numberOf(d.ctx, cid["DW"]); ok {
			m.missing = dw
		}
		d.readCIDWidths(cid["W"], m.cidWidths)
		return m, nil
	case "Type3":
		fm := matrixOf(d.ctx, fd["FontMatrix"])
		m.unit = fm[0]
		m.missing = 0
	}

	if fc, ok := numberOf(d.ctx, fd["FirstChar"]); ok {
		m.firstChar = int(fc)
	}
	if ws, err := numbers(d.ctx, fd["Widths"]); err == nil && len(ws) > 0 {
		m.widths = ws
	} else if base := coreFontName(nameOf(d.ctx, fd, "BaseFont")); base != "" {
		m.firstChar = 0
		m.widths = make([]float64, 256)
		for c := range m.widths {
			m.widths[c] = float64(corefont.CharWidth(base, rune(c)))
		}
	}
	if desc, err := dictOf(d.ctx, fd["FontDescriptor"]); err == nil && desc != nil {
		if mw, ok := numberOf(d.ctx, desc["MissingWidth"]); ok && mw > 0 {
			m.missing = mw
		}
	}
	return m, nil
}

// coreFontAliases maps common names of the standard 14 fonts
var coreFontAliases = map[string]string{
	"Arial":                    "Helvetica",
	"Arial,Bold":               "Helvetica-Bold",
	"Arial,Italic":             "Helvetica-Oblique",
	"Arial,BoldItalic":         "Helvetica-BoldOblique",
	"TimesNewRoman":            "Times-Roman",
	"TimesNewRoman,Bold":       "Times-Bold",
	"TimesNewRoman,Italic":     "Times-Italic",
	"TimesNewRoman,BoldItalic": "Times-BoldItalic",
	"CourierNew":               "Courier",
	"CourierNew,Bold":          "Courier-Bold",
	"CourierNew,Italic":        "Courier-Oblique",
	"CourierNew,BoldItalic":    "Courier-BoldOblique",
}

// coreFontName returns the standard 14 font a BaseFont refers to, or ""
func coreFontName(base string) string {
	if i := strings.IndexByte(base, '+'); i == 6 {
		base = base[i+1:]
	}
	if alias, ok := coreFontAliases[base]; ok {
		base = alias
	}
	if corefont.IsCoreFont(base) {
		return base
	}
	return ""
}

// readCIDWidths parses a /W array: "c [w1 w2 ...]" and "cfirst clast w"
func (d *Doc) readCIDWidths(o types.Object, out map[int]float64) {
	arr, err := arrayOf(d.ctx, o)
	if err != nil {
		return
	}
	for i := 0; i < len(arr); {
		first, ok := numberOf(d.ctx, arr[i])
		if !ok || i+1 >= len(arr) {
			return
		}
		if list, err := arrayOf(d.ctx, arr[i+1]); err == nil && list != nil {
			for j, e := range list {
				if w, ok := numberOf(d.ctx, e); ok {
					out[int(first)+j] = w
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(arr) {
			return
		}
		last, ok1 := numberOf(d.ctx, arr[i+1])
		w, ok2 := numberOf(d.ctx, arr[i+2])
		if !ok1 || !ok2 {
			return
		}
		for c := int(first); c <= int(last) && c-int(first) < 65536; c++ {
			out[c] = w
		}
		i += 3
	}
}

// xobject resolves a named XObject stream of res
func (d *Doc) xobject(res types.Dict, name string) (*types.StreamDict, error) {
	xobjects, err := dictOf(d.ctx, res["XObject"])
	if err != nil || xobjects == nil {
		return nil, err
	}
	o, err := resolve(d.ctx, xobjects[name])
	if err != nil {
		return nil, err
	}
	sd, ok := o.(types.StreamDict)
	if !ok {
		return nil, nil
	}
	return &sd, nil
}
