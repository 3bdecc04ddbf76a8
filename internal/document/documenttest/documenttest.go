// Package documenttest provides an in-memory, recording implementation of
// the document interfaces for tests.
package documenttest

import (
	"fmt"
	"os"
	"sort"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// PageSpec describes a page of a fake document
type PageSpec struct {
	Width, Height float64
	Rotation      int
	// Items are pieces of content, used to observe redaction.
	Items []geometry.Rect
	// CopyErr makes InsertPages fail when it reaches this page
	CopyErr error
}

// Op kinds recorded by Page
const (
	OpShow  = "show"
	OpLine  = "line"
	OpText  = "text"
	OpLayer = "layer"
)

// Op is one recorded drawing call
type Op struct {
	Kind     string
	Rect     geometry.Rect
	P0, P1   geometry.Point
	Text     string
	Font     document.Font
	Align    document.Align
	Style    document.Style
	Rects    []geometry.Rect // rectangles of a shape layer
	SrcIndex int
	SrcDoc   *Doc
}

// Opener serves registered documents by path and remembers saved output
type Opener struct {
	docs  map[string]*Doc
	Saved map[string]*Doc
	// Opened lists paths in the order they were opened
	Opened []string
	// Handed holds every document returned by Open or New
	Handed []*Doc
}

// NewOpener creates an empty opener
func NewOpener() *Opener {
	return &Opener{
		docs:  make(map[string]*Doc),
		Saved: make(map[string]*Doc),
	}
}

// Add registers a document template under path
func (o *Opener) Add(path string, doc *Doc) {
	o.docs[path] = doc
}

// Open returns a fresh copy of the registered document
func (o *Opener) Open(path string) (document.Document, error) {
	tmpl, ok := o.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such document", document.ErrOpen, path)
	}
	o.Opened = append(o.Opened, path)
	doc := tmpl.clone()
	doc.opener = o
	doc.Path = path
	o.Handed = append(o.Handed, doc)
	return doc, nil
}

// New returns an empty document
func (o *Opener) New() (document.Document, error) {
	doc := &Doc{opener: o}
	o.Handed = append(o.Handed, doc)
	return doc, nil
}

// Doc is an in-memory document
type Doc struct {
	Path       string
	Pages      []*Page
	CloseCount int
	SaveErr    error
	SavedWith  document.SaveOptions
	opener     *Opener
}

// NewDoc builds a document from page specs
func NewDoc(pages ...PageSpec) *Doc {
	d := &Doc{}
	for _, spec := range pages {
		d.Pages = append(d.Pages, &Page{
			doc:      d,
			index:    len(d.Pages),
			width:    spec.Width,
			height:   spec.Height,
			rotation: spec.Rotation,
			Items:    append([]geometry.Rect(nil), spec.Items...),
			CopyErr:  spec.CopyErr,
		})
	}
	return d
}

func (d *Doc) clone() *Doc {
	c := &Doc{Path: d.Path, SaveErr: d.SaveErr}
	for _, p := range d.Pages {
		c.Pages = append(c.Pages, p.clone(c, len(c.Pages)))
	}
	return c
}

func (d *Doc) PageCount() int { return len(d.Pages) }

func (d *Doc) Page(index int) (document.Page, error) {
	if index < 0 || index >= len(d.Pages) {
		return nil, fmt.Errorf("%w: %d", document.ErrPageRange, index)
	}
	return d.Pages[index], nil
}

func (d *Doc) NewPage(width, height float64) (document.Page, error) {
	p := &Page{doc: d, index: len(d.Pages), width: width, height: height}
	d.Pages = append(d.Pages, p)
	return p, nil
}

func (d *Doc) InsertPages(src document.Document, from, to int) error {
	s, ok := src.(*Doc)
	if !ok {
		return document.ErrForeignDocument
	}
	if from < 0 || to >= len(s.Pages) || from > to {
		return fmt.Errorf("%w: %d-%d", document.ErrPageRange, from, to)
	}
	before := len(d.Pages)
	for i := from; i <= to; i++ {
		if err := s.Pages[i].CopyErr; err != nil {
			d.Pages = d.Pages[:before]
			return fmt.Errorf("failed to copy page %d: %w", i, err)
		}
		p := s.Pages[i].clone(d, len(d.Pages))
		p.CopiedFrom = s.Path
		p.CopiedIndex = i
		d.Pages = append(d.Pages, p)
	}
	return nil
}

// Save records the document in the opener and writes a marker file
func (d *Doc) Save(path string, opts document.SaveOptions) error {
	if d.SaveErr != nil {
		return d.SaveErr
	}
	d.SavedWith = opts
	if err := os.WriteFile(path, []byte("%PDF-fake\n"), 0644); err != nil {
		return err
	}
	if d.opener != nil {
		saved := d.clone()
		saved.Path = path
		d.opener.Saved[path] = saved
	}
	return nil
}

func (d *Doc) Close() error {
	d.CloseCount++
	return nil
}

// Page is an in-memory page recording every call
type Page struct {
	doc      *Doc
	index    int
	width    float64
	height   float64
	rotation int

	Ops         []Op
	Items       []geometry.Rect
	Fills       []geometry.Rect
	Pending     []geometry.Rect
	Normalized  int
	CopiedFrom  string
	CopiedIndex int
	// TextErr is returned by InsertTextBox when set
	TextErr error
	CopyErr error
}

func (p *Page) clone(owner *Doc, index int) *Page {
	c := *p
	c.doc = owner
	c.index = index
	c.Ops = append([]Op(nil), p.Ops...)
	c.Items = append([]geometry.Rect(nil), p.Items...)
	c.Fills = append([]geometry.Rect(nil), p.Fills...)
	c.Pending = nil
	return &c
}

func (p *Page) Index() int { return p.index }

func (p *Page) Size() (float64, float64) {
	if p.rotation == 90 || p.rotation == 270 {
		return p.height, p.width
	}
	return p.width, p.height
}

func (p *Page) Rotation() int { return p.rotation }

func (p *Page) NormalizeRotation() error {
	p.Normalized++
	if p.rotation == 90 || p.rotation == 270 {
		p.width, p.height = p.height, p.width
	}
	p.rotation = 0
	return nil
}

func (p *Page) NewShape() document.Shape {
	return &Shape{page: p}
}

func (p *Page) DrawLine(p0, p1 geometry.Point, style document.Style) error {
	p.Ops = append(p.Ops, Op{Kind: OpLine, P0: p0, P1: p1, Style: style})
	return nil
}

func (p *Page) InsertTextBox(box geometry.Rect, text string, font document.Font, align document.Align) error {
	if p.TextErr != nil {
		return p.TextErr
	}
	p.Ops = append(p.Ops, Op{Kind: OpText, Rect: box, Text: text, Font: font, Align: align})
	return nil
}

func (p *Page) AddRedactionMask(box geometry.Rect, fill document.Color) error {
	p.Pending = append(p.Pending, box)
	return nil
}

// ApplyRedactions drops every item intersecting a pending mask
func (p *Page) ApplyRedactions() error {
	for _, m := range p.Pending {
		kept := p.Items[:0]
		for _, it := range p.Items {
			if !it.Intersects(m) {
				kept = append(kept, it)
			}
		}
		p.Items = kept
		p.Fills = append(p.Fills, m)
	}
	p.Pending = nil
	return nil
}

func (p *Page) ShowSourcePage(target geometry.Rect, src document.Document, srcIndex int, keepProportion bool) error {
	s, ok := src.(*Doc)
	if !ok {
		return document.ErrForeignDocument
	}
	if srcIndex < 0 || srcIndex >= len(s.Pages) {
		return fmt.Errorf("%w: %d", document.ErrPageRange, srcIndex)
	}
	p.Ops = append(p.Ops, Op{Kind: OpShow, Rect: target, SrcIndex: srcIndex, SrcDoc: s})
	return nil
}

// Visible returns the remaining items and the distinct painted masks, sorted
func (p *Page) Visible() (items, fills []geometry.Rect) {
	items = append([]geometry.Rect(nil), p.Items...)
	seen := make(map[geometry.Rect]bool)
	for _, f := range p.Fills {
		if !seen[f] {
			seen[f] = true
			fills = append(fills, f)
		}
	}
	sortRects(items)
	sortRects(fills)
	return items, fills
}

// OpsOf returns the recorded ops of one kind
func (p *Page) OpsOf(kind string) []Op {
	var out []Op
	for _, op := range p.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func sortRects(rs []geometry.Rect) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Y0 != b.Y0 {
			return a.Y0 < b.Y0
		}
		if a.X0 != b.X0 {
			return a.X0 < b.X0
		}
		if a.Y1 != b.Y1 {
			return a.Y1 < b.Y1
		}
		return a.X1 < b.X1
	})
}

// Shape records rectangles and the layers they were finished with
type Shape struct {
	page      *Page
	pending   []geometry.Rect
	Layers    []Op
	Committed bool
}

func (s *Shape) DrawRect(r geometry.Rect) {
	s.pending = append(s.pending, r)
}

func (s *Shape) Finish(style document.Style) {
	s.Layers = append(s.Layers, Op{Kind: OpLayer, Style: style, Rects: s.pending})
	s.pending = nil
}

func (s *Shape) Commit() error {
	s.Committed = true
	s.page.Ops = append(s.page.Ops, s.Layers...)
	return nil
}
