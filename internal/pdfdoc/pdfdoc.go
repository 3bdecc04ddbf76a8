// Package pdfdoc implements the document model on top of pdfcpu.
//
// Pages keep their content in memory while they are changed and are written
// back as new content streams on Save. Everything drawn goes through the
// same top-left coordinate frame the layout engine uses.
package pdfdoc

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// maxTreeDepth bounds the page tree walk
const maxTreeDepth = 64

var disableConfigDir sync.Once

// Opener opens and creates pdfcpu backed documents
type Opener struct {
	// FontDir is searched for relative TrueType font names.
	FontDir string
}

// NewOpener returns an Opener that loads extra fonts from fontDir
func NewOpener(fontDir string) *Opener {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Opener{FontDir: fontDir}
}

func (o *Opener) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Open reads and validates the PDF at path
func (o *Opener) Open(path string) (document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", document.ErrOpen, path, err)
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, o.configuration())
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", document.ErrOpen, path, err)
	}
	d, err := o.newDoc(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", document.ErrOpen, path, err)
	}
	slog.Debug("Opened document", "path", path, "pages", len(d.pages))
	return d, nil
}

// New creates an empty document
func (o *Opener) New() (document.Document, error) {
	blank := rawPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
	)
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(blank), o.configuration())
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	d, err := o.newDoc(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	// the seed page only exists to make the blank file valid
	d.pages = nil
	return d, nil
}

// rawPDF serializes objects numbered from 1, the first being the catalog,
// with a matching cross-reference table
func rawPDF(objects ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objects))
	for i, o := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type formKey struct {
	src     *Doc
	page    int
	version int
}

// Doc is a pdfcpu context plus the page list and caches of one document
type Doc struct {
	opener   *Opener
	ctx      *model.Context
	path     string
	pagesRef types.IndirectRef
	pages    []*Page
	closed   bool

	// seq numbers generated resource names
	seq       int
	migrators map[*Doc]*migrator
	forms     map[formKey]form
	faces     map[string]*face
	fontRefs  map[string]types.IndirectRef

	// dependents cache objects of this document and drop them on Close
	dependents map[*Doc]bool
}

func (o *Opener) newDoc(ctx *model.Context, path string) (*Doc, error) {
	d := &Doc{
		opener:    o,
		ctx:       ctx,
		path:      path,
		migrators: map[*Doc]*migrator{},
		forms:     map[formKey]form{},
		faces:     map[string]*face{},
		fontRefs:  map[string]types.IndirectRef{},

		dependents: map[*Doc]bool{},
	}
	if err := d.loadPages(); err != nil {
		return nil, err
	}
	return d, nil
}

// inherited carries the page attributes a Pages node passes to its kids
type inherited struct {
	resources types.Object
	mediaBox  types.Object
	cropBox   types.Object
	rotate    types.Object
}

func (in inherited) from(node types.Dict) inherited {
	if v, ok := node["Resources"]; ok {
		in.resources = v
	}
	if v, ok := node["MediaBox"]; ok {
		in.mediaBox = v
	}
	if v, ok := node["CropBox"]; ok {
		in.cropBox = v
	}
	if v, ok := node["Rotate"]; ok {
		in.rotate = v
	}
	return in
}

func (d *Doc) loadPages() error {
	if d.ctx.Root == nil {
		return fmt.Errorf("document has no catalog")
	}
	catalog, err := dictOf(d.ctx, *d.ctx.Root)
	if err != nil || catalog == nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	ref, ok := catalog["Pages"].(types.IndirectRef)
	if !ok {
		return fmt.Errorf("catalog has no page tree")
	}
	d.pagesRef = ref
	return d.walk(ref, inherited{}, 0, map[int]bool{})
}

func (d *Doc) walk(ref types.IndirectRef, in inherited, depth int, seen map[int]bool) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d", maxTreeDepth)
	}
	objNr := int(ref.ObjectNumber)
	if seen[objNr] {
		return fmt.Errorf("page tree cycle at object %d", objNr)
	}
	seen[objNr] = true

	node, err := dictOf(d.ctx, ref)
	if err != nil {
		return err
	}
	if node == nil {
		return nil
	}
	in = in.from(node)

	if nameOf(d.ctx, node, "Type") != "Page" {
		if kids, ok := node["Kids"]; ok {
			arr, err := arrayOf(d.ctx, kids)
			if err != nil {
				return err
			}
			for _, k := range arr {
				kref, ok := k.(types.IndirectRef)
				if !ok {
					continue
				}
				if err := d.walk(kref, in, depth+1, seen); err != nil {
					return err
				}
			}
			return nil
		}
	}

	// inherited attributes become the page's own so pages can move freely
	if _, ok := node["Resources"]; !ok && in.resources != nil {
		node["Resources"] = in.resources
	}
	if _, ok := node["MediaBox"]; !ok && in.mediaBox != nil {
		node["MediaBox"] = in.mediaBox
	}
	if _, ok := node["CropBox"]; !ok && in.cropBox != nil {
		node["CropBox"] = in.cropBox
	}
	if _, ok := node["Rotate"]; !ok && in.rotate != nil {
		node["Rotate"] = in.rotate
	}
	d.pages = append(d.pages, d.pageFor(ref, node, len(d.pages)))
	return nil
}

func (d *Doc) pageFor(ref types.IndirectRef, dict types.Dict, index int) *Page {
	box, ok := boxOf(d.ctx, dict["MediaBox"])
	if !ok || !box.Valid() {
		box = geometry.NewRect(0, 0, 612, 792)
	}
	if crop, ok := boxOf(d.ctx, dict["CropBox"]); ok {
		if c := crop.Intersection(box); c.Valid() {
			box = c
		}
	}
	rot := 0
	if v, ok := numberOf(d.ctx, dict["Rotate"]); ok {
		rot = normalizeRotation(int(v))
	}
	return &Page{doc: d, ref: ref, dict: dict, index: index, box: box, rotation: rot}
}

func normalizeRotation(r int) int {
	r = ((r % 360) + 360) % 360
	return r / 90 * 90
}

func (d *Doc) check() error {
	if d.closed {
		return document.ErrClosed
	}
	return nil
}

// PageCount returns the number of pages, 0 once closed
func (d *Doc) PageCount() int {
	if d.closed {
		return 0
	}
	return len(d.pages)
}

// Page returns page index
func (d *Doc) Page(index int) (document.Page, error) {
	p, err := d.page(index)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Doc) page(index int) (*Page, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", document.ErrPageRange, index, len(d.pages))
	}
	return d.pages[index], nil
}

// NewPage appends an empty page
func (d *Doc) NewPage(width, height float64) (document.Page, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid page size %gx%g", width, height)
	}
	dict := types.Dict{
		"Type":      types.Name("Page"),
		"Parent":    d.pagesRef,
		"MediaBox":  numberArray(0, 0, width, height),
		"Resources": types.Dict{},
	}
	ref, err := d.ctx.IndRefForNewObject(dict)
	if err != nil {
		return nil, fmt.Errorf("failed to add page: %w", err)
	}
	p := d.pageFor(*ref, dict, len(d.pages))
	p.loaded = true
	p.wrapped = true
	d.pages = append(d.pages, p)
	return p, nil
}

// InsertPages appends pages [from, to] of src. Pages changed in memory are
// copied in their current state.
func (d *Doc) InsertPages(src document.Document, from, to int) error {
	if err := d.check(); err != nil {
		return err
	}
	s, ok := src.(*Doc)
	if !ok {
		return document.ErrForeignDocument
	}
	if err := s.check(); err != nil {
		return err
	}
	if from < 0 || to >= len(s.pages) || from > to {
		return fmt.Errorf("%w: [%d, %d] of %d", document.ErrPageRange, from, to, len(s.pages))
	}

	before := len(d.pages)
	for i := from; i <= to; i++ {
		if err := d.copyPage(s, s.pages[i]); err != nil {
			// the migrator may alias objects that were never filled in
			d.pages = d.pages[:before]
			delete(d.migrators, s)
			return fmt.Errorf("failed to copy page %d: %w", i, err)
		}
	}
	return nil
}

func (d *Doc) migratorFor(src *Doc) *migrator {
	m, ok := d.migrators[src]
	if !ok {
		m = newMigrator(src.ctx, d.ctx)
		d.migrators[src] = m
		d.track(src)
	}
	return m
}

// track records that d caches objects of src
func (d *Doc) track(src *Doc) {
	if src != d && src.dependents != nil {
		src.dependents[d] = true
	}
}

// forget drops everything d caches about src
func (d *Doc) forget(src *Doc) {
	delete(d.migrators, src)
	for k := range d.forms {
		if k.src == src {
			delete(d.forms, k)
		}
	}
}

func (d *Doc) copyPage(src *Doc, sp *Page) error {
	skip := map[string]bool{"Parent": true}
	if sp.loaded {
		skip["Contents"] = true
	}

	var dict types.Dict
	ref, err := d.ctx.IndRefForNewObject(nil)
	if err != nil {
		return err
	}
	if src == d {
		dict = cloneObject(sp.dict).(types.Dict)
		for k := range skip {
			delete(dict, k)
		}
	} else {
		m := d.migratorFor(src)
		m.alias(sp.ref, *ref)
		dict, err = m.copyDict(sp.dict, skip)
		if err != nil {
			return err
		}
	}
	dict["Parent"] = d.pagesRef
	d.ctx.Table[int(ref.ObjectNumber)].Object = dict

	p := d.pageFor(*ref, dict, len(d.pages))
	if sp.loaded {
		p.content = append([]byte(nil), sp.content...)
		p.loaded = true
		p.wrapped = sp.wrapped
		p.dirty = true
	}
	d.pages = append(d.pages, p)
	return nil
}

// Save writes the document to path through a temporary file in the same
// directory, so a failed save never leaves a truncated output behind.
func (d *Doc) Save(path string, opts document.SaveOptions) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := d.flush(); err != nil {
		return err
	}
	if opts.Compact {
		if err := api.OptimizeContext(d.ctx); err != nil {
			return fmt.Errorf("failed to optimize: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdftoolkit-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := api.WriteContext(d.ctx, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	slog.Debug("Saved document", "path", path, "pages", len(d.pages), "compact", opts.Compact)
	return nil
}

// flush writes changed page content and rebuilds the page tree as a single
// flat Pages node in page order.
func (d *Doc) flush() error {
	kids := make(types.Array, 0, len(d.pages))
	for _, p := range d.pages {
		if p.dirty {
			ref, err := newStream(d.ctx, p.content, types.Dict{})
			if err != nil {
				return fmt.Errorf("page %d: %w", p.index, err)
			}
			p.dict["Contents"] = ref
			p.dirty = false
		}
		p.dict["Parent"] = d.pagesRef
		kids = append(kids, p.ref)
	}

	root, err := dictOf(d.ctx, d.pagesRef)
	if err != nil || root == nil {
		return fmt.Errorf("failed to read page tree: %w", err)
	}
	root["Kids"] = kids
	root["Count"] = types.Integer(len(d.pages))
	d.ctx.PageCount = len(d.pages)
	return nil
}

// Close releases the document. Later calls fail with document.ErrClosed.
func (d *Doc) Close() error {
	if d.closed {
		return document.ErrClosed
	}
	d.closed = true
	for dep := range d.dependents {
		dep.forget(d)
	}
	for src := range d.migrators {
		delete(src.dependents, d)
	}
	for k := range d.forms {
		delete(k.src.dependents, d)
	}
	d.ctx = nil
	d.pages = nil
	d.migrators = nil
	d.forms = nil
	d.dependents = nil
	return nil
}

// face loads and caches a font by name
func (d *Doc) face(name string) (*face, error) {
	if name == "" {
		name = DefaultFont
	}
	if f, ok := d.faces[name]; ok {
		return f, nil
	}
	f, err := loadFace(name, d.opener.FontDir)
	if err != nil {
		return nil, err
	}
	d.faces[name] = f
	return f, nil
}

// fontRef embeds a face once per document
func (d *Doc) fontRef(f *face) (types.IndirectRef, error) {
	if ref, ok := d.fontRefs[f.name]; ok {
		return ref, nil
	}
	ref, err := f.embed(d.ctx)
	if err != nil {
		return types.IndirectRef{}, err
	}
	d.fontRefs[f.name] = ref
	return ref, nil
}
