package toolkit

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/compose"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document/documenttest"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/grid"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/layout"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/redact"
)

type fixture struct {
	dir    string
	opener *documenttest.Opener
	tk     *Toolkit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	opener := documenttest.NewOpener()
	return &fixture{dir: t.TempDir(), opener: opener, tk: New(opener)}
}

// add registers doc under name and creates a placeholder file on disk so the
// existence guards pass
func (f *fixture) add(t *testing.T, name string, doc *documenttest.Doc) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		f.opener.Add(path, doc)
	}
	return path
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fixture) saved(t *testing.T, path string) *documenttest.Doc {
	t.Helper()
	doc, ok := f.opener.Saved[path]
	if !ok {
		t.Fatalf("nothing saved at %s", path)
	}
	return doc
}

func (f *fixture) assertClosed(t *testing.T) {
	t.Helper()
	for _, d := range f.opener.Handed {
		if d.CloseCount != 1 {
			t.Errorf("document %q closed %d times", d.Path, d.CloseCount)
		}
	}
}

func page(w, h float64) documenttest.PageSpec {
	return documenttest.PageSpec{Width: w, Height: h}
}

func TestHeaderAndPageNumbersEndToEnd(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "Contract 7.pdf", documenttest.NewDoc(page(200, 300), page(200, 300)))
	out := f.path("out.pdf")

	cfg := layout.DefaultConfig()
	cfg.HeaderHeight = 70
	cfg.FooterHeight = 30
	cfg.ShowTotalPages = true

	if err := f.tk.HeaderAndPageNumbers(in, out, cfg, false); err != nil {
		t.Fatalf("HeaderAndPageNumbers() error = %v", err)
	}
	f.assertClosed(t)

	doc := f.saved(t, out)
	if doc.PageCount() != 2 {
		t.Fatalf("saved %d pages, want 2", doc.PageCount())
	}
	if !doc.SavedWith.Compact {
		t.Error("output not compacted")
	}

	want, _ := compose.Fit(200, 300, geometry.NewRect(0, 70, 200, 270))
	for i, p := range doc.Pages {
		shows := p.OpsOf(documenttest.OpShow)
		if len(shows) != 1 || shows[0].Rect != want.Rect || shows[0].SrcIndex != i {
			t.Errorf("page %d show ops = %+v", i+1, shows)
		}
		var texts []string
		for _, op := range p.OpsOf(documenttest.OpText) {
			texts = append(texts, op.Text)
		}
		if len(texts) != 2 || texts[1] != "Contract" {
			t.Errorf("page %d texts = %q", i+1, texts)
		}
	}
	if got := doc.Pages[1].OpsOf(documenttest.OpText)[0].Text; got != "2 / 2" {
		t.Errorf("page number = %q", got)
	}
}

func TestRegionCollapseCopiesVerbatim(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "a.pdf", documenttest.NewDoc(page(200, 300)))
	out := f.path("out.pdf")

	cfg := layout.DefaultConfig()
	cfg.HeaderHeight = 150
	cfg.FooterHeight = 160

	if err := f.tk.HeaderAndPageNumbers(in, out, cfg, false); err != nil {
		t.Fatalf("HeaderAndPageNumbers() error = %v", err)
	}
	doc := f.saved(t, out)
	if doc.PageCount() != 1 {
		t.Fatalf("saved %d pages", doc.PageCount())
	}
	p := doc.Pages[0]
	if p.CopiedFrom != in || p.CopiedIndex != 0 {
		t.Errorf("page not copied verbatim: from %q index %d", p.CopiedFrom, p.CopiedIndex)
	}
	if len(p.Ops) != 0 {
		t.Errorf("collapsed page was drawn on: %+v", p.Ops)
	}
	f.assertClosed(t)
}

func TestRegionCollapseStrict(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "a.pdf", documenttest.NewDoc(page(200, 300)))
	out := f.path("out.pdf")

	cfg := layout.DefaultConfig()
	cfg.HeaderHeight = 150
	cfg.FooterHeight = 160
	cfg.StrictRegions = true

	err := f.tk.HeaderAndPageNumbers(in, out, cfg, false)
	if !errors.Is(err, layout.ErrRegionCollapse) {
		t.Fatalf("error = %v, want ErrRegionCollapse", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output written despite failure")
	}
	f.assertClosed(t)
}

func TestGuards(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "in.pdf", documenttest.NewDoc(page(100, 100)))
	existing := f.add(t, "existing.pdf", nil)

	tests := []struct {
		name      string
		input     string
		output    string
		overwrite bool
		want      error
	}{
		{"missing input", f.path("missing.pdf"), f.path("out.pdf"), true, guard.ErrInputMissing},
		{"same file", in, in, true, guard.ErrSameInputOutput},
		{"existing output", in, existing, false, guard.ErrOutputExists},
	}

	ops := map[string]func(in, out string, overwrite bool) error{
		"mask": func(in, out string, ow bool) error {
			return f.tk.Mask(in, out, nil, redact.DefaultOptions(), ow)
		},
		"grid": func(in, out string, ow bool) error {
			return f.tk.Grid(in, out, grid.DefaultSpec(), ow)
		},
		"header": func(in, out string, ow bool) error {
			return f.tk.Header(in, out, layout.HeaderDefaults(), ow)
		},
		"pagenum": func(in, out string, ow bool) error {
			return f.tk.PageNumbers(in, out, layout.PageNumberDefaults(), ow)
		},
		"frame": func(in, out string, ow bool) error {
			return f.tk.HeaderAndFrame(in, out, layout.DefaultConfig(), ow)
		},
	}

	for opName, run := range ops {
		for _, tt := range tests {
			t.Run(opName+"/"+tt.name, func(t *testing.T) {
				err := run(tt.input, tt.output, tt.overwrite)
				if !errors.Is(err, tt.want) || !guard.Is(err) {
					t.Errorf("error = %v, want guard failure %v", err, tt.want)
				}
			})
		}
	}

	if len(f.opener.Opened) != 0 {
		t.Errorf("documents opened despite failed guards: %v", f.opener.Opened)
	}
	if data, _ := os.ReadFile(existing); string(data) != "%PDF-1.7\n" {
		t.Error("existing output was modified")
	}
}

func TestOpenFailure(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "broken.pdf", nil)
	out := f.path("out.pdf")

	err := f.tk.Header(in, out, layout.HeaderDefaults(), true)
	if !errors.Is(err, document.ErrOpen) {
		t.Fatalf("error = %v, want ErrOpen", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output written after open failure")
	}
	f.assertClosed(t)
}

func TestSaveFailure(t *testing.T) {
	f := newFixture(t)
	src := documenttest.NewDoc(page(100, 100))
	src.SaveErr = errors.New("disk full")
	in := f.add(t, "in.pdf", src)

	err := f.tk.Mask(in, f.path("out.pdf"), nil, redact.DefaultOptions(), true)
	if !errors.Is(err, document.ErrSave) {
		t.Fatalf("error = %v, want ErrSave", err)
	}
	f.assertClosed(t)
}

func TestMask(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "in.pdf", documenttest.NewDoc(
		documenttest.PageSpec{Width: 200, Height: 300, Rotation: 180, Items: []geometry.Rect{
			geometry.NewRect(10, 10, 20, 20),
			geometry.NewRect(150, 150, 160, 160),
		}},
	))
	out := f.path("out.pdf")

	masks := []geometry.Rect{geometry.NewRect(0, 0, 50, 50), geometry.NewRect(5, 5, 1, 1)}
	if err := f.tk.Mask(in, out, masks, redact.DefaultOptions(), false); err != nil {
		t.Fatalf("Mask() error = %v", err)
	}

	p := f.saved(t, out).Pages[0]
	items, fills := p.Visible()
	if len(items) != 1 || items[0] != geometry.NewRect(150, 150, 160, 160) {
		t.Errorf("items = %v", items)
	}
	if len(fills) != 1 {
		t.Errorf("fills = %v", fills)
	}
	if p.Rotation() != 0 {
		t.Errorf("rotation = %d", p.Rotation())
	}
	f.assertClosed(t)
}

func TestGrid(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "in.pdf", documenttest.NewDoc(
		documenttest.PageSpec{Width: 100, Height: 200, Rotation: 90},
		page(50, 50),
	))
	out := f.path("out.pdf")

	if err := f.tk.Grid(in, out, grid.DefaultSpec(), false); err != nil {
		t.Fatalf("Grid() error = %v", err)
	}

	doc := f.saved(t, out)
	first := doc.Pages[0]
	if first.Normalized != 1 {
		t.Error("rotated page not normalized")
	}
	layers := first.OpsOf(documenttest.OpLayer)
	if len(layers) != 3 {
		t.Fatalf("got %d layers", len(layers))
	}
	// 200x100 after normalization
	if n := len(layers[0].Rects); n != 20*10 {
		t.Errorf("thin cells = %d", n)
	}
	if n := len(doc.Pages[1].OpsOf(documenttest.OpLayer)[2].Rects); n != 1 {
		t.Errorf("thick cells on small page = %d", n)
	}
}

func TestHeaderOnlyFirstPage(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "report_2024.pdf", documenttest.NewDoc(page(200, 300), page(200, 300), page(200, 300)))
	out := f.path("out.pdf")

	cfg := layout.HeaderDefaults()
	cfg.Delimiter = layout.DelimiterUnderscore
	cfg.StampOnlyFirstPage = true

	if err := f.tk.Header(in, out, cfg, false); err != nil {
		t.Fatal(err)
	}
	doc := f.saved(t, out)
	for i, p := range doc.Pages {
		texts := p.OpsOf(documenttest.OpText)
		if i == 0 && (len(texts) != 1 || texts[0].Text != "report") {
			t.Errorf("first page texts = %+v", texts)
		}
		if i > 0 && len(texts) != 0 {
			t.Errorf("page %d stamped: %+v", i+1, texts)
		}
		// unscaled overlay
		if shows := p.OpsOf(documenttest.OpShow); len(shows) != 1 || shows[0].Rect != geometry.NewRect(0, 0, 200, 300) {
			t.Errorf("page %d shows = %+v", i+1, shows)
		}
	}
}

func TestPageNumbersRotated(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "in.pdf", documenttest.NewDoc(documenttest.PageSpec{Width: 200, Height: 300, Rotation: 270}))
	out := f.path("out.pdf")

	cfg := layout.PageNumberDefaults()
	cfg.ResizeOriginal = true
	if err := f.tk.PageNumbers(in, out, cfg, false); err != nil {
		t.Fatal(err)
	}
	p := f.saved(t, out).Pages[0]
	if w, h := p.Size(); w != 300 || h != 200 {
		t.Errorf("output page = %vx%v, want 300x200", w, h)
	}
	show := p.OpsOf(documenttest.OpShow)[0].Rect
	if math.Abs(show.Width()/show.Height()-1.5) > 1e-9 {
		t.Errorf("aspect ratio changed: %v", show)
	}
	if texts := p.OpsOf(documenttest.OpText); len(texts) != 1 || texts[0].Text != "1" {
		t.Errorf("texts = %+v", texts)
	}
}

func TestHeaderAndFrame(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "in.pdf", documenttest.NewDoc(page(200, 300)))
	out := f.path("out.pdf")

	cfg := layout.DefaultConfig()
	cfg.DrawFrame = false
	if err := f.tk.HeaderAndFrame(in, out, cfg, false); err != nil {
		t.Fatal(err)
	}
	p := f.saved(t, out).Pages[0]
	if n := len(p.OpsOf(documenttest.OpLayer)); n != 1 {
		t.Errorf("frame layers = %d", n)
	}
	if texts := p.OpsOf(documenttest.OpText); len(texts) != 1 {
		t.Errorf("texts = %+v, want the header only", texts)
	}
}

func TestConcat(t *testing.T) {
	f := newFixture(t)
	ten := f.add(t, "10.pdf", documenttest.NewDoc(page(10, 10), page(10, 10), page(10, 10)))
	one := f.add(t, "1.pdf", documenttest.NewDoc(page(1, 1)))
	two := f.add(t, "2.pdf", documenttest.NewDoc(page(2, 2), page(2, 2)))
	broken := f.add(t, "broken.pdf", nil)
	out := f.add(t, "all.pdf", documenttest.NewDoc(page(99, 99)))

	res, err := f.tk.Concat(f.dir, out, true)
	if err != nil {
		t.Fatalf("Concat() error = %v", err)
	}
	if res.Pages != 6 {
		t.Errorf("pages = %d, want 6", res.Pages)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != broken {
		t.Errorf("skipped = %v", res.Skipped)
	}

	doc := f.saved(t, out)
	wantFrom := []string{one, two, two, ten, ten, ten}
	wantIdx := []int{0, 0, 1, 0, 1, 2}
	if doc.PageCount() != len(wantFrom) {
		t.Fatalf("saved %d pages", doc.PageCount())
	}
	for i, p := range doc.Pages {
		if p.CopiedFrom != wantFrom[i] || p.CopiedIndex != wantIdx[i] {
			t.Errorf("page %d from %s[%d], want %s[%d]", i+1, p.CopiedFrom, p.CopiedIndex, wantFrom[i], wantIdx[i])
		}
	}
	for _, opened := range f.opener.Opened {
		if opened == out {
			t.Error("output file was read as input")
		}
	}
	f.assertClosed(t)
}

func TestConcatDropsPartialInsert(t *testing.T) {
	f := newFixture(t)
	one := f.add(t, "1.pdf", documenttest.NewDoc(page(1, 1)))
	broken := documenttest.PageSpec{Width: 2, Height: 2, CopyErr: errors.New("bad resources")}
	two := f.add(t, "2.pdf", documenttest.NewDoc(page(2, 2), broken))
	three := f.add(t, "3.pdf", documenttest.NewDoc(page(3, 3)))
	out := f.path("all.pdf")

	res, err := f.tk.Concat(f.dir, out, false)
	if err != nil {
		t.Fatalf("Concat() error = %v", err)
	}
	if res.Pages != 2 || len(res.Skipped) != 1 || res.Skipped[0] != two {
		t.Errorf("result = %+v", res)
	}

	doc := f.saved(t, out)
	if doc.PageCount() != 2 {
		t.Fatalf("saved %d pages, want 2", doc.PageCount())
	}
	if doc.Pages[0].CopiedFrom != one || doc.Pages[1].CopiedFrom != three {
		t.Errorf("pages from %s and %s", doc.Pages[0].CopiedFrom, doc.Pages[1].CopiedFrom)
	}
	f.assertClosed(t)
}

func TestConcatGuards(t *testing.T) {
	f := newFixture(t)
	existing := f.add(t, "x.pdf", documenttest.NewDoc(page(1, 1)))

	if _, err := f.tk.Concat(f.path("missing"), f.path("o.pdf"), true); !errors.Is(err, guard.ErrInputDirMissing) {
		t.Errorf("missing dir error = %v", err)
	}
	if _, err := f.tk.Concat(f.dir, existing, false); !errors.Is(err, guard.ErrOutputExists) {
		t.Errorf("existing output error = %v", err)
	}

	empty := t.TempDir()
	if _, err := f.tk.Concat(empty, f.path("o.pdf"), true); !errors.Is(err, ErrNothingToConcat) {
		t.Errorf("empty dir error = %v", err)
	}
}

func TestInfo(t *testing.T) {
	f := newFixture(t)
	in := f.add(t, "in.pdf", documenttest.NewDoc(documenttest.PageSpec{Width: 595.28, Height: 841.89, Rotation: 90}, page(1, 1)))

	info, err := f.tk.Info(in)
	if err != nil {
		t.Fatal(err)
	}
	if info.Pages != 2 || info.Rotation != 90 {
		t.Errorf("info = %+v", info)
	}
	w, h := info.Size(Millimeter)
	if math.Abs(w-297) > 0.1 || math.Abs(h-210) > 0.1 {
		t.Errorf("size in mm = %vx%v, want 297x210", w, h)
	}
	if w, _ := info.Size(Inch); math.Abs(w-841.89/72) > 1e-9 {
		t.Errorf("width in inches = %v", w)
	}

	if _, err := f.tk.Info(f.path("missing.pdf")); !errors.Is(err, guard.ErrInputMissing) {
		t.Errorf("missing input error = %v", err)
	}
	f.assertClosed(t)
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"": Point, "MM": Millimeter, "cm": Centimeter, "inch": Inch} {
		if got, err := ParseUnit(in); err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseUnit("px"); err == nil {
		t.Error("expected error for px")
	}
}
