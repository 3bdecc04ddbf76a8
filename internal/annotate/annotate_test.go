package annotate

import (
	"testing"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document/documenttest"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/layout"
)

func newPage(t *testing.T, w, h float64) *documenttest.Page {
	t.Helper()
	doc := documenttest.NewDoc()
	p, err := doc.NewPage(w, h)
	if err != nil {
		t.Fatal(err)
	}
	return p.(*documenttest.Page)
}

func TestPageNumber(t *testing.T) {
	tests := []struct {
		index, total int
		showTotal    bool
		want         string
	}{
		{0, 3, false, "1"},
		{2, 3, false, "3"},
		{0, 3, true, "1 / 3"},
		{9, 12, true, "10 / 12"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := PageNumber(tt.index, tt.total, tt.showTotal); got != tt.want {
				t.Errorf("PageNumber(%d, %d, %v) = %q, want %q", tt.index, tt.total, tt.showTotal, got, tt.want)
			}
		})
	}
}

func TestHeaderTextBoxInsets(t *testing.T) {
	header := geometry.NewRect(0, 0, 200, 70)

	tests := []struct {
		name string
		mode Mode
		want geometry.Rect
	}{
		{"single feature", ModeHeader, geometry.NewRect(10, 20, 180, 70)},
		{"combined", ModeCombined, geometry.NewRect(10, 30, 170, 70)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeaderTextBox(header, 10, tt.mode.headerInset()); got != tt.want {
				t.Errorf("HeaderTextBox() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderCombined(t *testing.T) {
	cfg := layout.DefaultConfig()
	cfg.DrawHeaderLine = true
	cfg.DrawFooterLine = true
	cfg.ShowTotalPages = true

	regions, err := layout.Compute(200, 300, cfg)
	if err != nil {
		t.Fatal(err)
	}
	page := newPage(t, 200, 300)

	r := Renderer{Config: cfg, Mode: ModeCombined}
	if err := r.Render(page, regions, Stamp{Label: "Contract", Index: 1, Total: 4}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	texts := page.OpsOf(documenttest.OpText)
	if len(texts) != 2 {
		t.Fatalf("got %d text ops, want 2", len(texts))
	}
	footer, header := texts[0], texts[1]
	if footer.Text != "2 / 4" || footer.Align != document.AlignCenter {
		t.Errorf("footer text = %q (%v)", footer.Text, footer.Align)
	}
	if footer.Rect != geometry.NewRect(3, 273, 197, 297) {
		t.Errorf("footer box = %v", footer.Rect)
	}
	if header.Text != "Contract" || header.Align != document.AlignRight {
		t.Errorf("header text = %q (%v)", header.Text, header.Align)
	}
	if header.Rect != geometry.NewRect(10, 30, 170, 70) {
		t.Errorf("header box = %v", header.Rect)
	}

	lines := page.OpsOf(documenttest.OpLine)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].P0 != (geometry.Point{X: 3, Y: 273}) || lines[0].P1 != (geometry.Point{X: 197, Y: 273}) {
		t.Errorf("footer line = %+v -> %+v", lines[0].P0, lines[0].P1)
	}
	if lines[1].P0 != (geometry.Point{X: 10, Y: 60}) || lines[1].P1 != (geometry.Point{X: 190, Y: 60}) {
		t.Errorf("header line = %+v -> %+v", lines[1].P0, lines[1].P1)
	}

	layers := page.OpsOf(documenttest.OpLayer)
	if len(layers) != 1 || len(layers[0].Rects) != 1 {
		t.Fatalf("frame layers = %+v", layers)
	}
	if layers[0].Rects[0] != regions.Frame {
		t.Errorf("frame = %v, want %v", layers[0].Rects[0], regions.Frame)
	}
	if layers[0].Style.Filled {
		t.Error("frame must be stroke only")
	}
}

func TestRenderHeaderInsetsFrame(t *testing.T) {
	cfg := layout.HeaderDefaults()
	cfg.ResizeOriginal = true
	cfg.DrawFrame = true
	cfg.Frame = document.Stroke(2, document.Black)

	regions, err := layout.Compute(200, 300, cfg)
	if err != nil {
		t.Fatal(err)
	}
	page := newPage(t, 200, 300)

	if err := (Renderer{Config: cfg, Mode: ModeHeader}).Render(page, regions, Stamp{Label: "x", Total: 1}); err != nil {
		t.Fatal(err)
	}

	layers := page.OpsOf(documenttest.OpLayer)
	if len(layers) != 1 {
		t.Fatalf("got %d layers", len(layers))
	}
	if got, want := layers[0].Rects[0].Height(), regions.Frame.Height()-2; got != want {
		t.Errorf("frame height = %v, want %v", got, want)
	}
	if n := len(page.OpsOf(documenttest.OpText)); n != 1 {
		t.Errorf("header mode drew %d texts, want 1", n)
	}
}

func TestRenderStampOnlyFirstPage(t *testing.T) {
	cfg := layout.DefaultConfig()
	cfg.StampOnlyFirstPage = true
	cfg.DrawHeaderLine = true
	regions, _ := layout.Compute(200, 300, cfg)

	for idx, wantHeader := range []bool{true, false, false} {
		page := newPage(t, 200, 300)
		if err := (Renderer{Config: cfg, Mode: ModeCombined}).Render(page, regions, Stamp{Label: "doc", Index: idx, Total: 3}); err != nil {
			t.Fatal(err)
		}
		var gotHeader bool
		for _, op := range page.OpsOf(documenttest.OpText) {
			if op.Text == "doc" {
				gotHeader = true
			}
		}
		if gotHeader != wantHeader {
			t.Errorf("page %d: header drawn = %v, want %v", idx, gotHeader, wantHeader)
		}
		if n := len(page.OpsOf(documenttest.OpLine)); n != 1 {
			t.Errorf("page %d: header line drawn %d times", idx, n)
		}
	}
}

func TestRenderPageNumberOnly(t *testing.T) {
	cfg := layout.PageNumberDefaults()
	cfg.DrawFrame = true
	cfg.ResizeOriginal = true
	regions, err := layout.Compute(200, 300, cfg)
	if err != nil {
		t.Fatal(err)
	}
	page := newPage(t, 200, 300)

	if err := (Renderer{Config: cfg, Mode: ModePageNumber}).Render(page, regions, Stamp{Label: "ignored", Index: 0, Total: 1}); err != nil {
		t.Fatal(err)
	}
	texts := page.OpsOf(documenttest.OpText)
	if len(texts) != 1 || texts[0].Text != "1" {
		t.Errorf("texts = %+v", texts)
	}
	if n := len(page.OpsOf(documenttest.OpLayer)); n != 0 {
		t.Errorf("page number mode drew %d frame layers", n)
	}
}

func TestRenderSwallowsOverflow(t *testing.T) {
	cfg := layout.DefaultConfig()
	regions, _ := layout.Compute(200, 300, cfg)
	page := newPage(t, 200, 300)
	page.TextErr = document.ErrTextOverflow

	if err := (Renderer{Config: cfg, Mode: ModeCombined}).Render(page, regions, Stamp{Label: "a very long label", Total: 1}); err != nil {
		t.Errorf("Render() error = %v, want nil on overflow", err)
	}
	if n := len(page.OpsOf(documenttest.OpLayer)); n != 1 {
		t.Errorf("frame not drawn after overflow: %d layers", n)
	}
}
