package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

func TestComputeResizeOriginal(t *testing.T) {
	cfg := Config{HeaderHeight: 70, FooterHeight: 30, ResizeOriginal: true}

	r, err := Compute(200, 300, cfg)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	want := map[string][2]geometry.Rect{
		"header":  {r.Header, geometry.NewRect(0, 0, 200, 70)},
		"footer":  {r.Footer, geometry.NewRect(0, 270, 200, 300)},
		"content": {r.Content, geometry.NewRect(0, 70, 200, 270)},
	}
	for name, pair := range want {
		if pair[0] != pair[1] {
			t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
		}
	}
	if r.HasFrame() {
		t.Error("frame derived without DrawFrame")
	}
}

func TestComputeOverlay(t *testing.T) {
	cfg := Config{HeaderHeight: 70, FooterHeight: 30, ResizeOriginal: false, DrawFrame: true}

	r, err := Compute(200, 300, cfg)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if r.Content != geometry.NewRect(0, 0, 200, 300) {
		t.Errorf("content = %v, want full page", r.Content)
	}
	if r.HasFrame() {
		t.Error("frame must only be derived when resizing the original")
	}
}

func TestComputeCollapse(t *testing.T) {
	tests := []struct {
		name   string
		header float64
		footer float64
	}{
		{"overlapping bands", 150, 160},
		{"exactly full", 150, 150},
		{"header only", 300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{HeaderHeight: tt.header, FooterHeight: tt.footer, ResizeOriginal: true}
			r, err := Compute(200, 300, cfg)
			if !errors.Is(err, ErrRegionCollapse) {
				t.Fatalf("Compute() error = %v, want ErrRegionCollapse", err)
			}
			if h := r.Content.Height(); h > 0 {
				t.Errorf("collapsed content height = %v", h)
			}
		})
	}

	// the same heights never collapse when drawn as an overlay
	if _, err := Compute(200, 300, Config{HeaderHeight: 150, FooterHeight: 160}); err != nil {
		t.Errorf("overlay Compute() error = %v", err)
	}
}

func TestComputeCollapseHeight(t *testing.T) {
	r, _ := Compute(200, 300, Config{HeaderHeight: 150, FooterHeight: 160, ResizeOriginal: true})
	if got := r.Content.Height(); got != -10 {
		t.Errorf("content height = %v, want -10", got)
	}
}

func TestFrameRect(t *testing.T) {
	cfg := Config{HeaderHeight: 70, FooterHeight: 30, ResizeOriginal: true, DrawFrame: true}

	r, err := Compute(200, 300, cfg)
	if err != nil {
		t.Fatal(err)
	}

	ratio := 200.0 / 300.0
	shown := 200 * ratio
	want := geometry.FromOriginSize((200-shown)/2, 70, shown, 200)
	if !approxRect(r.Frame, want) {
		t.Errorf("frame = %v, want %v", r.Frame, want)
	}

	// frame keeps the page aspect ratio
	if math.Abs(r.Frame.Width()/r.Frame.Height()-200.0/300.0) > 1e-9 {
		t.Errorf("frame aspect = %v", r.Frame.Width()/r.Frame.Height())
	}

	inset := r.InsetBorder(0.5)
	if inset.Frame.Height() != r.Frame.Height()-0.5 {
		t.Errorf("InsetBorder height = %v", inset.Frame.Height())
	}
	if inset.Frame.X0 != r.Frame.X0 || inset.Frame.Width() != r.Frame.Width() {
		t.Error("InsetBorder must only trim the height")
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
	bad := DefaultConfig()
	bad.HeaderHeight = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative header height")
	}
	bad = DefaultConfig()
	bad.Delimiter = Delimiter(99)
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown delimiter")
	}
}

func approxRect(a, b geometry.Rect) bool {
	const eps = 1e-9
	return math.Abs(a.X0-b.X0) < eps && math.Abs(a.Y0-b.Y0) < eps &&
		math.Abs(a.X1-b.X1) < eps && math.Abs(a.Y1-b.Y1) < eps
}
