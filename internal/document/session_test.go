package document_test

import (
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/document/documenttest"
)

func TestSessionCloseUnopened(t *testing.T) {
	var s document.Session
	if err := s.Close(); err != nil {
		t.Fatalf("Close() on unopened session = %v", err)
	}
	if s.Opened() {
		t.Error("unopened session reports Opened")
	}
	if s.Document() != nil {
		t.Error("unopened session returned a document")
	}
}

func TestSessionClosesExactlyOnce(t *testing.T) {
	opener := documenttest.NewOpener()
	opener.Add("a.pdf", documenttest.NewDoc(documenttest.PageSpec{Width: 100, Height: 100}))

	var s document.Session
	doc, err := s.Open(opener, "a.pdf")
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if !s.Opened() {
		t.Fatal("expected opened session")
	}

	_ = s.Close()
	_ = s.Close()

	if got := doc.(*documenttest.Doc).CloseCount; got != 1 {
		t.Errorf("document closed %d times, want 1", got)
	}
	if s.Document() != nil {
		t.Error("closed session still exposes its document")
	}
}

func TestSessionOpenFailure(t *testing.T) {
	opener := documenttest.NewOpener()

	var s document.Session
	defer s.Close()

	_, err := s.Open(opener, "missing.pdf")
	if !errors.Is(err, document.ErrOpen) {
		t.Fatalf("Open() error = %v, want ErrOpen", err)
	}
	if s.Opened() {
		t.Error("failed open left session opened")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() after failed open = %v", err)
	}
}

func TestSessionSingleUse(t *testing.T) {
	opener := documenttest.NewOpener()
	opener.Add("a.pdf", documenttest.NewDoc(documenttest.PageSpec{Width: 10, Height: 10}))

	var s document.Session
	defer s.Close()
	if _, err := s.Open(opener, "a.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(opener, "a.pdf"); err == nil {
		t.Error("expected error reusing session")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    document.Color
		wantErr bool
	}{
		{"#FF0000", document.Red, false},
		{"000000", document.Black, false},
		{"#fff", document.White, false},
		{"#12345", document.Color{}, true},
		{"#GG0000", document.Color{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := document.ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}

	if hex := (document.Color{R: 0.008, G: 0.859, B: 0.102}).Hex(); hex != "#02DB1A" {
		t.Errorf("Hex() = %s", hex)
	}
}
