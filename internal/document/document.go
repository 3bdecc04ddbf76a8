// Package document defines the page object model the toolkit draws on.
//
// The interfaces here are implemented by internal/pdfdoc (pdfcpu) for real
// files and by internal/document/documenttest for tests. All geometry is
// expressed in top-left page coordinates.
package document

import (
	"errors"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

var (
	// ErrOpen is returned when a source document cannot be read or parsed.
	ErrOpen = errors.New("failed to open document")

	// ErrPageRange is returned for page indices outside the document.
	ErrPageRange = errors.New("page index out of range")

	// ErrForeignDocument is returned when a source document comes from a
	// different backend than the destination.
	ErrForeignDocument = errors.New("document belongs to a different backend")

	// ErrTextOverflow is returned by InsertTextBox when the text does not fit
	// the box. Nothing is drawn in that case.
	ErrTextOverflow = errors.New("text does not fit the box")

	// ErrSave wraps failures to write an output document.
	ErrSave = errors.New("failed to save document")

	// ErrClosed is returned when using a document after Close.
	ErrClosed = errors.New("document is closed")
)

// Align is the horizontal alignment of text inside a box
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// SaveOptions controls how a document is written
type SaveOptions struct {
	// Compact optimizes the object graph (drops unused objects, dedups
	// fonts and images) before writing.
	Compact bool
}

// Opener creates document sessions
type Opener interface {
	// Open reads the document at path. Failures wrap ErrOpen.
	Open(path string) (Document, error)
	// New creates an empty document.
	New() (Document, error)
}

// Document is an ordered sequence of pages owned by one session
type Document interface {
	PageCount() int
	Page(index int) (Page, error)
	// NewPage appends a blank page of the given size.
	NewPage(width, height float64) (Page, error)
	// InsertPages appends pages [from, to] of src verbatim.
	InsertPages(src Document, from, to int) error
	Save(path string, opts SaveOptions) error
	Close() error
}

// Page is a single page. Mutations are visible to later reads of the same
// document, including ShowSourcePage calls that reference it.
type Page interface {
	Index() int
	// Size returns the visible page size, honouring the current rotation.
	Size() (width, height float64)
	Rotation() int
	// NormalizeRotation sets the rotation to 0 while keeping the page's
	// appearance.
	NormalizeRotation() error

	NewShape() Shape
	DrawLine(p0, p1 geometry.Point, style Style) error
	InsertTextBox(box geometry.Rect, text string, font Font, align Align) error

	// AddRedactionMask registers a fill-redaction over box. Nothing is
	// removed until ApplyRedactions.
	AddRedactionMask(box geometry.Rect, fill Color) error
	// ApplyRedactions removes every piece of content covered by a
	// registered mask and paints the masks opaque.
	ApplyRedactions() error

	// ShowSourcePage draws page srcIndex of src into target as a reference
	// to its content, scaled to fit when keepProportion is set.
	ShowSourcePage(target geometry.Rect, src Document, srcIndex int, keepProportion bool) error
}

// Shape batches rectangles. Each Finish closes one style layer over the
// rectangles drawn since the previous Finish; Commit writes all layers.
type Shape interface {
	DrawRect(r geometry.Rect)
	Finish(style Style)
	Commit() error
}

// Rect returns the page rectangle in top-left coordinates
func Rect(p Page) geometry.Rect {
	w, h := p.Size()
	return geometry.NewRect(0, 0, w, h)
}
