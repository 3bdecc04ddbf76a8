package document

import (
	"errors"
	"log/slog"
)

type sessionState int

const (
	unopened sessionState = iota
	opened
	closed
)

func (s sessionState) String() string {
	switch s {
	case opened:
		return "opened"
	case closed:
		return "closed"
	default:
		return "unopened"
	}
}

// Session scopes one document. Declare it, defer Close, then Open or Create:
//
//	var src document.Session
//	defer src.Close()
//	doc, err := src.Open(opener, path)
//
// Close is safe on a session that was never opened and on one that is
// already closed, so every exit path can release it unconditionally.
type Session struct {
	name  string
	doc   Document
	state sessionState
}

// Open opens path through opener and binds the document to the session
func (s *Session) Open(opener Opener, path string) (Document, error) {
	if s.state != unopened {
		return nil, errors.New("session already used")
	}
	doc, err := opener.Open(path)
	if err != nil {
		return nil, err
	}
	s.name = path
	s.doc = doc
	s.state = opened
	return doc, nil
}

// Create binds a new empty document to the session
func (s *Session) Create(opener Opener) (Document, error) {
	if s.state != unopened {
		return nil, errors.New("session already used")
	}
	doc, err := opener.New()
	if err != nil {
		return nil, err
	}
	s.name = "<new>"
	s.doc = doc
	s.state = opened
	return doc, nil
}

// Document returns the bound document, or nil unless the session is open
func (s *Session) Document() Document {
	if s.state != opened {
		return nil
	}
	return s.doc
}

// Opened reports whether the session currently holds an open document
func (s *Session) Opened() bool {
	return s.state == opened
}

// Close releases the document exactly once
func (s *Session) Close() error {
	if s.state != opened {
		return nil
	}
	s.state = closed
	err := s.doc.Close()
	s.doc = nil
	if err != nil {
		slog.Warn("Failed to close document", "name", s.name, "err", err)
	}
	return err
}
