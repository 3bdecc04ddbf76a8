package layout

import "testing"

func TestDelimiterSplit(t *testing.T) {
	tests := []struct {
		name  string
		delim Delimiter
		in    string
		want  string
	}{
		{"none keeps everything", DelimiterNone, "report 2024_final", "report 2024_final"},
		{"space", DelimiterSpace, "report 2024 final", "report"},
		{"space collapses leading blanks", DelimiterSpace, "  report  x", "report"},
		{"space on blank string", DelimiterSpace, "   ", "   "},
		{"colon", DelimiterColon, "a:b:c", "a"},
		{"semicolon", DelimiterSemicolon, "a;b", "a"},
		{"comma", DelimiterComma, "a,b", "a"},
		{"hyphen", DelimiterHyphen, "2024-01-31", "2024"},
		{"underscore", DelimiterUnderscore, "case_123_draft", "case"},
		{"slash", DelimiterSlash, "a/b", "a"},
		{"backslash", DelimiterBackslash, `a\b`, "a"},
		{"at", DelimiterAt, "user@example", "user"},
		{"pipe", DelimiterPipe, "a|b", "a"},
		{"absent delimiter", DelimiterHyphen, "plain", "plain"},
		{"leading delimiter", DelimiterHyphen, "-x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.delim.Split(tt.in); got != tt.want {
				t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHeaderLabel(t *testing.T) {
	tests := []struct {
		path  string
		delim Delimiter
		want  string
	}{
		{"/in/Contract A-12 signed.pdf", DelimiterSpace, "Contract"},
		{"/in/Contract A-12 signed.pdf", DelimiterNone, "Contract A-12 signed"},
		{"exhibit_07_v2.pdf", DelimiterUnderscore, "exhibit"},
		{"archive.tar.pdf", DelimiterNone, "archive.tar"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := HeaderLabel(tt.path, tt.delim); got != tt.want {
				t.Errorf("HeaderLabel(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	for _, name := range DelimiterNames() {
		d, err := ParseDelimiter(name)
		if err != nil {
			t.Fatalf("ParseDelimiter(%q) = %v", name, err)
		}
		if d.String() != name {
			t.Errorf("round trip %q -> %q", name, d.String())
		}
	}

	if d, err := ParseDelimiter(""); err != nil || d != DelimiterNone {
		t.Errorf("ParseDelimiter(\"\") = %v, %v", d, err)
	}
	if _, err := ParseDelimiter("tab"); err == nil {
		t.Error("expected error for unknown delimiter")
	}
	if got := len(DelimiterNames()); got != 11 {
		t.Errorf("len(DelimiterNames()) = %d, want 11", got)
	}
	if DelimiterNames()[0] != "none" || DelimiterNames()[10] != "pipe" {
		t.Errorf("DelimiterNames() order = %v", DelimiterNames())
	}
}
