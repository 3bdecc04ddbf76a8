package layout

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Delimiter selects where a header label is cut
type Delimiter int

const (
	DelimiterNone Delimiter = iota
	DelimiterSpace
	DelimiterColon
	DelimiterSemicolon
	DelimiterComma
	DelimiterHyphen
	DelimiterUnderscore
	DelimiterSlash
	DelimiterBackslash
	DelimiterAt
	DelimiterPipe
)

type delimiterRule struct {
	name  string
	split func(string) string
}

func cutAt(sep string) func(string) string {
	return func(s string) string {
		before, _, _ := strings.Cut(s, sep)
		return before
	}
}

// Adding a delimiter is a new row here.
var delimiterRules = map[Delimiter]delimiterRule{
	DelimiterNone:       {"none", func(s string) string { return s }},
	DelimiterSpace:      {"space", firstField},
	DelimiterColon:      {"colon", cutAt(":")},
	DelimiterSemicolon:  {"semicolon", cutAt(";")},
	DelimiterComma:      {"comma", cutAt(",")},
	DelimiterHyphen:     {"hyphen", cutAt("-")},
	DelimiterUnderscore: {"underscore", cutAt("_")},
	DelimiterSlash:      {"slash", cutAt("/")},
	DelimiterBackslash:  {"backslash", cutAt(`\`)},
	DelimiterAt:         {"at", cutAt("@")},
	DelimiterPipe:       {"pipe", cutAt("|")},
}

// firstField returns the first whitespace separated word, or s when s has
// no words at all.
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}

func (d Delimiter) String() string {
	if rule, ok := delimiterRules[d]; ok {
		return rule.name
	}
	return fmt.Sprintf("Delimiter(%d)", int(d))
}

// Split returns the part of s before the first delimiter, or s itself when
// the delimiter is absent or DelimiterNone.
func (d Delimiter) Split(s string) string {
	rule, ok := delimiterRules[d]
	if !ok {
		return s
	}
	return rule.split(s)
}

// ParseDelimiter maps a name such as "underscore" to its Delimiter
func ParseDelimiter(name string) (Delimiter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "no" {
		return DelimiterNone, nil
	}
	for d, rule := range delimiterRules {
		if rule.name == name {
			return d, nil
		}
	}
	return DelimiterNone, fmt.Errorf("unknown delimiter %q (supported: %s)", name, strings.Join(DelimiterNames(), ", "))
}

// DelimiterNames lists the supported delimiter names in declaration order
func DelimiterNames() []string {
	ds := make([]Delimiter, 0, len(delimiterRules))
	for d := range delimiterRules {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })

	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = delimiterRules[d].name
	}
	return names
}

// HeaderLabel derives the header text from a document path: base name,
// extension stripped, cut at the delimiter.
func HeaderLabel(path string, d Delimiter) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return d.Split(stem)
}

// UnmarshalText lets delimiters be written by name in YAML config
func (d *Delimiter) UnmarshalText(text []byte) error {
	parsed, err := ParseDelimiter(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText writes the delimiter name
func (d Delimiter) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
