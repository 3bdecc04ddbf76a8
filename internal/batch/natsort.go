package batch

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NaturalSort orders names so embedded numbers compare by value:
// "1.pdf", "2.pdf", "10.pdf". Names the collator considers equal fall back
// to byte order so the result is deterministic.
func NaturalSort(names []string) {
	c := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(names, func(i, j int) bool {
		if r := c.CompareString(names[i], names[j]); r != 0 {
			return r < 0
		}
		return names[i] < names[j]
	})
}
