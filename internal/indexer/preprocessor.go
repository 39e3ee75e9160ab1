package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted text before chunking: control characters become spaces,
// whitespace runs collapse to a single space and the result is trimmed.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := true
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}
