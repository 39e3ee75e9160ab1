// Package utils provides shared helpers for logging, vectors and text.
package utils

// Truncate shortens s to at most maxRunes runes, appending "..." when it cuts.
// A non-positive maxRunes returns s unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
