package extract

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/lu4p/cat"
)

// extractPlain returns content as a string. Invalid UTF-8 sequences are replaced with the
// replacement character; NUL bytes mark the file as binary.
func extractPlain(content []byte) (string, error) {
	if bytes.IndexByte(content, 0) >= 0 {
		return "", errors.New("binary content in text file")
	}
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd"), nil
	}
	return string(content), nil
}

// extractWithCat handles ODT and RTF through lu4p/cat, which detects the format from content.
func extractWithCat(content []byte) (string, error) {
	return cat.FromBytes(content)
}
