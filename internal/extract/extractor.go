// Package extract provides text extraction from document formats, selected by file extension.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/kioku/internal/models"
)

type extractFunc func(content []byte) (string, error)

// Extractor extracts plain text from document bytes using the extractor registered for the
// file extension.
type Extractor struct {
	byExt map[string]extractFunc
}

// NewExtractor returns an Extractor with all built-in formats registered.
func NewExtractor() *Extractor {
	return &Extractor{byExt: map[string]extractFunc{
		".txt":  extractPlain,
		".md":   extractMarkdown,
		".pdf":  extractPDF,
		".docx": extractDOCX,
		".xlsx": extractExcel,
		".odt":  extractWithCat,
		".rtf":  extractWithCat,
	}}
}

// ExtractBytes extracts text from content based on ext, with or without the leading dot.
// Unknown extensions fail with models.ErrUnsupportedFileType; parse failures wrap
// models.ErrExtraction.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	ext = NormalizeExt(ext)
	fn, ok := e.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFileType, ext)
	}
	text, err := fn(content)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrExtraction, ext, err)
	}
	return text, nil
}

// Supports reports whether an extractor is registered for ext.
func (e *Extractor) Supports(ext string) bool {
	_, ok := e.byExt[NormalizeExt(ext)]
	return ok
}

// Extensions lists the registered extensions in sorted order.
func (e *Extractor) Extensions() []string {
	out := make([]string, 0, len(e.byExt))
	for ext := range e.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// NormalizeExt lowercases ext and ensures a leading dot. Empty stays empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
