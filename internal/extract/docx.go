package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

const (
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// wtTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t>.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// partNameRe matches the main document Override in either attribute order.
var partNameRe = regexp.MustCompile(`<Override[^>]+(?:PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) +
	`"|ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)")`)

// extractDOCX returns the text of all <w:t> runs of the main document part. The part is read
// with nguyenthenguyen/docx; documents whose body lives under a non-default part name are
// resolved through [Content_Types].xml.
func extractDOCX(content []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err == nil {
		body := r.Editable().GetContent()
		_ = r.Close()
		if text := joinRuns(body); text != "" {
			return text, nil
		}
	}
	text, partErr := extractDOCXPart(content)
	if partErr != nil {
		if err != nil {
			return "", fmt.Errorf("open DOCX: %w", err)
		}
		return "", partErr
	}
	return text, nil
}

func extractDOCXPart(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("not a zip: %w", err)
	}
	docPath := "word/document.xml"
	if ct, err := readZipFile(zr, contentTypesPath); err == nil {
		if m := partNameRe.FindStringSubmatch(string(ct)); m != nil {
			docPath = strings.TrimPrefix(m[1]+m[2], "/")
		}
	}
	body, err := readZipFile(zr, docPath)
	if err != nil {
		return "", err
	}
	return joinRuns(string(body)), nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

func joinRuns(xml string) string {
	parts := wtTag.FindAllStringSubmatch(xml, -1)
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(html.UnescapeString(p[1])); s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " ")
}
