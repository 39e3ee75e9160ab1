package search

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kioku/internal/models"
)

const unknownDocument = "Unknown"

// BuildContext concatenates result texts in rank order, each prefixed by its relevance.
func BuildContext(results []models.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "[Relevance: %.2f]\n%s\n\n", r.Score, r.Embedding.Text)
	}
	return b.String()
}

// Sources lists each document once, keeping the score of its best ranked chunk.
func Sources(results []models.SearchResult) []models.Source {
	seen := make(map[string]struct{}, len(results))
	out := make([]models.Source, 0, len(results))
	for _, r := range results {
		id := r.Embedding.DocumentID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		name := r.Embedding.Metadata[models.MetaDocumentName]
		if name == "" {
			name = unknownDocument
		}
		out = append(out, models.Source{DocumentID: id, FileName: name, Score: r.Score})
	}
	return out
}
