// Package vector provides the embedding index and exact similarity search.
package vector

import (
	"context"

	"github.com/hyperjump/kioku/internal/models"
)

// Index stores embeddings and answers exact similarity queries. Implementations must be safe
// for concurrent use.
type Index interface {
	// Insert adds or replaces an embedding by id.
	Insert(ctx context.Context, emb models.Embedding) error
	// InsertMany inserts in order and stops at the first invalid item; earlier items stay.
	InsertMany(ctx context.Context, embs []models.Embedding) error
	// Search returns at most topK results scoring at least threshold, best first.
	Search(ctx context.Context, query []float32, topK int, threshold float64) ([]models.SearchResult, error)
	// RemoveByDocument deletes every embedding of the document and returns how many were removed.
	RemoveByDocument(ctx context.Context, documentID string) (int, error)
	Count() int
	// Type names the backend, matching the configured vector backend.
	Type() string
	Close() error
}

func validate(emb models.Embedding) error {
	if emb.ID == "" {
		return errInvalid("embedding id is empty")
	}
	if len(emb.Vector) == 0 {
		return errInvalid("embedding " + emb.ID + " has an empty vector")
	}
	return nil
}
