package embedding

import (
	"context"
	"sync/atomic"

	"github.com/hyperjump/kioku/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. Each word is hashed into
// a bucket, so texts sharing words get similar vectors.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a normalized bag-of-words vector.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls.Add(1)
	emb := make([]float32, e.dimensions)
	for _, w := range SplitWords(text) {
		h := HashString(w)
		sign := float32(1)
		if h&1 == 1 {
			sign = -1
		}
		emb[(h>>1)%uint64(e.dimensions)] += sign
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Calls returns how many texts were embedded.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
