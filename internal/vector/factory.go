package vector

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses the built-in brute-force map index.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeChromem uses an in-memory chromem-go database.
	IndexTypeChromem IndexType = "chromem"
)

// NewIndex creates a vector index of the specified type. An empty type selects memory.
func NewIndex(indexType string, logger *zap.Logger) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(logger), nil
	case IndexTypeChromem:
		return NewChromemIndex(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown index type %q (supported: memory, chromem)", models.ErrInvalidConfiguration, indexType)
	}
}
