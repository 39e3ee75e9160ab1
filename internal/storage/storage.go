// Package storage keeps document records. A Store is process-scoped and passed explicitly to
// the components that need it.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

// Store defines document record persistence. Each document is written by a single owner at a
// time (the ingestion run processing it); the store only guarantees per-call atomicity.
type Store interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	// ListDocuments returns all documents, most recently uploaded first.
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int, error)
	Close() error
}

// Open creates the store selected by driver ("memory" or "sqlite").
func Open(driver, path string, logger *zap.Logger) (Store, error) {
	switch driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		if logger != nil {
			logger.Debug("opening sqlite document store", zap.String("path", path))
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", models.ErrInvalidConfiguration, driver)
	}
}

// Durable reports whether the store selected by driver and path keeps documents across restarts.
func Durable(driver, path string) bool {
	return driver == "sqlite" && path != "" && !isMemoryDSN(path)
}

func notFound(id string) error {
	return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
}

func alreadyExists(id string) error {
	return fmt.Errorf("%w: document %s already exists", models.ErrInvalidInput, id)
}
