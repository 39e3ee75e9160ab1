package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperjump/kioku/internal/models"
)

// MemoryStore keeps documents in a map. Callers get copies, never the stored records.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]models.Document)}
}

// CreateDocument inserts doc; the id must be unused.
func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return alreadyExists(doc.ID)
	}
	s.docs[doc.ID] = *doc
	return nil
}

// GetDocument returns a copy of the document.
func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, notFound(id)
	}
	return &doc, nil
}

// UpdateDocument replaces an existing document.
func (s *MemoryStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return notFound(doc.ID)
	}
	s.docs[doc.ID] = *doc
	return nil
}

// DeleteDocument removes a document.
func (s *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return notFound(id)
	}
	delete(s.docs, id)
	return nil
}

// ListDocuments returns all documents ordered by upload time, newest first.
func (s *MemoryStore) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	s.mu.RLock()
	out := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		d := doc
		out = append(out, &d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountDocuments returns the number of stored documents.
func (s *MemoryStore) CountDocuments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}
