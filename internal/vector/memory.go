package vector

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

type memoryEntry struct {
	emb models.Embedding
	seq uint64
}

// MemoryIndex is an in-memory index using brute-force cosine search. Searches scan under a
// shared lock; writers prepare entries outside the lock and hold it only for the map update.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	byDoc   map[string]map[string]struct{}
	seq     uint64
	logger  *zap.Logger
}

// NewMemoryIndex creates an empty in-memory index. A nil logger disables logging.
func NewMemoryIndex(logger *zap.Logger) *MemoryIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryIndex{
		entries: make(map[string]*memoryEntry),
		byDoc:   make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Insert adds emb, replacing any embedding with the same id.
func (m *MemoryIndex) Insert(ctx context.Context, emb models.Embedding) error {
	if err := validate(emb); err != nil {
		return err
	}
	stored := clone(emb)
	m.mu.Lock()
	m.put(stored)
	m.mu.Unlock()
	return nil
}

// InsertMany inserts embeddings one by one. It is not transactional: on the first invalid
// embedding it returns an error and keeps everything inserted before it.
func (m *MemoryIndex) InsertMany(ctx context.Context, embs []models.Embedding) error {
	for _, emb := range embs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Insert(ctx, emb); err != nil {
			return err
		}
	}
	return nil
}

// put must be called with the write lock held.
func (m *MemoryIndex) put(emb models.Embedding) {
	if old, ok := m.entries[emb.ID]; ok {
		if old.emb.DocumentID != emb.DocumentID {
			m.unlinkDoc(old.emb.DocumentID, emb.ID)
		}
		m.entries[emb.ID] = &memoryEntry{emb: emb, seq: old.seq}
	} else {
		m.seq++
		m.entries[emb.ID] = &memoryEntry{emb: emb, seq: m.seq}
	}
	ids, ok := m.byDoc[emb.DocumentID]
	if !ok {
		ids = make(map[string]struct{})
		m.byDoc[emb.DocumentID] = ids
	}
	ids[emb.ID] = struct{}{}
}

func (m *MemoryIndex) unlinkDoc(docID, id string) {
	ids := m.byDoc[docID]
	delete(ids, id)
	if len(ids) == 0 {
		delete(m.byDoc, docID)
	}
}

// Search scores every stored embedding against query. Candidates whose dimension differs from
// the query are skipped. Equal scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]models.SearchResult, error) {
	if len(query) == 0 {
		return nil, errInvalid("query vector is empty")
	}
	type scored struct {
		emb   models.Embedding
		seq   uint64
		score float64
	}

	m.mu.RLock()
	if len(m.entries) == 0 || topK <= 0 {
		m.mu.RUnlock()
		return []models.SearchResult{}, nil
	}
	candidates := make([]scored, 0, min(len(m.entries), 64))
	skipped := 0
	for _, e := range m.entries {
		if err := ctx.Err(); err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if len(e.emb.Vector) != len(query) {
			skipped++
			continue
		}
		score := CosineSimilarity(query, e.emb.Vector)
		if score >= threshold {
			candidates = append(candidates, scored{emb: e.emb, seq: e.seq, score: score})
		}
	}
	m.mu.RUnlock()

	if skipped > 0 {
		m.logger.Warn("skipped embeddings with mismatched dimension",
			zap.Int("query_dimension", len(query)),
			zap.Int("skipped", skipped))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	results := make([]models.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = models.SearchResult{Embedding: clone(c.emb), Score: c.score}
	}
	return results, nil
}

// RemoveByDocument deletes all embeddings of documentID in one critical section.
func (m *MemoryIndex) RemoveByDocument(ctx context.Context, documentID string) (int, error) {
	m.mu.Lock()
	ids := m.byDoc[documentID]
	for id := range ids {
		delete(m.entries, id)
	}
	delete(m.byDoc, documentID)
	m.mu.Unlock()

	if len(ids) > 0 {
		m.logger.Debug("removed document embeddings",
			zap.String("document_id", documentID),
			zap.Int("removed", len(ids)))
	}
	return len(ids), nil
}

// Count returns the number of stored embeddings.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func clone(emb models.Embedding) models.Embedding {
	emb.Vector = slices.Clone(emb.Vector)
	emb.Metadata = maps.Clone(emb.Metadata)
	return emb
}
