package vector

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

const (
	chromemKeyDocument  = "kioku.document_id"
	chromemKeyChunk     = "kioku.chunk_id"
	chromemKeyCreatedAt = "kioku.created_at"
)

// ChromemIndex stores embeddings in an in-memory chromem-go database. Vectors are grouped into
// one collection per dimensionality so a query only scans candidates it can be compared with.
// chromem normalizes vectors on insert, so zero-magnitude vectors never match.
type ChromemIndex struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[int]*chromem.Collection
	logger      *zap.Logger
}

// NewChromemIndex creates an empty chromem-backed index. A nil logger disables logging.
func NewChromemIndex(logger *zap.Logger) *ChromemIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromemIndex{
		db:          chromem.NewDB(),
		collections: make(map[int]*chromem.Collection),
		logger:      logger,
	}
}

// Type returns the index type identifier.
func (c *ChromemIndex) Type() string {
	return string(IndexTypeChromem)
}

// collection must be called with the write lock held.
func (c *ChromemIndex) collection(dim int) (*chromem.Collection, error) {
	if col, ok := c.collections[dim]; ok {
		return col, nil
	}
	col, err := c.db.GetOrCreateCollection(fmt.Sprintf("embeddings_%d", dim), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection for dimension %d: %w", dim, err)
	}
	c.collections[dim] = col
	return col, nil
}

// Insert adds or replaces emb. An id is unique across dimensions: a copy stored under another
// dimension is dropped in the same critical section.
func (c *ChromemIndex) Insert(ctx context.Context, emb models.Embedding) error {
	if err := validate(emb); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.collection(len(emb.Vector))
	if err != nil {
		return err
	}
	for dim, other := range c.collections {
		if dim == len(emb.Vector) {
			continue
		}
		if _, err := other.GetByID(ctx, emb.ID); err == nil {
			if err := other.Delete(ctx, nil, nil, emb.ID); err != nil {
				return fmt.Errorf("chromem replace %s: %w", emb.ID, err)
			}
		}
	}
	if err := col.AddDocument(ctx, toChromemDocument(emb)); err != nil {
		return fmt.Errorf("chromem add %s: %w", emb.ID, err)
	}
	return nil
}

// InsertMany inserts embeddings one by one and stops at the first failure.
func (c *ChromemIndex) InsertMany(ctx context.Context, embs []models.Embedding) error {
	for _, emb := range embs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Insert(ctx, emb); err != nil {
			return err
		}
	}
	return nil
}

// Search queries the collection matching the query dimension.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]models.SearchResult, error) {
	if len(query) == 0 {
		return nil, errInvalid("query vector is empty")
	}
	if topK <= 0 || c.Count() == 0 {
		return []models.SearchResult{}, nil
	}
	if L2Norm(query) == 0 {
		return []models.SearchResult{}, nil
	}

	c.mu.RLock()
	col := c.collections[len(query)]
	skipped := 0
	for dim, other := range c.collections {
		if dim != len(query) {
			skipped += other.Count()
		}
	}
	c.mu.RUnlock()
	if skipped > 0 {
		c.logger.Warn("skipped embeddings with mismatched dimension",
			zap.Int("query_dimension", len(query)),
			zap.Int("skipped", skipped))
	}
	if col == nil {
		return []models.SearchResult{}, nil
	}
	n := min(topK, col.Count())
	if n == 0 {
		return []models.SearchResult{}, nil
	}
	found, err := col.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	results := make([]models.SearchResult, 0, len(found))
	for _, r := range found {
		score := float64(r.Similarity)
		if math.IsNaN(score) || score < threshold {
			continue
		}
		results = append(results, models.SearchResult{
			Embedding: fromChromemResult(r),
			Score:     math.Max(-1, math.Min(1, score)),
		})
	}
	return results, nil
}

// RemoveByDocument deletes the document's embeddings from every collection.
func (c *ChromemIndex) RemoveByDocument(ctx context.Context, documentID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	where := map[string]string{chromemKeyDocument: documentID}
	for _, col := range c.collections {
		before := col.Count()
		if err := col.Delete(ctx, where, nil); err != nil {
			return removed, fmt.Errorf("chromem delete %s: %w", documentID, err)
		}
		removed += before - col.Count()
	}
	if removed > 0 {
		c.logger.Debug("removed document embeddings",
			zap.String("document_id", documentID),
			zap.Int("removed", removed))
	}
	return removed, nil
}

// Count returns the number of stored embeddings across all collections.
func (c *ChromemIndex) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, col := range c.collections {
		n += col.Count()
	}
	return n
}

// Close drops all collections.
func (c *ChromemIndex) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = make(map[int]*chromem.Collection)
	return c.db.Reset()
}

func toChromemDocument(emb models.Embedding) chromem.Document {
	meta := make(map[string]string, len(emb.Metadata)+3)
	for k, v := range emb.Metadata {
		meta[k] = v
	}
	meta[chromemKeyDocument] = emb.DocumentID
	meta[chromemKeyChunk] = emb.ChunkID
	if !emb.CreatedAt.IsZero() {
		meta[chromemKeyCreatedAt] = emb.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	vec := make([]float32, len(emb.Vector))
	copy(vec, emb.Vector)
	return chromem.Document{
		ID:        emb.ID,
		Metadata:  meta,
		Embedding: vec,
		Content:   emb.Text,
	}
}

func fromChromemResult(r chromem.Result) models.Embedding {
	emb := models.Embedding{
		ID:       r.ID,
		Vector:   r.Embedding,
		Text:     r.Content,
		Metadata: make(map[string]string, len(r.Metadata)),
	}
	for k, v := range r.Metadata {
		switch k {
		case chromemKeyDocument:
			emb.DocumentID = v
		case chromemKeyChunk:
			emb.ChunkID = v
		case chromemKeyCreatedAt:
			emb.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
		default:
			if !strings.HasPrefix(k, "kioku.") {
				emb.Metadata[k] = v
			}
		}
	}
	return emb
}
