// Package indexer turns uploaded files into chunk embeddings held by the vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/extract"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/vector"
)

// Pipeline runs ingestion: extract, chunk, embed, index. It owns the status transitions of
// the document it is processing.
type Pipeline struct {
	store     storage.Store
	chunker   *Chunker
	gateway   *embedding.Gateway
	index     vector.Index
	extractor *extract.Extractor
	maxChunks int
	upload    config.UploadConfig
	logger    *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxChunks caps the number of chunks embedded per document. Values <= 0 are ignored.
func WithMaxChunks(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxChunks = n
		}
	}
}

// WithUploadConfig sets the size limit and admitted file types for Upload.
func WithUploadConfig(u config.UploadConfig) PipelineOption {
	return func(p *Pipeline) { p.upload = u }
}

// NewPipeline creates an ingestion pipeline over the given components.
func NewPipeline(
	store storage.Store,
	chunker *Chunker,
	gateway *embedding.Gateway,
	index vector.Index,
	extractor *extract.Extractor,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		store:     store,
		chunker:   chunker,
		gateway:   gateway,
		index:     index,
		extractor: extractor,
		maxChunks: config.DefaultMaxChunks,
		upload: config.UploadConfig{
			MaxFileSize:    config.DefaultMaxFileSize,
			SupportedTypes: []string{"pdf", "docx", "txt"},
		},
		logger: zap.NewNop(),
		locks:  make(map[string]*docLock),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload validates an uploaded file, records it as pending and ingests it. The document is
// returned even when ingestion fails so callers can report its id and status.
func (p *Pipeline) Upload(ctx context.Context, fileName, mimeType string, content []byte) (*models.Document, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", models.ErrInvalidInput)
	}
	if limit := p.upload.MaxFileSize; limit > 0 && int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", models.ErrFileTooLarge, len(content), limit)
	}
	ext := extract.NormalizeExt(filepath.Ext(fileName))
	if !p.upload.SupportsType(ext) || !p.extractor.Supports(ext) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFileType, ext)
	}
	doc := &models.Document{
		ID:         uuid.NewString(),
		FileName:   fileName,
		MimeType:   mimeOrGuess(mimeType, ext),
		FileSize:   int64(len(content)),
		UploadedAt: time.Now().UTC(),
		Status:     models.StatusPending,
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	if _, err := p.Ingest(ctx, doc, content); err != nil {
		return doc, err
	}
	return doc, nil
}

// Ingest processes content for an already recorded document and returns the number of chunks
// indexed. doc is updated in place with the final status. Every error wraps
// models.ErrDocumentProcessing and keeps its cause.
func (p *Pipeline) Ingest(ctx context.Context, doc *models.Document, content []byte) (int, error) {
	unlock := p.lock(doc.ID)
	defer unlock()
	return p.ingest(ctx, doc, content)
}

func (p *Pipeline) ingest(ctx context.Context, doc *models.Document, content []byte) (int, error) {
	start := time.Now()
	logger := p.logger.With(zap.String("document_id", doc.ID), zap.String("file_name", doc.FileName))

	doc.Status = models.StatusProcessing
	doc.Error = ""
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return 0, p.fail(ctx, doc, fmt.Errorf("mark processing: %w", err))
	}

	n, err := p.process(ctx, doc, content, logger)
	if err != nil {
		logger.Warn("document processing failed", zap.Error(err))
		return 0, p.fail(ctx, doc, err)
	}

	doc.Status = models.StatusProcessed
	doc.ChunkCount = n
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			p.dropOrphans(ctx, doc.ID, logger)
		}
		return 0, p.fail(ctx, doc, fmt.Errorf("mark processed: %w", err))
	}
	logger.Info("document processed", zap.Int("chunks", n), zap.Duration("took", time.Since(start)))
	return n, nil
}

func (p *Pipeline) process(ctx context.Context, doc *models.Document, content []byte, logger *zap.Logger) (int, error) {
	text, err := p.extractor.ExtractBytes(content, filepath.Ext(doc.FileName))
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, errors.New("no text extracted")
	}

	chunks, err := p.chunker.Chunk(ctx, doc.ID, Preprocess(text))
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) > p.maxChunks {
		logger.Info("chunks truncated", zap.Int("chunks", len(chunks)), zap.Int("max_chunks", p.maxChunks))
		chunks = chunks[:p.maxChunks]
	}
	logger.Debug("document chunked", zap.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := p.gateway.EmbedMany(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", models.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	now := time.Now().UTC()
	embeddings := make([]models.Embedding, len(chunks))
	for i, ch := range chunks {
		embeddings[i] = models.Embedding{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ChunkID:    ch.ID,
			Vector:     vectors[i],
			Text:       ch.Content,
			Metadata: map[string]string{
				models.MetaDocumentName: doc.FileName,
				models.MetaChunkIndex:   strconv.Itoa(ch.Index),
				models.MetaStart:        strconv.Itoa(ch.Start),
				models.MetaEnd:          strconv.Itoa(ch.End),
			},
			CreatedAt: now,
		}
	}
	if err := p.index.InsertMany(ctx, embeddings); err != nil {
		return 0, fmt.Errorf("index embeddings: %w", err)
	}
	return len(embeddings), nil
}

// dropOrphans removes embeddings indexed for a document whose record disappeared mid-ingestion.
func (p *Pipeline) dropOrphans(ctx context.Context, id string, logger *zap.Logger) {
	removed, err := p.index.RemoveByDocument(context.WithoutCancel(ctx), id)
	if err != nil {
		logger.Error("failed to remove embeddings of deleted document", zap.Error(err))
		return
	}
	logger.Warn("document deleted during ingestion", zap.Int("embeddings_removed", removed))
}

// fail records the failure on doc and returns err wrapped as a processing error.
func (p *Pipeline) fail(ctx context.Context, doc *models.Document, err error) error {
	doc.Status = models.StatusFailed
	doc.Error = err.Error()
	if uerr := p.store.UpdateDocument(context.WithoutCancel(ctx), doc); uerr != nil {
		p.logger.Error("failed to record document failure", zap.String("document_id", doc.ID), zap.Error(uerr))
	}
	if errors.Is(err, models.ErrDocumentProcessing) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrDocumentProcessing, err)
}

// IngestFile reads the file at path and ingests it under documentID, replacing any document
// previously stored with that id.
func (p *Pipeline) IngestFile(ctx context.Context, path, documentID string) (*models.Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := extract.NormalizeExt(filepath.Ext(absPath))
	if !p.extractor.Supports(ext) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFileType, ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", models.ErrInvalidInput, absPath)
	}
	if limit := p.upload.MaxFileSize; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes", models.ErrFileTooLarge, absPath, info.Size())
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	unlock := p.lock(documentID)
	defer unlock()
	if err := p.remove(ctx, documentID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("replace document: %w", err)
	}
	doc := &models.Document{
		ID:         documentID,
		FileName:   filepath.Base(absPath),
		MimeType:   mimeOrGuess("", ext),
		FileSize:   info.Size(),
		UploadedAt: time.Now().UTC(),
		Status:     models.StatusPending,
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	p.logger.Debug("ingesting file", zap.String("path", absPath), zap.String("document_id", documentID))
	if _, err := p.ingest(ctx, doc, content); err != nil {
		return doc, err
	}
	return doc, nil
}

// Delete removes a document's embeddings from the index and then its record. It waits for an
// ingestion of the same document to finish.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	unlock := p.lock(id)
	defer unlock()
	return p.remove(ctx, id)
}

func (p *Pipeline) remove(ctx context.Context, id string) error {
	if _, err := p.store.GetDocument(ctx, id); err != nil {
		return err
	}
	removed, err := p.index.RemoveByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("remove embeddings: %w", err)
	}
	if err := p.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	p.logger.Debug("document deleted", zap.String("document_id", id), zap.Int("embeddings", removed))
	return nil
}

// Reconcile fails every document the freshly opened index cannot serve. It runs at startup when
// the document store outlived the previous process but the index did not: processed documents
// lost their embeddings and unfinished ones were interrupted. It returns how many records changed.
func (p *Pipeline) Reconcile(ctx context.Context) (int, error) {
	docs, err := p.store.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	changed := 0
	for _, doc := range docs {
		if doc.Status == models.StatusFailed {
			continue
		}
		reason := "index not rebuilt after restart"
		if !doc.Status.Terminal() {
			reason = "interrupted before ingestion finished"
		}
		unlock := p.lock(doc.ID)
		doc.Status = models.StatusFailed
		doc.Error = reason
		doc.ChunkCount = 0
		err := p.store.UpdateDocument(ctx, doc)
		unlock()
		if err != nil {
			return changed, fmt.Errorf("mark %s failed: %w", doc.ID, err)
		}
		changed++
	}
	if changed > 0 {
		p.logger.Warn("documents marked failed at startup; upload them again to index them",
			zap.Int("documents", changed))
	}
	return changed, nil
}

// lock serializes ingestion and deletion of one document id.
func (p *Pipeline) lock(id string) func() {
	p.locksMu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &docLock{}
		p.locks[id] = l
	}
	l.refs++
	p.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.locksMu.Unlock()
	}
}

func mimeOrGuess(mimeType, ext string) string {
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return guessed
	}
	return mimeType
}
