package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kioku/internal/models"
)

// SQLiteStore implements Store using SQLite. The path ":memory:" keeps the database in memory.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	inMemory := isMemoryDSN(dbPath)
	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		mime_type TEXT,
		file_size INTEGER NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMP NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, file_name, mime_type, file_size, uploaded_at, chunk_count, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.FileName, doc.MimeType, doc.FileSize, doc.UploadedAt.UTC(), doc.ChunkCount, string(doc.Status), doc.Error,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return alreadyExists(doc.ID)
	}
	return err
}

const selectDocument = `SELECT id, file_name, mime_type, file_size, uploaded_at, chunk_count, status, error FROM documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var mime, status, errMsg sql.NullString
	if err := row.Scan(&doc.ID, &doc.FileName, &mime, &doc.FileSize, &doc.UploadedAt, &doc.ChunkCount, &status, &errMsg); err != nil {
		return nil, err
	}
	doc.MimeType = mime.String
	doc.Status = models.DocumentStatus(status.String)
	doc.Error = errMsg.String
	return &doc, nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, selectDocument+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument updates an existing document.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET file_name = ?, mime_type = ?, file_size = ?, chunk_count = ?, status = ?, error = ?
		 WHERE id = ?`,
		doc.FileName, doc.MimeType, doc.FileSize, doc.ChunkCount, string(doc.Status), doc.Error, doc.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound(doc.ID)
	}
	return nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// ListDocuments returns all documents, newest upload first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, selectDocument+` ORDER BY uploaded_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// SizeBytes returns the on-disk size of the database including WAL files.
func (s *SQLiteStore) SizeBytes() (int64, error) {
	if isMemoryDSN(s.path) {
		return 0, nil
	}
	return fileBytes(s.path, s.path+"-wal", s.path+"-shm")
}

func isMemoryDSN(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
