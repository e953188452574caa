package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/vector"
)

// SQLiteStore implements Store using SQLite. Embeddings are stored as
// little-endian float32 BLOBs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		page_number INTEGER NOT NULL DEFAULT 0,
		start_char INTEGER NOT NULL DEFAULT 0,
		end_char INTEGER NOT NULL DEFAULT 0,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (document_id, chunk_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_page_number ON chunks(page_number);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts the document and its chunks in one transaction. The
// store-assigned IDs are written back into doc and chunks. A content-hash
// collision rolls everything back and returns ErrDuplicateHash.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc.UploadedAt = time.Now()
	doc.ChunkCount = len(chunks)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (name, content_hash, chunk_count, metadata, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.Name, doc.ContentHash, doc.ChunkCount, string(metadataJSON), doc.UploadedAt,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicateHash
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read document id: %w", err)
	}
	doc.ID = docID

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, text, page_number, start_char, end_char, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for i := range chunks {
		chunks[i].DocumentID = docID
		chunks[i].CreatedAt = now
		res, err := stmt.ExecContext(ctx,
			docID, chunks[i].ChunkIndex, chunks[i].Text, chunks[i].PageNumber,
			chunks[i].Span.StartChar, chunks[i].Span.EndChar,
			vector.Encode(chunks[i].Embedding), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunks[i].ChunkIndex, err)
		}
		if chunks[i].ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read chunk id: %w", err)
		}
	}

	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	return s.queryDocument(ctx,
		`SELECT id, name, content_hash, chunk_count, metadata, uploaded_at
		 FROM documents WHERE id = ?`, id)
}

// GetDocumentByHash returns the document whose content hash matches, or
// ErrNotFound.
func (s *SQLiteStore) GetDocumentByHash(ctx context.Context, hash string) (*models.Document, error) {
	return s.queryDocument(ctx,
		`SELECT id, name, content_hash, chunk_count, metadata, uploaded_at
		 FROM documents WHERE content_hash = ?`, hash)
}

func (s *SQLiteStore) queryDocument(ctx context.Context, query string, arg interface{}) (*models.Document, error) {
	var doc models.Document
	var metadataJSON sql.NullString

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&doc.ID, &doc.Name, &doc.ContentHash, &doc.ChunkCount, &metadataJSON, &doc.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, content_hash, chunk_count, metadata, uploaded_at
		 FROM documents ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var metadataJSON sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.ContentHash, &doc.ChunkCount, &metadataJSON, &doc.UploadedAt); err != nil {
			return nil, err
		}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; its chunks go with it via cascade.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every document and chunk.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	return err
}

// GetChunks returns chunks ordered by document and chunk index. documentID > 0
// restricts to one document; minPage > 0 restricts to pages strictly greater
// than minPage.
func (s *SQLiteStore) GetChunks(ctx context.Context, documentID int64, minPage int) ([]models.Chunk, error) {
	query := `SELECT id, document_id, chunk_index, text, page_number, start_char, end_char, embedding, created_at
		 FROM chunks`
	var conds []string
	var args []interface{}
	if documentID > 0 {
		conds = append(conds, "document_id = ?")
		args = append(args, documentID)
	}
	if minPage > 0 {
		conds = append(conds, "page_number > ?")
		args = append(args, minPage)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY document_id, chunk_index"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.PageNumber,
			&c.Span.StartChar, &c.Span.EndChar, &blob, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Embedding = vector.Decode(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Stats returns document and chunk totals.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&stats.TotalDocuments); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.TotalChunks); err != nil {
		return nil, err
	}
	if stats.TotalDocuments > 0 {
		stats.AvgChunksPerDocument = float64(stats.TotalChunks) / float64(stats.TotalDocuments)
	}
	return &stats, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
