package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/vector"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL via pgx. Embeddings are
// stored as little-endian float32 BYTEA.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database described by dsn and initializes
// the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		metadata JSONB,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id BIGSERIAL PRIMARY KEY,
		document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		page_number INTEGER NOT NULL DEFAULT 0,
		start_char INTEGER NOT NULL DEFAULT 0,
		end_char INTEGER NOT NULL DEFAULT 0,
		embedding BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (document_id, chunk_index)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_page_number ON chunks(page_number);
	`
	_, err := pool.Exec(ctx, schema)
	return err
}

// CreateDocument inserts the document and its chunks in one transaction.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	doc.UploadedAt = time.Now()
	doc.ChunkCount = len(chunks)

	err = tx.QueryRow(ctx,
		`INSERT INTO documents (name, content_hash, chunk_count, metadata, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		doc.Name, doc.ContentHash, doc.ChunkCount, metadataJSON, doc.UploadedAt,
	).Scan(&doc.ID)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return ErrDuplicateHash
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}

	now := time.Now()
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		chunks[i].CreatedAt = now
		err := tx.QueryRow(ctx,
			`INSERT INTO chunks (document_id, chunk_index, text, page_number, start_char, end_char, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			doc.ID, chunks[i].ChunkIndex, chunks[i].Text, chunks[i].PageNumber,
			chunks[i].Span.StartChar, chunks[i].Span.EndChar,
			vector.Encode(chunks[i].Embedding), now,
		).Scan(&chunks[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunks[i].ChunkIndex, err)
		}
	}

	return tx.Commit(ctx)
}

// GetDocument returns a document by ID.
func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	return s.queryDocument(ctx,
		`SELECT id, name, content_hash, chunk_count, metadata, uploaded_at
		 FROM documents WHERE id = $1`, id)
}

// GetDocumentByHash returns the document whose content hash matches, or
// ErrNotFound.
func (s *PostgresStore) GetDocumentByHash(ctx context.Context, hash string) (*models.Document, error) {
	return s.queryDocument(ctx,
		`SELECT id, name, content_hash, chunk_count, metadata, uploaded_at
		 FROM documents WHERE content_hash = $1`, hash)
}

func (s *PostgresStore) queryDocument(ctx context.Context, query string, arg interface{}) (*models.Document, error) {
	var doc models.Document
	var metadataJSON []byte

	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&doc.ID, &doc.Name, &doc.ContentHash, &doc.ChunkCount, &metadataJSON, &doc.UploadedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, content_hash, chunk_count, metadata, uploaded_at
		 FROM documents ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var metadataJSON []byte
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.ContentHash, &doc.ChunkCount, &metadataJSON, &doc.UploadedAt); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; its chunks go with it via cascade.
func (s *PostgresStore) DeleteDocument(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every document and chunk.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents`)
	return err
}

// GetChunks returns chunks ordered by document and chunk index. documentID > 0
// restricts to one document; minPage > 0 restricts to pages strictly greater
// than minPage.
func (s *PostgresStore) GetChunks(ctx context.Context, documentID int64, minPage int) ([]models.Chunk, error) {
	query := `SELECT id, document_id, chunk_index, text, page_number, start_char, end_char, embedding, created_at
		 FROM chunks`
	var conds []string
	var args []interface{}
	if documentID > 0 {
		args = append(args, documentID)
		conds = append(conds, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if minPage > 0 {
		args = append(args, minPage)
		conds = append(conds, fmt.Sprintf("page_number > $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY document_id, chunk_index"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
func (s *PostgresStore) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&stats.TotalDocuments); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.TotalChunks); err != nil {
		return nil, err
	}
	if stats.TotalDocuments > 0 {
		stats.AvgChunksPerDocument = float64(stats.TotalChunks) / float64(stats.TotalDocuments)
	}
	return &stats, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
