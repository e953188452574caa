// Package storage persists documents and their embedded chunks. Two backends
// implement the Store interface: SQLite for single-node setups and PostgreSQL
// for shared deployments.
package storage

import (
	"context"
	"errors"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateHash is returned when an insert collides with an existing
	// content hash. Callers should re-read the existing document instead of
	// treating this as a failure.
	ErrDuplicateHash = errors.New("document with identical content already exists")
)

// Store is the persistence interface for the retrieval core.
//
// CreateDocument writes the document and all its chunks in a single
// transaction and fills in the store-assigned IDs; on a content-hash
// collision it returns ErrDuplicateHash and writes nothing.
type Store interface {
	CreateDocument(ctx context.Context, doc *models.Document, chunks []models.Chunk) error
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	GetDocumentByHash(ctx context.Context, hash string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error

	// GetChunks returns chunks with embeddings, optionally restricted to a
	// single document (documentID > 0) and/or pages strictly greater than
	// minPage (minPage > 0).
	GetChunks(ctx context.Context, documentID int64, minPage int) ([]models.Chunk, error)

	Stats(ctx context.Context) (*models.Stats, error)
	Close() error
}
