// Package models defines core data structures for documents, chunks, and search results.
package models

import "time"

// Document represents an ingested policy or claim document. The ID is assigned
// by the store on first insert; ContentHash is the SHA-256 hex digest of the
// full extracted text and is unique across documents.
type Document struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	ContentHash string                 `json:"content_hash"`
	ChunkCount  int                    `json:"chunk_count"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	UploadedAt  time.Time              `json:"uploaded_at"`
}

// Span holds character offsets into the normalized document text from which a
// chunk was cut. Offsets are advisory only.
type Span struct {
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`
}

// Chunk is a bounded, overlapping slice of a document's text, the unit of
// embedding and retrieval. PageNumber is 1-based, or 0 when the source has no
// page structure. Embedding always has exactly the configured dimension; a
// failed embedding is the all-zero vector, never nil.
type Chunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	PageNumber int       `json:"page_number"`
	Span       Span      `json:"span"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScoredChunk is a chunk ranked against a query, best first.
type ScoredChunk struct {
	Chunk        Chunk   `json:"chunk"`
	DocumentName string  `json:"document_name"`
	Score        float64 `json:"score"`
}

// Stats summarizes the knowledge base.
type Stats struct {
	TotalDocuments       int64   `json:"total_documents"`
	TotalChunks          int64   `json:"total_chunks"`
	AvgChunksPerDocument float64 `json:"avg_chunks_per_document"`
}

// Page is one unit of extracted text from a binary document format.
// Number is 1-based; 0 means the source has no page structure.
type Page struct {
	Text   string
	Number int
}

// IngestResult reports the outcome of an ingestion. Deduplicated is true when
// the content hash matched an existing document and no new rows were written.
type IngestResult struct {
	DocumentID   int64 `json:"document_id"`
	ChunkCount   int   `json:"chunk_count"`
	Deduplicated bool  `json:"deduplicated"`
}
