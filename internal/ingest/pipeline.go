// Package ingest runs the extract-chunk-embed-store pipeline.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/chunker"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/embedding"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/extract"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/storage"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/vector"
)

// ErrNoContent is returned when extraction yields no usable text.
var ErrNoContent = errors.New("no extractable text content")

// embedBatchSize bounds how many chunk texts go to the embedder per call.
const embedBatchSize = 32

// Pipeline ingests documents: extract text, chunk it, embed the chunks, and
// store everything transactionally. Duplicate content (by SHA-256 of the
// raw extracted text) short-circuits before any embedding work.
type Pipeline struct {
	store     storage.Store
	embedder  embedding.Embedder
	chunker   *chunker.Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(store storage.Store, embedder embedding.Embedder, ch *chunker.Chunker, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		embedder:  embedder,
		chunker:   ch,
		extractor: extract.NewExtractor(),
		logger:    logger,
	}
}

// IngestFile extracts text from the file at path and ingests it under its
// base name.
func (p *Pipeline) IngestFile(ctx context.Context, path string, metadata map[string]interface{}) (*models.IngestResult, error) {
	pages, err := p.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return p.ingestPages(ctx, pages, filepath.Base(path), metadata)
}

// IngestBytes extracts text from in-memory content with the given extension
// (".pdf", ".docx", ...) and ingests it under name.
func (p *Pipeline) IngestBytes(ctx context.Context, content []byte, ext, name string, metadata map[string]interface{}) (*models.IngestResult, error) {
	pages, err := p.extractor.ExtractBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}
	return p.ingestPages(ctx, pages, name, metadata)
}

// Ingest stores plain text directly, without format extraction.
func (p *Pipeline) Ingest(ctx context.Context, text, name string, metadata map[string]interface{}) (*models.IngestResult, error) {
	return p.ingestPages(ctx, []models.Page{{Text: text, Number: 0}}, name, metadata)
}

func (p *Pipeline) ingestPages(ctx context.Context, pages []models.Page, name string, metadata map[string]interface{}) (*models.IngestResult, error) {
	raw := make([]string, 0, len(pages))
	kept := make([]models.Page, 0, len(pages))
	for _, page := range pages {
		if chunker.Normalize(page.Text) == "" {
			continue
		}
		raw = append(raw, page.Text)
		kept = append(kept, page)
	}
	if len(kept) == 0 {
		return nil, ErrNoContent
	}

	// The dedup key is the hash of the raw extracted text, before any
	// normalization, so only byte-identical content deduplicates.
	hash := contentHash(strings.Join(raw, "\n"))

	// Dedup check before any embedding work.
	if existing, err := p.store.GetDocumentByHash(ctx, hash); err == nil {
		p.logger.Info("duplicate content, skipping ingestion",
			zap.String("name", name),
			zap.Int64("existing_document_id", existing.ID))
		return &models.IngestResult{
			DocumentID:   existing.ID,
			ChunkCount:   existing.ChunkCount,
			Deduplicated: true,
		}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	// Chunk page by page, then renumber indices document-wide so that
	// (document_id, chunk_index) stays unique.
	var chunks []models.Chunk
	for _, page := range kept {
		for _, draft := range p.chunker.Split(page.Text, page.Number) {
			chunks = append(chunks, models.Chunk{
				ChunkIndex: len(chunks),
				Text:       draft.Text,
				PageNumber: draft.PageNumber,
				Span:       draft.Span,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}

	if err := p.embedChunks(ctx, name, chunks); err != nil {
		return nil, err
	}

	doc := &models.Document{Name: name, ContentHash: hash, Metadata: metadata}
	err := p.store.CreateDocument(ctx, doc, chunks)
	if errors.Is(err, storage.ErrDuplicateHash) {
		// Lost a race against a concurrent ingest of the same content.
		existing, lookupErr := p.store.GetDocumentByHash(ctx, hash)
		if lookupErr != nil {
			return nil, fmt.Errorf("duplicate insert but lookup failed: %w", lookupErr)
		}
		return &models.IngestResult{
			DocumentID:   existing.ID,
			ChunkCount:   existing.ChunkCount,
			Deduplicated: true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	p.logger.Info("document ingested",
		zap.String("name", name),
		zap.Int64("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return &models.IngestResult{DocumentID: doc.ID, ChunkCount: len(chunks)}, nil
}

// embedChunks fills in chunk embeddings in batches. A failed batch degrades
// to zero vectors so ingestion still completes; those chunks simply never
// rank in search.
func (p *Pipeline) embedChunks(ctx context.Context, name string, chunks []models.Chunk) error {
	dims := p.embedder.Dimensions()
	for start := 0; start < len(chunks); start += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = chunks[i].Text
		}
		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.logger.Warn("embedding failed, storing zero vectors",
				zap.String("name", name),
				zap.Int("batch_start", start),
				zap.Error(err))
			for i := start; i < end; i++ {
				chunks[i].Embedding = vector.Zero(dims)
			}
			continue
		}
		for i := start; i < end; i++ {
			chunks[i].Embedding = vecs[i-start]
		}
	}
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
