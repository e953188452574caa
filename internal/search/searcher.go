// Package search ranks stored chunks against a query by cosine similarity.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/embedding"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/storage"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/vector"
)

// ErrInvalidQuery is returned for an empty query or a non-positive top-k.
var ErrInvalidQuery = errors.New("query must be non-empty and top_k positive")

// Request describes one similarity search. DocumentID restricts the scan to
// a single document when > 0; MinPage restricts to pages strictly greater
// than MinPage when > 0.
type Request struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	DocumentID int64  `json:"document_id,omitempty"`
	MinPage    int    `json:"min_page,omitempty"`
}

// Searcher embeds queries and scans stored chunk embeddings linearly. The
// corpus sizes this serves (hundreds of documents) do not justify an ANN
// index.
type Searcher struct {
	store    storage.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(store storage.Store, embedder embedding.Embedder, logger *zap.Logger) *Searcher {
	return &Searcher{store: store, embedder: embedder, logger: logger}
}

// Search returns the top-k most similar chunks, best first. Ties keep the
// stable chunk order (document_id, chunk_index). Requesting more results than
// exist returns everything available.
func (s *Searcher) Search(ctx context.Context, req Request) ([]models.ScoredChunk, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" || req.TopK <= 0 {
		return nil, ErrInvalidQuery
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := s.store.GetChunks(ctx, req.DocumentID, req.MinPage)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	names, err := s.documentNames(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		scored = append(scored, models.ScoredChunk{
			Chunk:        chunk,
			DocumentName: names[chunk.DocumentID],
			Score:        vector.CosineSimilarity(queryVec, chunk.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	k := req.TopK
	if k > len(scored) {
		k = len(scored)
	}
	s.logger.Debug("search completed",
		zap.Int("candidates", len(scored)),
		zap.Int("returned", k),
		zap.Float64("top_score", scored[0].Score))
	return scored[:k], nil
}

func (s *Searcher) documentNames(ctx context.Context, documentID int64) (map[int64]string, error) {
	names := make(map[int64]string)
	if documentID > 0 {
		doc, err := s.store.GetDocument(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load document: %w", err)
		}
		names[doc.ID] = doc.Name
		return names, nil
	}
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		names[doc.ID] = doc.Name
	}
	return names, nil
}
