package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/chunker"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/embedding"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/storage"
)

// failingEmbedder always errors, to exercise the zero-vector degrade path.
type failingEmbedder struct {
	dims int
}

func (e *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("model unavailable")
}

func (e *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func (e *failingEmbedder) Dimensions() int { return e.dims }
func (e *failingEmbedder) Close() error    { return nil }

func newTestPipeline(t *testing.T, embedder embedding.Embedder) (*Pipeline, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ch, err := chunker.New(100, 20)
	if err != nil {
		t.Fatalf("failed to create chunker: %v", err)
	}
	if embedder == nil {
		embedder = embedding.NewMockEmbedder(8)
	}
	return NewPipeline(store, embedder, ch, zap.NewNop()), store
}

func TestIngestStoresDocumentAndChunks(t *testing.T) {
	pipeline, store := newTestPipeline(t, nil)
	ctx := context.Background()

	text := strings.Repeat("The policy covers water damage. ", 20)
	result, err := pipeline.Ingest(ctx, text, "policy.txt", map[string]interface{}{"kind": "policy"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Deduplicated {
		t.Error("first ingest reported as duplicate")
	}
	if result.DocumentID == 0 {
		t.Error("document ID not assigned")
	}
	if result.ChunkCount < 2 {
		t.Errorf("expected multiple chunks for long text, got %d", result.ChunkCount)
	}

	chunks, err := store.GetChunks(ctx, result.DocumentID, 0)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(chunks) != result.ChunkCount {
		t.Errorf("stored %d chunks, reported %d", len(chunks), result.ChunkCount)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk indices not dense: position %d has index %d", i, c.ChunkIndex)
		}
		if len(c.Embedding) != 8 {
			t.Errorf("chunk %d embedding has %d dims, want 8", i, len(c.Embedding))
		}
	}

	doc, err := store.GetDocument(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.ChunkCount != result.ChunkCount {
		t.Errorf("document chunk_count %d, want %d", doc.ChunkCount, result.ChunkCount)
	}
	if doc.Metadata["kind"] != "policy" {
		t.Errorf("metadata not stored: %v", doc.Metadata)
	}
}

func TestIngestDeduplicates(t *testing.T) {
	pipeline, store := newTestPipeline(t, nil)
	ctx := context.Background()

	text := "Deductible of $500 applies to all claims."
	first, err := pipeline.Ingest(ctx, text, "one.txt", nil)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	// Same content under a different name must short-circuit.
	second, err := pipeline.Ingest(ctx, text, "two.txt", nil)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if !second.Deduplicated {
		t.Error("second ingest not reported as duplicate")
	}
	if second.DocumentID != first.DocumentID {
		t.Errorf("duplicate points at document %d, want %d", second.DocumentID, first.DocumentID)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalDocuments != 1 {
		t.Errorf("expected 1 document after duplicate ingest, got %d", stats.TotalDocuments)
	}
}

// blindStore hides existing documents from GetDocumentByHash for a fixed
// number of calls, so an ingest sails past the dedup pre-check and collides
// with the unique constraint the way a concurrent ingest would.
type blindStore struct {
	storage.Store
	misses int
}

func (s *blindStore) GetDocumentByHash(ctx context.Context, hash string) (*models.Document, error) {
	if s.misses > 0 {
		s.misses--
		return nil, storage.ErrNotFound
	}
	return s.Store.GetDocumentByHash(ctx, hash)
}

func TestIngestDedupRaceResolvesToExistingDocument(t *testing.T) {
	pipeline, store := newTestPipeline(t, nil)
	ctx := context.Background()

	text := "Windstorm damage to the roof is covered."
	first, err := pipeline.Ingest(ctx, text, "winner.txt", nil)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	// The loser of the race passed its dedup check before the winner's row
	// landed, so its insert hits the unique constraint and must fall back to
	// looking up the winner's document.
	pipeline.store = &blindStore{Store: store, misses: 1}
	second, err := pipeline.Ingest(ctx, text, "loser.txt", nil)
	if err != nil {
		t.Fatalf("racing ingest failed: %v", err)
	}
	if !second.Deduplicated {
		t.Error("racing ingest not reported as duplicate")
	}
	if second.DocumentID != first.DocumentID {
		t.Errorf("racing ingest returned document %d, want %d", second.DocumentID, first.DocumentID)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalDocuments != 1 {
		t.Errorf("expected 1 document after race, got %d", stats.TotalDocuments)
	}
}

func TestIngestHashesRawText(t *testing.T) {
	pipeline, store := newTestPipeline(t, nil)
	ctx := context.Background()

	if _, err := pipeline.Ingest(ctx, "coverage  begins \n today", "a.txt", nil); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	// The dedup key covers the raw text, so a whitespace variant is a new
	// document even though it normalizes identically.
	result, err := pipeline.Ingest(ctx, "coverage begins today", "b.txt", nil)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if result.Deduplicated {
		t.Error("whitespace variant wrongly treated as duplicate")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalDocuments != 2 {
		t.Errorf("expected 2 documents, got %d", stats.TotalDocuments)
	}
}

func TestIngestEmptyText(t *testing.T) {
	pipeline, _ := newTestPipeline(t, nil)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t\n"} {
		if _, err := pipeline.Ingest(ctx, text, "empty.txt", nil); !errors.Is(err, ErrNoContent) {
			t.Errorf("text %q: expected ErrNoContent, got %v", text, err)
		}
	}
}

func TestIngestEmbedFailureDegradesToZeroVectors(t *testing.T) {
	pipeline, store := newTestPipeline(t, &failingEmbedder{dims: 4})
	ctx := context.Background()

	result, err := pipeline.Ingest(ctx, "Fire damage is covered up to the policy limit.", "fire.txt", nil)
	if err != nil {
		t.Fatalf("Ingest failed despite embedder error: %v", err)
	}

	chunks, err := store.GetChunks(ctx, result.DocumentID, 0)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks stored")
	}
	for i, c := range chunks {
		if len(c.Embedding) != 4 {
			t.Fatalf("chunk %d embedding has %d dims, want 4", i, len(c.Embedding))
		}
		for j, v := range c.Embedding {
			if v != 0 {
				t.Errorf("chunk %d embedding[%d] = %v, want 0", i, j, v)
			}
		}
	}
}

func TestIngestFilePlainText(t *testing.T) {
	pipeline, _ := newTestPipeline(t, nil)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("The claim was filed on March 3rd."), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	result, err := pipeline.IngestFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if result.ChunkCount != 1 {
		t.Errorf("expected 1 chunk, got %d", result.ChunkCount)
	}
}

func TestIngestBytesUnreadableContent(t *testing.T) {
	pipeline, _ := newTestPipeline(t, nil)

	// Garbage bytes with a .pdf extension extract to nothing.
	_, err := pipeline.IngestBytes(context.Background(), []byte("not a pdf"), ".pdf", "broken.pdf", nil)
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("expected ErrNoContent, got %v", err)
	}
}

func TestIngestCancelledContext(t *testing.T) {
	pipeline, _ := newTestPipeline(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Ingest(ctx, strings.Repeat("Some policy text here. ", 50), "c.txt", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
