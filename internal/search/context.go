package search

import (
	"fmt"
	"strings"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
)

// FormatContext renders ranked chunks as a prompt context block. Each chunk
// gets a header line with its 1-based rank, page, and similarity, and chunks
// are separated by blank lines.
func FormatContext(results []models.ScoredChunk) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("[Chunk %d - Page %d, Similarity: %.3f]\n%s",
			i+1, r.Chunk.PageNumber, r.Score, r.Chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}
