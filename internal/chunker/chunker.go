// Package chunker splits normalized document text into overlapping,
// sentence-boundary-aware windows for embedding.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
)

const (
	// DefaultChunkSize is the target window size in characters.
	DefaultChunkSize = 1500
	// DefaultOverlap is the number of characters shared between adjacent windows.
	DefaultOverlap = 300
)

// Draft is a chunk produced by the chunker before it is embedded and stored.
type Draft struct {
	Text       string
	PageNumber int
	ChunkIndex int
	Span       models.Span
}

// Chunker produces overlapping character windows, pulling each boundary back
// to the nearest preceding sentence terminator when one exists inside the window.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. Overlap must be strictly smaller than chunkSize or
// the window start would never advance.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Normalize collapses whitespace runs to a single space and trims the ends.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// Split normalizes text and cuts it into ordered chunk drafts. Empty windows
// are dropped and indices are assigned densely over the kept chunks. Spans are
// rune offsets into the normalized text. Calling Split again with the same
// input yields an identical sequence.
func (c *Chunker) Split(text string, pageNumber int) []Draft {
	runes := []rune(Normalize(text))
	if len(runes) == 0 {
		return nil
	}

	var drafts []Draft
	start := 0
	index := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end < len(runes) {
			// Pull the boundary back to the last sentence terminator inside
			// the window, provided it lies strictly after the window start.
			if term := lastTerminator(runes, start, end); term > start {
				end = term + 1
			}
		} else {
			end = len(runes)
		}

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			drafts = append(drafts, Draft{
				Text:       chunkText,
				PageNumber: pageNumber,
				ChunkIndex: index,
				Span:       models.Span{StartChar: start, EndChar: end},
			})
			index++
		}

		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// A short pulled-back window could otherwise stall the scan.
			next = end
		}
		start = next
	}
	return drafts
}

// lastTerminator returns the largest index in [start, end) holding a sentence
// terminator, or -1 when there is none.
func lastTerminator(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
