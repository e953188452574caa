// Package extract provides paginated text extraction from scanned document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
)

// Extractor extracts plain text pages from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content as ordered pages.
// Zero pages is a valid result meaning nothing was extractable.
func (e *Extractor) Extract(path string) ([]models.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text pages from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). PDF pages and XLSX sheets
// are numbered from 1; DOCX and plain text carry page 0 (no page structure).
// Unknown extensions are treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]models.Page, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md", "":
		return extractPlain(content)
	default:
		return extractPlain(content)
	}
}
