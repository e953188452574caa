package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
)

// extractPlain returns content as a single page numbered 0, validating it is
// valid UTF-8. Invalid sequences are replaced with the replacement character.
func extractPlain(content []byte) ([]models.Page, error) {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []models.Page{{Text: text, Number: 0}}, nil
}
