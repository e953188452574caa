package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
)

// extractPDF returns one page entry per PDF page that yields non-blank text.
// Pages that fail to decode are skipped rather than aborting the document;
// a wholly unreadable PDF returns zero pages, not an error.
func extractPDF(content []byte) ([]models.Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, nil
	}
	var pages []models.Page
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, models.Page{Text: text, Number: i})
	}
	return pages, nil
}
