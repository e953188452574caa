package extract

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
)

// extractExcel returns one page per sheet with cell rows joined by tabs.
// Sheets are numbered 1-based in workbook order; blank sheets are skipped.
// Claim schedules and benefit tables arrive in this shape.
func extractExcel(content []byte) ([]models.Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	var pages []models.Page
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		text := strings.TrimSpace(buf.String())
		if text == "" {
			continue
		}
		pages = append(pages, models.Page{Text: text, Number: i + 1})
	}
	return pages, nil
}
