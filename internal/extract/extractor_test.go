package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != "Hello world\nLine 2" {
		t.Errorf("got %q", pages[0].Text)
	}
	if pages[0].Number != 0 {
		t.Errorf("plain text should carry page 0, got %d", pages[0].Number)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("hello\x80world"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "hello�world" {
		t.Errorf("got %v", pages)
	}
}

func TestExtractBytes_plainEmpty(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("  \n\t "), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("blank input should yield zero pages, got %d", len(pages))
	}
}

func TestExtractBytes_unknownExtension(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "raw content" {
		t.Errorf("got %v", pages)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Claim No")
	f.SetCellValue("Sheet1", "A2", "CLM-1001")
	f.SetCellValue("Sheet1", "B2", "45000")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	pages, err := e.ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("sheet page should be 1-based, got %d", pages[0].Number)
	}
	if pages[0].Text != "Claim No\nCLM-1001\t45000" {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestExtractBytes_excelNotZip(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("not a workbook"), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("unreadable workbook should yield zero pages, got %d", len(pages))
	}
}

// minimalDocx returns .docx zip bytes with word/document.xml containing the
// given text in <w:t> tags.
func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes(minimalDocx("Policy wording body"), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != "Policy wording body" {
		t.Errorf("got %q", pages[0].Text)
	}
	if pages[0].Number != 0 {
		t.Errorf("docx has no pagination, expected page 0, got %d", pages[0].Number)
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("not a zip"), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected zero pages, got %d", len(pages))
	}
}

func TestExtractBytes_pdfGarbage(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("%PDF- not really"), ".pdf")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("unreadable PDF should yield zero pages, got %d", len(pages))
	}
}

func TestExtract_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor()
	pages, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "File content" {
		t.Errorf("got %v", pages)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
