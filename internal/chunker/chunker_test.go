package chunker

import (
	"strings"
	"testing"
)

func TestNew_RejectsBadConfig(t *testing.T) {
	if _, err := New(0, 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := New(10, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
	if _, err := New(10, 10); err == nil {
		t.Error("expected error for overlap == chunk size")
	}
	if _, err := New(10, 15); err == nil {
		t.Error("expected error for overlap > chunk size")
	}
	if _, err := New(1500, 300); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  a \t b\n\nc  "); got != "a b c" {
		t.Errorf("got %q", got)
	}
	if got := Normalize("\n \t "); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestSplit_Empty(t *testing.T) {
	c, _ := New(10, 3)
	if drafts := c.Split("   \n\t ", 1); drafts != nil {
		t.Errorf("expected nil for whitespace input, got %v", drafts)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c, _ := New(10, 3)
	text := strings.Repeat("A. B. C. ", 20)
	first := c.Split(text, 1)
	second := c.Split(text, 1)
	if len(first) == 0 {
		t.Fatal("expected chunks")
	}
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSplit_SentenceBoundaryPullback(t *testing.T) {
	c, _ := New(10, 3)
	drafts := c.Split("A. B. C. D. E. F.", 1)
	if len(drafts) == 0 {
		t.Fatal("expected chunks")
	}
	// First window is [0,10); terminators sit at 1, 4 and 7, so the boundary
	// pulls back to index 7 and the chunk ends at the "C." sentence.
	if drafts[0].Text != "A. B. C." {
		t.Errorf("first chunk %q", drafts[0].Text)
	}
	if drafts[0].Span.StartChar != 0 || drafts[0].Span.EndChar != 8 {
		t.Errorf("first span %+v", drafts[0].Span)
	}
}

func TestSplit_MidSentenceFallback(t *testing.T) {
	c, _ := New(10, 3)
	// No terminator anywhere: the naive boundary must be kept, never an empty window.
	drafts := c.Split("abcdefghijklmnopqrstuvwxyz", 0)
	if len(drafts) == 0 {
		t.Fatal("expected chunks")
	}
	if drafts[0].Text != "abcdefghij" {
		t.Errorf("first chunk %q", drafts[0].Text)
	}
	for _, d := range drafts {
		if d.Text == "" {
			t.Error("empty chunk produced")
		}
	}
}

func TestSplit_Coverage(t *testing.T) {
	c, _ := New(40, 10)
	text := "The policy covers fire damage to the insured premises. " +
		"Theft is covered only when forcible entry is evident. " +
		"Flood damage is excluded unless the flood endorsement applies."
	normalized := Normalize(text)
	drafts := c.Split(text, 2)
	if len(drafts) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(drafts))
	}
	// Overlapping windows must cover the full normalized text.
	covered := 0
	for _, d := range drafts {
		if d.Span.StartChar > covered {
			t.Errorf("gap before span %+v", d.Span)
		}
		if d.Span.EndChar > covered {
			covered = d.Span.EndChar
		}
		if d.PageNumber != 2 {
			t.Errorf("page number %d", d.PageNumber)
		}
	}
	if covered != len([]rune(normalized)) {
		t.Errorf("covered %d of %d chars", covered, len([]rune(normalized)))
	}
}

func TestSplit_DenseIndices(t *testing.T) {
	c, _ := New(10, 3)
	drafts := c.Split(strings.Repeat("word and more words. ", 10), 1)
	for i, d := range drafts {
		if d.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, d.ChunkIndex)
		}
	}
}

func TestSplit_ShortText(t *testing.T) {
	c, _ := New(1500, 300)
	drafts := c.Split("Single short clause.", 1)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(drafts))
	}
	if drafts[0].Text != "Single short clause." {
		t.Errorf("got %q", drafts[0].Text)
	}
}
