package vector

import (
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 3.75, 0, 1e-8, -1e8}
	out := Decode(Encode(in))
	if len(out) != len(in) {
		t.Fatalf("expected %d floats, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: %v != %v", i, in[i], out[i])
		}
	}
}

func TestEncodeLength(t *testing.T) {
	b := Encode(make([]float32, 384))
	if len(b) != 384*4 {
		t.Errorf("expected %d bytes, got %d", 384*4, len(b))
	}
}

func TestDecodeTruncatedBuffer(t *testing.T) {
	b := Encode([]float32{1, 2, 3})
	out := Decode(b[:len(b)-2])
	if len(out) != 2 {
		t.Errorf("expected 2 floats from truncated buffer, got %d", len(out))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"diagonal", []float32{1, 0}, []float32{1, 1}, 1.0 / math.Sqrt2},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero candidate", []float32{1, 0}, []float32{0, 0}, 0.0},
		{"zero query", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, nil, 0.0},
	}
	for _, tt := range tests {
		got := CosineSimilarity(tt.a, tt.b)
		if math.IsNaN(got) {
			t.Errorf("%s: got NaN", tt.name)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCosineSimilarityUnscaled(t *testing.T) {
	// Cosine ignores magnitude.
	got := CosineSimilarity([]float32{10, 0}, []float32{0.5, 0})
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected 1.0, got %v", got)
	}
}

func TestZero(t *testing.T) {
	z := Zero(5)
	if len(z) != 5 {
		t.Fatalf("expected 5, got %d", len(z))
	}
	for _, v := range z {
		if v != 0 {
			t.Error("expected all-zero vector")
		}
	}
	if Zero(0) != nil {
		t.Error("expected nil for non-positive dimension")
	}
}
