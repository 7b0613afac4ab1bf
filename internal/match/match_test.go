package match

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"empty", nil, nil, 0},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankOrdering(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},       // orthogonal
		{1, 0},       // identical
		{0.9, 0.436}, // close
	}

	scores := Rank(query, candidates)
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if scores[0].Index != 1 {
		t.Errorf("expected exact match first, got index %d", scores[0].Index)
	}
	if scores[1].Index != 2 {
		t.Errorf("expected near match second, got index %d", scores[1].Index)
	}
	if scores[2].Index != 0 {
		t.Errorf("expected orthogonal vector last, got index %d", scores[2].Index)
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].Similarity > scores[i-1].Similarity {
			t.Errorf("scores not sorted descending at %d", i)
		}
	}
}

func TestRankStableOnTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{2, 0},
		{3, 0},
	}
	scores := Rank(query, candidates)
	if scores[0].Index != 0 || scores[1].Index != 1 {
		t.Errorf("tie broke input order: %+v", scores)
	}
}
