// Package match ranks embedding vectors by cosine similarity. The remote
// backend stores vectors but similarity is computed client-side, so search
// quality does not depend on backend extensions being installed.
package match

import (
	"math"
	"sort"
)

// Score is one candidate's similarity to the query, addressed by its position
// in the input slice.
type Score struct {
	Index      int
	Similarity float64
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty, zero-length in magnitude, or the dimensions disagree.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every candidate against the query and returns the scores in
// descending similarity order. Ties keep input order.
func Rank(query []float32, candidates [][]float32) []Score {
	scores := make([]Score, len(candidates))
	for i, c := range candidates {
		scores[i] = Score{Index: i, Similarity: Cosine(query, c)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Similarity > scores[j].Similarity
	})
	return scores
}
