package matching

import "math"

// DefaultEmbeddingWeight is the share of the final score taken by embedding
// similarity when vectors are available.
const DefaultEmbeddingWeight = 0.7

// Similarity is an optional cosine similarity. Valid is false when there is no
// semantic signal for the pair.
type Similarity struct {
	Value float64
	Valid bool
}

// NoSimilarity is the absent similarity
func NoSimilarity() Similarity {
	return Similarity{}
}

// SimilarityOf wraps a known cosine similarity
func SimilarityOf(v float64) Similarity {
	return Similarity{Value: v, Valid: true}
}

// Fusion is the final score for a pair after optional embedding blending
type Fusion struct {
	Score          int
	Method         Method
	EmbeddingScore *int
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched dimensions, empty vectors and zero vectors carry no signal.
func CosineSimilarity(a, b Vector) Similarity {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return NoSimilarity()
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return NoSimilarity()
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return NoSimilarity()
	}
	return SimilarityOf(sim)
}

// Fuse blends embedding similarity into the lexical result. Without a valid
// similarity the lexical score is returned unchanged.
func Fuse(lex Lexical, sim Similarity, weight float64) Fusion {
	if !sim.Valid {
		return Fusion{Score: lex.Score, Method: MethodLexical}
	}

	norm := clamp01((sim.Value + 1) / 2)
	embeddingScore := ClampScore(norm * 100)

	return Fusion{
		Score:          ClampScore(100 * (weight*norm + (1-weight)*lex.Coverage)),
		Method:         MethodLexicalEmbedding,
		EmbeddingScore: &embeddingScore,
	}
}

// NormalizeWeight returns w when it is a usable weight in [0, 1], otherwise
// DefaultEmbeddingWeight.
func NormalizeWeight(w *float64) float64 {
	return WeightOrDefault(w, DefaultEmbeddingWeight)
}

// WeightOrDefault returns w when it lies in [0, 1], otherwise fallback
func WeightOrDefault(w *float64, fallback float64) float64 {
	if w == nil || !ValidWeight(*w) {
		return fallback
	}
	return *w
}

// ValidWeight reports whether w can be used as an embedding weight
func ValidWeight(w float64) bool {
	return !math.IsNaN(w) && w >= 0 && w <= 1
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
