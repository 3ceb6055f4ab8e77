package matching

import "math"

const (
	coverageWeight = 0.65
	jaccardWeight  = 0.35

	minScore = 0
	maxScore = 100
)

// Lexical is the term-overlap view of a job description and résumé pair
type Lexical struct {
	// Coverage is the fraction of distinct JD terms found in the résumé
	Coverage float64
	// Jaccard is |overlap| / |union| of the distinct term sets
	Jaccard float64
	// Overlap lists the shared terms once each, in JD order
	Overlap []string
	// Score is the 0-100 lexical score
	Score int
}

// ScoreLexical compares JD tokens against résumé tokens. An empty token list on
// either side yields the zero score with no overlap.
func ScoreLexical(jdTokens, resumeTokens []string) Lexical {
	return scoreSets(jdTokens, NewTokenSet(jdTokens), NewTokenSet(resumeTokens))
}

func scoreSets(jdTokens []string, jdSet, resumeSet TokenSet) Lexical {
	if len(jdSet) == 0 || len(resumeSet) == 0 {
		return Lexical{Overlap: []string{}}
	}

	overlap := overlapTerms(jdTokens, resumeSet)

	union := len(jdSet)
	for token := range resumeSet {
		if !jdSet.Has(token) {
			union++
		}
	}

	coverage := float64(len(overlap)) / float64(len(jdSet))
	jaccard := float64(len(overlap)) / float64(union)

	return Lexical{
		Coverage: coverage,
		Jaccard:  jaccard,
		Overlap:  overlap,
		Score:    ClampScore(100 * (coverageWeight*coverage + jaccardWeight*jaccard)),
	}
}

// overlapTerms returns the distinct JD tokens present in the résumé set,
// in the order they first occur in the JD.
func overlapTerms(jdTokens []string, resumeSet TokenSet) []string {
	seen := make(TokenSet)
	overlap := []string{}
	for _, token := range jdTokens {
		if !resumeSet.Has(token) || seen.Has(token) {
			continue
		}
		seen[token] = struct{}{}
		overlap = append(overlap, token)
	}
	return overlap
}

// ClampScore rounds v to the nearest integer and bounds it to [0, 100]
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return minScore
	}
	rounded := math.Round(v)
	switch {
	case rounded < minScore:
		return minScore
	case rounded > maxScore:
		return maxScore
	}
	return int(rounded)
}
