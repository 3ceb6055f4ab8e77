package matching

import (
	"cmp"
	"slices"
)

// MaxGaps is the most gap terms reported for one pair
const MaxGaps = 5

type termCount struct {
	term  string
	count int
}

// ExtractGaps ranks JD tokens missing from the résumé by how often the JD uses
// them. Equal counts keep first-occurrence order.
func ExtractGaps(jdTokens []string, resumeSet TokenSet) []string {
	var counts []termCount
	index := make(map[string]int)
	for _, token := range jdTokens {
		if resumeSet.Has(token) {
			continue
		}
		if i, ok := index[token]; ok {
			counts[i].count++
			continue
		}
		index[token] = len(counts)
		counts = append(counts, termCount{term: token, count: 1})
	}

	slices.SortStableFunc(counts, func(a, b termCount) int {
		return cmp.Compare(b.count, a.count)
	})

	gaps := make([]string, 0, min(len(counts), MaxGaps))
	for _, tc := range counts[:min(len(counts), MaxGaps)] {
		gaps = append(gaps, tc.term)
	}
	return gaps
}
