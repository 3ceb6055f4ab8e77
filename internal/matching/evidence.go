package matching

import "strings"

// MaxEvidence is the most evidence entries reported for one pair
const MaxEvidence = 3

// ExtractEvidence returns up to MaxEvidence résumé sentences that mention any
// overlap term. When no sentence qualifies the first overlap terms are
// returned instead, so evidence is only empty when overlap is.
func ExtractEvidence(resumeText string, overlap []string) []string {
	evidence := make([]string, 0, MaxEvidence)
	if len(overlap) == 0 {
		return evidence
	}

	for _, sentence := range SplitSentences(resumeText) {
		if !containsAny(strings.ToLower(sentence), overlap) {
			continue
		}
		evidence = append(evidence, sentence)
		if len(evidence) == MaxEvidence {
			return evidence
		}
	}
	if len(evidence) > 0 {
		return evidence
	}

	return append(evidence, overlap[:min(len(overlap), MaxEvidence)]...)
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
