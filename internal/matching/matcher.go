package matching

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// TieBreak decides which result wins when two job descriptions give a résumé
// the same score.
type TieBreak string

const (
	// TieBreakFirstSeen keeps the job description seen first
	TieBreakFirstSeen TieBreak = "first"
	// TieBreakJDID prefers the lexicographically smaller job description id
	TieBreakJDID TieBreak = "jd-id"
)

// ParseTieBreak validates a tie-break name. The empty string means first-seen.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakFirstSeen:
		return TieBreakFirstSeen, nil
	case TieBreakJDID:
		return TieBreakJDID, nil
	default:
		return "", fmt.Errorf("unsupported tie-break %q (must be %q or %q)", s, TieBreakFirstSeen, TieBreakJDID)
	}
}

// prefers reports whether candidate should replace current as the best match
func (tb TieBreak) prefers(candidate, current MatchResult) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return tb == TieBreakJDID && candidate.JDID < current.JDID
}

// Options tune a ComputeMatches run. Embeddings are aligned by position with the
// documents they were requested for; a missing or nil entry means no vector.
type Options struct {
	JDEmbeddings     []Vector
	ResumeEmbeddings []Vector
	EmbeddingWeight  *float64
	// Workers above 1 scores pairs concurrently
	Workers  int
	TieBreak TieBreak
}

type analyzedDocument struct {
	doc    Document
	tokens []string
	set    TokenSet
}

func analyze(docs []Document) []analyzedDocument {
	analyzed := make([]analyzedDocument, len(docs))
	for i, doc := range docs {
		tokens := Tokenize(doc.Text)
		analyzed[i] = analyzedDocument{doc: doc, tokens: tokens, set: NewTokenSet(tokens)}
	}
	return analyzed
}

// ComputeMatches scores every résumé against every job description and picks
// the best job description for each résumé. Either input being empty yields an
// empty batch.
func ComputeMatches(jds, resumes []Document, opts Options) MatchBatch {
	batch := MatchBatch{
		Results:      []MatchResult{},
		BestByResume: map[string]MatchResult{},
	}
	if len(jds) == 0 || len(resumes) == 0 {
		return batch
	}

	weight := NormalizeWeight(opts.EmbeddingWeight)
	jdDocs := analyze(jds)
	resumeDocs := analyze(resumes)

	results := make([]MatchResult, len(resumeDocs)*len(jdDocs))
	scoreSlot := func(i int) {
		r, j := i/len(jdDocs), i%len(jdDocs)
		sim := similarityFor(vectorAt(opts.JDEmbeddings, j), vectorAt(opts.ResumeEmbeddings, r))
		results[i] = scorePair(jdDocs[j], resumeDocs[r], sim, weight)
	}

	if opts.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i := range results {
			g.Go(func() error {
				scoreSlot(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range results {
			scoreSlot(i)
		}
	}

	batch.Results = results
	batch.BestByResume = BestByResume(results, opts.TieBreak)
	return batch
}

// BestByResume folds results into the highest scoring result per résumé id.
// Ties keep the earlier result unless tb says otherwise.
func BestByResume(results []MatchResult, tb TieBreak) map[string]MatchResult {
	best := make(map[string]MatchResult)
	for _, result := range results {
		current, ok := best[result.ResumeID]
		if !ok || tb.prefers(result, current) {
			best[result.ResumeID] = result
		}
	}
	return best
}

func scorePair(jd, resume analyzedDocument, sim Similarity, weight float64) MatchResult {
	result := MatchResult{
		ResumeID:    resume.doc.ID,
		ResumeLabel: resume.doc.Label,
		JDID:        jd.doc.ID,
		JDLabel:     jd.doc.Label,
		Method:      MethodLexical,
		Evidence:    []string{},
		Gaps:        []string{},
	}
	if len(jd.tokens) == 0 || len(resume.tokens) == 0 {
		return result
	}

	lex := scoreSets(jd.tokens, jd.set, resume.set)
	fusion := Fuse(lex, sim, weight)

	result.Score = fusion.Score
	result.Method = fusion.Method
	result.EmbeddingScore = fusion.EmbeddingScore
	result.Coverage = lex.Coverage
	result.Jaccard = lex.Jaccard
	result.Evidence = ExtractEvidence(resume.doc.Text, lex.Overlap)
	result.Gaps = ExtractGaps(jd.tokens, resume.set)
	return result
}

func vectorAt(vectors []Vector, i int) Vector {
	if i < 0 || i >= len(vectors) {
		return nil
	}
	return vectors[i]
}

// similarityFor treats a missing vector, mismatched dimensions and zero
// vectors alike as no signal.
func similarityFor(jd, resume Vector) Similarity {
	if jd == nil || resume == nil {
		return NoSimilarity()
	}
	return CosineSimilarity(jd, resume)
}
