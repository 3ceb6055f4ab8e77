package types

import (
	"resumatch/internal/embedding"
	"resumatch/internal/matching"
)

// DocumentInput is one JD or résumé as submitted. Title and Name are
// pointers so an explicit empty string is told apart from a missing field.
type DocumentInput struct {
	Text  string  `json:"text"`
	Title *string `json:"title,omitempty"`
	Name  *string `json:"name,omitempty"`
}

// MatchRequest is the body of POST /api/v1/match
type MatchRequest struct {
	JDs             []DocumentInput `json:"jds"`
	Resumes         []DocumentInput `json:"resumes"`
	EmbeddingWeight *float64        `json:"embeddingWeight,omitempty"`
}

// MatchMeta describes how a batch was scored
type MatchMeta struct {
	JDCount         int              `json:"jdCount" yaml:"jdCount"`
	ResumeCount     int              `json:"resumeCount" yaml:"resumeCount"`
	EmbeddingWeight float64          `json:"embeddingWeight" yaml:"embeddingWeight"`
	Embedding       embedding.Status `json:"embedding" yaml:"embedding"`
	RequestID       string           `json:"requestId,omitempty" yaml:"requestId,omitempty"`
	DurationMs      int64            `json:"durationMs" yaml:"durationMs"`
}

// MatchResponse is returned by the match endpoint and the match command
type MatchResponse struct {
	Results      []matching.MatchResult          `json:"results" yaml:"results"`
	BestByResume map[string]matching.MatchResult `json:"bestByResume" yaml:"bestByResume"`
	Meta         MatchMeta                       `json:"meta" yaml:"meta"`
}

// BestOnly drops per-pair results, keeping the winners
func (r MatchResponse) BestOnly() MatchResponse {
	r.Results = []matching.MatchResult{}
	return r
}

// TokenizeRequest is the body of POST /api/v1/tokenize
type TokenizeRequest struct {
	Text string `json:"text"`
}

// TokenizeResponse lists the tokens the matcher would see
type TokenizeResponse struct {
	Tokens []string `json:"tokens" yaml:"tokens"`
	Count  int      `json:"count" yaml:"count"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}
