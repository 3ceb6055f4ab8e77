package matching

// Document is a job description or résumé supplied by the caller.
// The engine never mutates it.
type Document struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// Vector is a dense embedding for one document.
type Vector []float32

// Method reports how a score was produced
type Method string

const (
	MethodLexical          Method = "lexical"
	MethodLexicalEmbedding Method = "lexical+embedding"
)

// MatchResult is the outcome of scoring one résumé against one job description
type MatchResult struct {
	ResumeID       string   `json:"resumeId" yaml:"resumeId"`
	ResumeLabel    string   `json:"resumeName" yaml:"resumeName"`
	JDID           string   `json:"jdId" yaml:"jdId"`
	JDLabel        string   `json:"jdTitle" yaml:"jdTitle"`
	Score          int      `json:"score" yaml:"score"`
	Method         Method   `json:"method" yaml:"method"`
	EmbeddingScore *int     `json:"embeddingScore" yaml:"embeddingScore"`
	Coverage       float64  `json:"coverage" yaml:"coverage"`
	Jaccard        float64  `json:"jaccard" yaml:"jaccard"`
	Evidence       []string `json:"evidence" yaml:"evidence"`
	Gaps           []string `json:"gaps" yaml:"gaps"`
}

// MatchBatch holds every pair result plus the best job description per résumé.
// Results are ordered résumé-major, then by job description.
type MatchBatch struct {
	Results      []MatchResult          `json:"results" yaml:"results"`
	BestByResume map[string]MatchResult `json:"bestByResume" yaml:"bestByResume"`
}
