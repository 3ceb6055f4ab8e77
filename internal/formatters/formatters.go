package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumatch/internal/matching"
	"resumatch/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})
	registry.RegisterFormatter("text", "MatchResponse", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchResponse", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "TokenizeResponse", &TokenizeTextFormatter{})
	registry.RegisterFormatter("markdown", "TokenizeResponse", &TokenizeTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

func getDataType(data any) string {
	switch data.(type) {
	case types.MatchResponse:
		return "MatchResponse"
	case types.TokenizeResponse:
		return "TokenizeResponse"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	out, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// resumeOrder returns résumé ids in the order they first appear in results
func resumeOrder(results []matching.MatchResult, best map[string]matching.MatchResult) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range results {
		if !seen[r.ResumeID] {
			seen[r.ResumeID] = true
			ids = append(ids, r.ResumeID)
		}
	}
	// best-only output has no per-pair results
	if len(ids) == 0 {
		for id := range best {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	return ids
}

func scoreLabel(r matching.MatchResult) string {
	if r.EmbeddingScore != nil {
		return fmt.Sprintf("%d/100 (%s, embedding %d)", r.Score, r.Method, *r.EmbeddingScore)
	}
	return fmt.Sprintf("%d/100 (%s)", r.Score, r.Method)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// MatchTextFormatter renders a match response for terminals
type MatchTextFormatter struct{}

func (f *MatchTextFormatter) Format(data any) (string, error) {
	resp, ok := data.(types.MatchResponse)
	if !ok {
		return "", fmt.Errorf("expected MatchResponse, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== MATCH SUMMARY ===\n")
	fmt.Fprintf(&output, "JDs: %d  Resumes: %d  Embedding weight: %.2f\n",
		resp.Meta.JDCount, resp.Meta.ResumeCount, resp.Meta.EmbeddingWeight)
	fmt.Fprintf(&output, "Embeddings: %s", resp.Meta.Embedding.Status)
	if provider := resp.Meta.Embedding.ProviderName(); provider != "" {
		fmt.Fprintf(&output, " (%s %s)", provider, resp.Meta.Embedding.ModelName())
	}
	if resp.Meta.Embedding.Error != "" {
		fmt.Fprintf(&output, " - %s", resp.Meta.Embedding.Error)
	}
	output.WriteString("\n")

	for _, id := range resumeOrder(resp.Results, resp.BestByResume) {
		best := resp.BestByResume[id]
		fmt.Fprintf(&output, "\n=== %s ===\n", best.ResumeLabel)
		fmt.Fprintf(&output, "Best match: %s, score %s\n", best.JDLabel, scoreLabel(best))

		for _, r := range resp.Results {
			if r.ResumeID != id {
				continue
			}
			fmt.Fprintf(&output, "\n- %s: %s\n", r.JDLabel, scoreLabel(r))
			fmt.Fprintf(&output, "  Coverage: %.2f  Jaccard: %.2f\n", r.Coverage, r.Jaccard)
			output.WriteString("  Evidence:\n")
			if len(r.Evidence) == 0 {
				output.WriteString("    none\n")
			}
			for _, e := range r.Evidence {
				fmt.Fprintf(&output, "    * %s\n", e)
			}
			fmt.Fprintf(&output, "  Gaps: %s\n", joinOrNone(r.Gaps))
		}
	}

	return strings.TrimRight(output.String(), "\n"), nil
}

func (f *MatchTextFormatter) SupportedType() string {
	return "MatchResponse"
}

// MatchMarkdownFormatter renders a match response as a markdown report
type MatchMarkdownFormatter struct{}

func (f *MatchMarkdownFormatter) Format(data any) (string, error) {
	resp, ok := data.(types.MatchResponse)
	if !ok {
		return "", fmt.Errorf("expected MatchResponse, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Match Report\n\n")
	fmt.Fprintf(&output, "- **JDs:** %d\n- **Resumes:** %d\n- **Embedding weight:** %.2f\n- **Embeddings:** %s\n",
		resp.Meta.JDCount, resp.Meta.ResumeCount, resp.Meta.EmbeddingWeight, resp.Meta.Embedding.Status)

	output.WriteString("\n## Best Match per Resume\n\n")
	output.WriteString("| Resume | Best JD | Score | Method |\n")
	output.WriteString("|---|---|---|---|\n")
	ids := resumeOrder(resp.Results, resp.BestByResume)
	for _, id := range ids {
		b := resp.BestByResume[id]
		fmt.Fprintf(&output, "| %s | %s | %d | %s |\n",
			escapeCell(b.ResumeLabel), escapeCell(b.JDLabel), b.Score, b.Method)
	}

	for _, id := range ids {
		for _, r := range resp.Results {
			if r.ResumeID != id {
				continue
			}
			fmt.Fprintf(&output, "\n## %s vs %s\n\n", r.ResumeLabel, r.JDLabel)
			fmt.Fprintf(&output, "**Score:** %s\n\n", scoreLabel(r))
			output.WriteString("### Evidence\n")
			if len(r.Evidence) == 0 {
				output.WriteString("_none_\n")
			}
			for _, e := range r.Evidence {
				fmt.Fprintf(&output, "- %s\n", e)
			}
			fmt.Fprintf(&output, "\n### Gaps\n%s\n", joinOrNone(r.Gaps))
		}
	}

	return strings.TrimRight(output.String(), "\n"), nil
}

func (f *MatchMarkdownFormatter) SupportedType() string {
	return "MatchResponse"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// TokenizeTextFormatter prints one token per line
type TokenizeTextFormatter struct{}

func (f *TokenizeTextFormatter) Format(data any) (string, error) {
	resp, ok := data.(types.TokenizeResponse)
	if !ok {
		return "", fmt.Errorf("expected TokenizeResponse, got %T", data)
	}
	return fmt.Sprintf("%s\n(%d tokens)", strings.Join(resp.Tokens, "\n"), resp.Count), nil
}

func (f *TokenizeTextFormatter) SupportedType() string {
	return "TokenizeResponse"
}

// GlobalRegistry is the default formatter registry
var GlobalRegistry = NewFormatterRegistry()
