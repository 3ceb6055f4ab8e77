package matching

import (
	"strings"
	"unicode"
)

// minTokenLength is the shortest token kept by Tokenize
const minTokenLength = 3

// stopWords is a read-only table of English function words
var stopWords = newTokenSet(strings.Fields(`
	a about above after again against all am an and any are as at
	be because been before being below between both but by
	can could did do does doing down during each few for from further
	had has have having he her here hers herself him himself his how
	i if in into is it its itself just me more most my myself
	no nor not now of off on once only or other our ours ourselves out over own
	same she should so some such than that the their theirs them themselves then there these they this those through to too
	under until up very was we were what when where which while who whom why with
	you your yours yourself yourselves
`))

// IsStopWord reports whether token is filtered out by Tokenize
func IsStopWord(token string) bool {
	return stopWords.Has(token)
}

// Tokenize lowercases text, replaces everything except [a-z0-9+] and whitespace
// with spaces, and returns the remaining words longer than two characters that
// are not stop words. Order and duplicates are preserved.
func Tokenize(text string) []string {
	cleaned := strings.Map(normalizeRune, strings.ToLower(text))

	tokens := []string{}
	for _, field := range strings.Fields(cleaned) {
		if len(field) < minTokenLength || IsStopWord(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

func normalizeRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+':
		return r
	case unicode.IsSpace(r):
		return r
	default:
		return ' '
	}
}

// SplitSentences breaks text into trimmed, non-empty chunks on newlines and
// sentence punctuation.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	chunks := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '.' || r == '?' || r == '!'
	})

	sentences := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// TokenSet is a set of distinct tokens
type TokenSet map[string]struct{}

func newTokenSet(tokens []string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// NewTokenSet builds the distinct set of tokens
func NewTokenSet(tokens []string) TokenSet {
	return newTokenSet(tokens)
}

// Has reports whether token is in the set
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}
