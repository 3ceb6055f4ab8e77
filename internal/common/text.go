package common

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	layoutSpace    = regexp.MustCompile(`[\t\f\v]+`)
)

// NormalizeText cleans extracted document text: carriage returns are removed,
// runs of blank lines collapse to one, and tabs and form feeds become spaces.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = layoutSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// StripExtension removes the final extension from a file's base name
func StripExtension(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}
