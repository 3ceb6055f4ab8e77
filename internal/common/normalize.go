package common

import (
	"fmt"
	"strings"

	"resumatch/internal/matching"
	"resumatch/internal/types"
)

// DocumentKind selects the id prefix and label fallback for request entries
type DocumentKind struct {
	prefix string
	label  string
	jd     bool
}

var (
	KindJD     = DocumentKind{prefix: "jd", label: "JD", jd: true}
	KindResume = DocumentKind{prefix: "resume", label: "Resume"}
)

// NormalizeEntries assigns ids and labels by submission position, then drops
// entries whose text is blank. Ids therefore keep gaps where entries were dropped.
// JDs prefer their title for the label, résumés their name.
func NormalizeEntries(items []types.DocumentInput, kind DocumentKind) []matching.Document {
	docs := make([]matching.Document, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		primary, secondary := item.Name, item.Title
		if kind.jd {
			primary, secondary = item.Title, item.Name
		}
		label := fmt.Sprintf("%s %d", kind.label, i+1)
		switch {
		case primary != nil:
			label = *primary
		case secondary != nil:
			label = *secondary
		}
		docs = append(docs, matching.Document{
			ID:    fmt.Sprintf("%s-%d", kind.prefix, i+1),
			Label: label,
			Text:  item.Text,
		})
	}
	return docs
}
