package ranking

import (
	"strings"

	"github.com/poiesic/suggestit/catalog"
)

// Expand appends the expansion terms of every synonym base term found in the
// lowercased query. The original query always comes first.
func Expand(query string, dict catalog.Dictionaries) string {
	lower := strings.ToLower(query)
	parts := []string{query}
	for _, base := range dict.SynonymOrder {
		if strings.Contains(lower, base) {
			parts = append(parts, dict.Synonyms[base]...)
		}
	}
	return strings.Join(parts, " ")
}
