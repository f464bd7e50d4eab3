// internal/search/parser/fallback.go
package parser

import (
	"strings"

	"bizsearch/internal/models"
)

// stopwords excluded from fallback keywords. Connective words carry no
// signal for full-text matching.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "in": true,
	"of": true, "on": true, "or": true, "the": true, "with": true,
	"near": true, "around": true,
}

// Fallback produces filters from the raw query alone. It is deterministic:
// the same query always yields the same keywords, so cache keys built from
// fallback filters stay stable across calls.
func Fallback(rawQuery string) models.Filters {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(rawQuery)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" || stopwords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return models.Filters{Keywords: keywords}
}
