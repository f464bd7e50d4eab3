// internal/search/merge/merge.go

// Package merge flattens the per-source fan-out results into the final
// ranked list. Merge is pure: same input, same output, no clock, no I/O.
package merge

import (
	"sort"
	"strings"

	"bizsearch/internal/models"
)

// DefaultMaxResults bounds the merged list when no explicit limit is set.
const DefaultMaxResults = 20

// Merge dedupes, ranks and truncates the successful branches of a fan-out.
// Failed branches carry no items and fall out naturally. Two items refer to
// the same company when their normalized domains match, or, lacking a
// domain, when name and location match case-insensitively. On duplicates
// the higher confidence wins; on equal confidence the item from the source
// processed first wins. The result is sorted by confidence descending with
// processing order as the stable tiebreak.
func Merge(results []models.SourceResult, maxResults int) []models.ResultItem {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	merged := []models.ResultItem{}
	byKey := make(map[string]int)

	for _, sr := range results {
		for _, item := range sr.Items {
			key := identity(item)
			idx, exists := byKey[key]
			if !exists {
				byKey[key] = len(merged)
				merged = append(merged, item)
				continue
			}
			if item.Confidence > merged[idx].Confidence {
				merged[idx] = item
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}

func identity(item models.ResultItem) string {
	if domain := normalizeDomain(item.Domain); domain != "" {
		return "domain:" + domain
	}
	return "name:" + strings.ToLower(strings.TrimSpace(item.Name)) +
		"|" + strings.ToLower(strings.TrimSpace(item.Location))
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	return strings.TrimSuffix(domain, "/")
}
