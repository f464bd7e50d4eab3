// internal/search/normalize/normalize.go

// Package normalize turns a raw query and its filter parameters into a
// canonical cache key. Semantically identical requests must map to the same
// key regardless of parameter order.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const keyPrefix = "search:"

var whitespace = regexp.MustCompile(`\s+`)

// Normalize lowercases and trims the raw query, collapses interior
// whitespace, sorts the parameter keys lexicographically and serializes them
// into the cache key. It is pure and total; an empty query is valid input
// meaning "list all".
func Normalize(rawQuery string, params map[string]string) (string, map[string]string) {
	query := whitespace.ReplaceAllString(strings.TrimSpace(strings.ToLower(rawQuery)), " ")

	canonical := make(map[string]string, len(params))
	keys := make([]string, 0, len(params))
	for k, v := range params {
		canonical[k] = strings.TrimSpace(v)
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(keyPrefix)
	sb.WriteString(query)
	sb.WriteString(":")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("|")
		}
		fmt.Fprintf(&sb, "%s=%s", k, canonical[k])
	}

	return sb.String(), canonical
}
