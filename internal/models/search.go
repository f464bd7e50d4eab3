// internal/models/search.go
package models

import "time"

// Well-known source identifiers. External adapters register additional IDs
// through the source registry.
const (
	SourceInternal = "internal"
)

// Highlight marks a matched fragment within a result field.
type Highlight struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

// ResultItem is one company hit as returned to the caller. Confidence is
// source-assigned and always within [0,1]; internal rows are authoritative
// and carry 1.0.
type ResultItem struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Industry    string      `json:"industry,omitempty"`
	Location    string      `json:"location,omitempty"`
	Domain      string      `json:"domain,omitempty"`
	Highlights  []Highlight `json:"highlights,omitempty"`
	Confidence  float64     `json:"confidence"`
	Source      string      `json:"source"`
}

// SourceResult is the outcome of one fan-out branch. Error is empty on
// success; "rate_limited" and "timeout" are well-known values.
type SourceResult struct {
	SourceID string       `json:"sourceId"`
	Items    []ResultItem `json:"items"`
	Error    string       `json:"error,omitempty"`
}

// Filters is the structured filter object produced by the query parser.
type Filters struct {
	Industry     string   `json:"industry,omitempty"`
	Location     string   `json:"location,omitempty"`
	EmployeesMin int      `json:"employeesMin,omitempty"`
	EmployeesMax int      `json:"employeesMax,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// SearchRequest is constructed per call and never persisted.
type SearchRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources"`
	Filters Filters  `json:"filters"`
}

// SearchMeta accompanies every successful response.
type SearchMeta struct {
	Total           int               `json:"total"`
	ExecutionTimeMs int64             `json:"executionTimeMs"`
	Sources         []string          `json:"sources"`
	SourceErrors    map[string]string `json:"sourceErrors,omitempty"`
	Cached          bool              `json:"cached"`
}

// SearchResponse is the caller-facing contract.
type SearchResponse struct {
	Success bool         `json:"success"`
	Results []ResultItem `json:"results"`
	Meta    SearchMeta   `json:"meta"`
}

// HistoryRecord is one append-only entry in the search history log.
type HistoryRecord struct {
	ID              string    `json:"id"`
	Query           string    `json:"query"`
	Sources         []string  `json:"sources"`
	ResultCount     int       `json:"resultCount"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
	CreatedAt       time.Time `json:"createdAt"`
}
