// internal/search/source/elasticsearch.go
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	stderrors "bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
)

// InternalSource queries the company index. Internal rows are authoritative,
// so every item carries confidence 1.0 regardless of its relevance score.
type InternalSource struct {
	client  *elasticsearch.Client
	index   string
	maxRows int
	logger  logger.Logger
}

// NewInternalSource creates the internal index adapter. maxRows bounds the
// per-query hit count.
func NewInternalSource(client *elasticsearch.Client, index string, maxRows int, log logger.Logger) *InternalSource {
	if maxRows <= 0 {
		maxRows = 50
	}
	return &InternalSource{
		client:  client,
		index:   index,
		maxRows: maxRows,
		logger:  log.WithFields(map[string]interface{}{"source": models.SourceInternal}),
	}
}

func (s *InternalSource) ID() string {
	return models.SourceInternal
}

func (s *InternalSource) Query(ctx context.Context, req *models.SearchRequest) ([]models.ResultItem, error) {
	queryBody := buildCompanyQuery(req)
	body, _ := json.Marshal(queryBody)

	size := s.maxRows
	esReq := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := esReq.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, stderrors.NewSourceTimeoutError(s.ID())
		}
		return nil, stderrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, stderrors.NewSearchQueryFailedError(fmt.Errorf("search query failed: %s", res.String()))
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, stderrors.NewSearchQueryFailedError(err)
	}

	return s.parseHits(r), nil
}

// buildCompanyQuery builds the bool query dynamically from the parsed
// filters. Free-text terms go into a multi_match must clause; structured
// filters become term/range filter clauses so they do not affect scoring.
func buildCompanyQuery(req *models.SearchRequest) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	text := req.Query
	if len(req.Filters.Keywords) > 0 {
		text = strings.Join(req.Filters.Keywords, " ")
	}
	if text != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"name^3", "description^2", "industry"},
				"type":   "best_fields",
			},
		})
	}

	if req.Filters.Industry != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"industry": req.Filters.Industry},
		})
	}
	if req.Filters.Location != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"location": req.Filters.Location},
		})
	}

	if req.Filters.EmployeesMin > 0 || req.Filters.EmployeesMax > 0 {
		bounds := map[string]interface{}{}
		if req.Filters.EmployeesMin > 0 {
			bounds["gte"] = req.Filters.EmployeesMin
		}
		if req.Filters.EmployeesMax > 0 {
			bounds["lte"] = req.Filters.EmployeesMax
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"employees": bounds},
		})
	}

	// An empty query lists the whole index.
	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": mustClauses}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"name":        map[string]interface{}{},
				"description": map[string]interface{}{},
			},
		},
	}
}

func (s *InternalSource) parseHits(r map[string]interface{}) []models.ResultItem {
	items := []models.ResultItem{}

	hitsWrapper, ok := r["hits"].(map[string]interface{})
	if !ok {
		return items
	}
	hits, ok := hitsWrapper["hits"].([]interface{})
	if !ok {
		return items
	}

	for _, raw := range hits {
		hit, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		src, ok := hit["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		item := models.ResultItem{
			Confidence: 1.0,
			Source:     models.SourceInternal,
		}
		if id, ok := hit["_id"].(string); ok {
			item.ID = id
		}
		if v, ok := src["name"].(string); ok {
			item.Name = v
		}
		if v, ok := src["description"].(string); ok {
			item.Description = v
		}
		if v, ok := src["industry"].(string); ok {
			item.Industry = v
		}
		if v, ok := src["location"].(string); ok {
			item.Location = v
		}
		if v, ok := src["domain"].(string); ok {
			item.Domain = v
		}

		if highlight, ok := hit["highlight"].(map[string]interface{}); ok {
			for field, fragments := range highlight {
				frags, ok := fragments.([]interface{})
				if !ok {
					continue
				}
				for _, f := range frags {
					if text, ok := f.(string); ok {
						item.Highlights = append(item.Highlights, models.Highlight{
							Field: field,
							Text:  text,
						})
					}
				}
			}
		}

		items = append(items, item)
	}

	return items
}
