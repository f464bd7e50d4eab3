// internal/search/source/elasticsearch_test.go
package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
)

func newESBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *elasticsearch.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func esHitsResponse(hits ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"took": 3,
		"hits": map[string]interface{}{
			"total":     map[string]interface{}{"value": len(hits)},
			"max_score": 2.5,
			"hits":      hits,
		},
	}
}

func TestInternalSource_ParsesHits(t *testing.T) {
	client := newESBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(esHitsResponse(
			map[string]interface{}{
				"_id": "c-1",
				"_source": map[string]interface{}{
					"name":        "Acme Marketing",
					"description": "Full-service agency",
					"industry":    "marketing",
					"location":    "geneva",
					"domain":      "acme.ch",
				},
				"highlight": map[string]interface{}{
					"name": []interface{}{"<em>Acme</em> Marketing"},
				},
			},
		))
	})

	src := NewInternalSource(client, "companies", 50, logger.NewNoOpLogger())
	items, err := src.Query(context.Background(), &models.SearchRequest{Query: "acme"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "c-1", items[0].ID)
	assert.Equal(t, "Acme Marketing", items[0].Name)
	assert.Equal(t, "acme.ch", items[0].Domain)
	assert.Equal(t, 1.0, items[0].Confidence, "internal rows are authoritative")
	assert.Equal(t, models.SourceInternal, items[0].Source)
	require.Len(t, items[0].Highlights, 1)
	assert.Equal(t, "name", items[0].Highlights[0].Field)
}

func TestInternalSource_QueryBodyUsesFilters(t *testing.T) {
	var captured map[string]interface{}
	client := newESBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		json.NewEncoder(w).Encode(esHitsResponse())
	})

	src := NewInternalSource(client, "companies", 50, logger.NewNoOpLogger())
	_, err := src.Query(context.Background(), &models.SearchRequest{
		Query: "agencies",
		Filters: models.Filters{
			Industry: "marketing",
			Location: "geneva",
			Keywords: []string{"agencies"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	multiMatch := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "agencies", multiMatch["query"])

	filters := boolQuery["filter"].([]interface{})
	assert.Len(t, filters, 2)
}

func TestInternalSource_EmptyQueryListsAll(t *testing.T) {
	var captured map[string]interface{}
	client := newESBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		json.NewEncoder(w).Encode(esHitsResponse())
	})

	src := NewInternalSource(client, "companies", 50, logger.NewNoOpLogger())
	items, err := src.Query(context.Background(), &models.SearchRequest{Query: ""})
	require.NoError(t, err)
	assert.Empty(t, items)

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	_, hasMatchAll := must[0].(map[string]interface{})["match_all"]
	assert.True(t, hasMatchAll)
}

func TestInternalSource_BackendErrorPropagates(t *testing.T) {
	client := newESBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "boom"})
	})

	src := NewInternalSource(client, "companies", 50, logger.NewNoOpLogger())
	_, err := src.Query(context.Background(), &models.SearchRequest{Query: "acme"})
	assert.Error(t, err)
}
