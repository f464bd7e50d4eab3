// internal/search/source/external_test.go
package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
)

func newExternalSource(t *testing.T, handler http.HandlerFunc, maxResults int) *ExternalSource {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewExternalSource(&ExternalConfig{
		ID:         "externalA",
		BaseURL:    server.URL,
		APIKey:     "key-a",
		Timeout:    time.Second,
		MaxResults: maxResults,
	}, logger.NewNoOpLogger())
}

func TestExternalSource_QueryAndClamp(t *testing.T) {
	src := newExternalSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "marketing agencies", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer key-a", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"id": "x1", "name": "Acme", "domain": "acme.ch", "confidence": 1.5},
				{"id": "x2", "name": "Beta", "domain": "beta.io", "confidence": 0.7},
			},
		})
	}, 10)

	items, err := src.Query(context.Background(), &models.SearchRequest{Query: "marketing agencies"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 0.99, items[0].Confidence, "external confidence is clamped below internal")
	assert.Equal(t, "externalA", items[0].Source)
	assert.Equal(t, 0.7, items[1].Confidence)
}

func TestExternalSource_DedupesByDomain(t *testing.T) {
	src := newExternalSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"name": "Acme", "domain": "Acme.ch", "confidence": 0.9},
				{"name": "Acme AG", "domain": "acme.ch", "confidence": 0.8},
				{"name": "NoDomain Co", "confidence": 0.6},
				{"name": "nodomain co", "confidence": 0.5},
			},
		})
	}, 10)

	items, err := src.Query(context.Background(), &models.SearchRequest{Query: "acme"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Acme", items[0].Name)
	assert.Equal(t, "NoDomain Co", items[1].Name)
}

func TestExternalSource_TruncatesToMaxResults(t *testing.T) {
	src := newExternalSource(t, func(w http.ResponseWriter, r *http.Request) {
		results := make([]map[string]interface{}, 0, 5)
		for _, n := range []string{"a", "b", "c", "d", "e"} {
			results = append(results, map[string]interface{}{
				"name": n, "domain": n + ".io", "confidence": 0.5,
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	}, 3)

	items, err := src.Query(context.Background(), &models.SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestExternalSource_TimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	src := NewExternalSource(&ExternalConfig{
		ID:      "externalA",
		BaseURL: server.URL,
		Timeout: 20 * time.Millisecond,
	}, logger.NewNoOpLogger())

	_, err := src.Query(context.Background(), &models.SearchRequest{Query: "q"})
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, stderrors.ErrCodeSourceTimeout, stdErr.Code)
}

func TestExternalSource_ServerErrorClassified(t *testing.T) {
	src := newExternalSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 10)

	_, err := src.Query(context.Background(), &models.SearchRequest{Query: "q"})
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, stderrors.ErrCodeSourceUnavailable, stdErr.Code)
}
