// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizsearch/internal/common/config"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
	"bizsearch/internal/search"
	"bizsearch/internal/search/cache"
	"bizsearch/internal/search/coordinator"
	"bizsearch/internal/search/parser"
	"bizsearch/internal/search/ratelimit"
)

type staticParser struct{}

func (staticParser) Parse(_ context.Context, rawQuery string) models.Filters {
	return parser.Fallback(rawQuery)
}

type staticSource struct {
	id    string
	items []models.ResultItem
}

func (s *staticSource) ID() string { return s.id }

func (s *staticSource) Query(_ context.Context, _ *models.SearchRequest) ([]models.ResultItem, error) {
	return s.items, nil
}

type staticHistory struct{}

func (staticHistory) AppendAsync(_ *models.HistoryRecord) {}

func (staticHistory) Suggest(_ context.Context, prefix string, _ int) ([]string, error) {
	return []string{prefix + " agencies in geneva"}, nil
}

func newTestServer(t *testing.T) *Server {
	log := logger.NewTestLogger(t)

	store := cache.NewTieredStore(cache.NewMemoryStore(16, nil), nil)
	coord := coordinator.New(ratelimit.NewGate(nil), time.Second, log)
	coord.Register(&staticSource{id: "internal", items: []models.ResultItem{
		{ID: "c-1", Name: "Acme Marketing", Confidence: 1.0, Source: "internal"},
	}}, false)

	svc := search.NewService(staticParser{}, store, coord, staticHistory{}, search.Options{}, log)

	cfg := &config.Config{}
	cfg.App.Environment = "development"
	cfg.App.Version = "test"
	cfg.Server.Address = ":0"
	return NewServer(cfg, svc, log)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch_Success(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/search", map[string]interface{}{
		"query": "marketing agencies",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Acme Marketing", resp.Results[0].Name)
}

func TestHandleSearch_MissingQueryRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/search", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}

func TestHandleSearch_InvalidJSONRejected(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_UnknownFieldRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/search", map[string]interface{}{
		"query": "ok",
		"limit": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_BlankQueryRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/search", map[string]interface{}{
		"query": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSuggestions(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/search/suggestions?q=marketing", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success     bool     `json:"success"`
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"marketing agencies in geneva"}, resp.Suggestions)
}

func TestHandleSuggestions_MissingPrefix(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/search/suggestions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
