// internal/search/parser/parser.go

// Package parser turns a free-text query into structured search filters via
// the query-parser API, with a deterministic keyword fallback when the API
// is unreachable. Parsing never fails a search.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	stderrors "bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
)

// Service produces filters for a raw query. Implementations must be total:
// any upstream failure degrades to the keyword fallback.
type Service interface {
	Parse(ctx context.Context, rawQuery string) models.Filters
}

// Config holds the query-parser API settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPService calls the query-parser API.
type HTTPService struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

// NewHTTPService builds the API-backed parser.
func NewHTTPService(cfg *Config, log logger.Logger) *HTTPService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &HTTPService{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithFields(map[string]interface{}{"component": "query-parser"}),
	}
}

type parseResponse struct {
	Industry     string   `json:"industry"`
	Location     string   `json:"location"`
	EmployeesMin int      `json:"employeesMin"`
	EmployeesMax int      `json:"employeesMax"`
	Keywords     []string `json:"keywords"`
}

// Parse calls the API with bounded retries and exponential backoff. On
// timeout or exhausted retries it logs and returns the keyword fallback.
func (s *HTTPService) Parse(ctx context.Context, rawQuery string) models.Filters {
	filters, err := s.callAPI(ctx, rawQuery)
	if err != nil {
		s.logger.Warn("Query parsing degraded to keyword fallback", map[string]interface{}{
			"query": rawQuery,
			"error": err.Error(),
		})
		return Fallback(rawQuery)
	}
	return filters
}

func (s *HTTPService) callAPI(ctx context.Context, rawQuery string) (models.Filters, error) {
	body, _ := json.Marshal(map[string]interface{}{"query": rawQuery})

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return models.Filters{}, stderrors.NewIntentAPITimeoutError()
			}
		}

		// Fresh request per attempt; the body reader is consumed by each Do.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.config.BaseURL+"/api/parse-query", bytes.NewBuffer(body))
		if err != nil {
			return models.Filters{}, stderrors.NewIntentParsingFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
		}

		resp, lastErr = s.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return models.Filters{}, stderrors.NewIntentAPITimeoutError()
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil || resp == nil {
		if lastErr == nil {
			lastErr = errors.New("no successful response after retries")
		}
		return models.Filters{}, stderrors.NewIntentParsingFailedError(lastErr)
	}
	defer resp.Body.Close()

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.Filters{}, stderrors.NewIntentParsingFailedError(err)
	}

	return models.Filters{
		Industry:     parsed.Industry,
		Location:     parsed.Location,
		EmployeesMin: parsed.EmployeesMin,
		EmployeesMax: parsed.EmployeesMax,
		Keywords:     parsed.Keywords,
	}, nil
}
