// internal/search/source/external.go
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	stderrors "bizsearch/internal/common/errors"
	commonhttp "bizsearch/internal/common/http"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
)

// ExternalConfig describes one external directory endpoint. Entries come
// from the source registry file.
type ExternalConfig struct {
	ID         string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxResults int
}

// ExternalSource adapts a third-party company directory over HTTP. External
// data is advisory: confidence is clamped strictly below 1.0 so an external
// hit can never outrank an internal row for the same company.
type ExternalSource struct {
	config *ExternalConfig
	client *commonhttp.Client
	logger logger.Logger
}

// NewExternalSource builds an adapter for one registry entry.
func NewExternalSource(cfg *ExternalConfig, log logger.Logger) *ExternalSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &ExternalSource{
		config: cfg,
		client: commonhttp.NewClient(cfg.Timeout),
		logger: log.WithFields(map[string]interface{}{"source": cfg.ID}),
	}
}

func (s *ExternalSource) ID() string {
	return s.config.ID
}

type externalItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Industry    string  `json:"industry"`
	Location    string  `json:"location"`
	Domain      string  `json:"domain"`
	Confidence  float64 `json:"confidence"`
}

func (s *ExternalSource) Query(ctx context.Context, req *models.SearchRequest) ([]models.ResultItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.buildURL(req), nil)
	if err != nil {
		return nil, stderrors.NewSourceUnavailableError(s.ID(), err)
	}
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded ||
			strings.Contains(err.Error(), "deadline") ||
			strings.Contains(err.Error(), "Client.Timeout") {
			return nil, stderrors.NewSourceTimeoutError(s.ID())
		}
		return nil, stderrors.NewSourceUnavailableError(s.ID(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, stderrors.NewSourceUnavailableError(s.ID(),
			fmt.Errorf("directory API returned %d", resp.StatusCode))
	}

	var apiResponse struct {
		Results []externalItem `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, stderrors.NewSourceUnavailableError(s.ID(), err)
	}

	items := s.processResults(apiResponse.Results)

	s.logger.Debug("External directory query completed", map[string]interface{}{
		"query":       req.Query,
		"resultCount": len(items),
	})

	return items, nil
}

func (s *ExternalSource) buildURL(req *models.SearchRequest) string {
	baseURL, _ := url.Parse(s.config.BaseURL)
	params := url.Values{}
	params.Add("q", req.Query)
	if req.Filters.Industry != "" {
		params.Add("industry", req.Filters.Industry)
	}
	if req.Filters.Location != "" {
		params.Add("location", req.Filters.Location)
	}
	params.Add("num", fmt.Sprintf("%d", s.config.MaxResults))
	baseURL.RawQuery = params.Encode()
	return baseURL.String()
}

// processResults dedupes by domain, clamps confidence below the internal
// tier and keeps the best MaxResults hits.
func (s *ExternalSource) processResults(raw []externalItem) []models.ResultItem {
	seen := make(map[string]bool)
	items := []models.ResultItem{}

	for _, r := range raw {
		if r.Name == "" {
			continue
		}

		dedupeKey := strings.ToLower(r.Domain)
		if dedupeKey == "" {
			dedupeKey = strings.ToLower(r.Name)
		}
		if seen[dedupeKey] {
			continue
		}
		seen[dedupeKey] = true

		confidence := r.Confidence
		if confidence <= 0 {
			confidence = 0.5
		}
		if confidence >= 1.0 {
			confidence = 0.99
		}

		items = append(items, models.ResultItem{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Industry:    r.Industry,
			Location:    r.Location,
			Domain:      r.Domain,
			Confidence:  confidence,
			Source:      s.config.ID,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Confidence > items[j].Confidence
	})
	if len(items) > s.config.MaxResults {
		items = items[:s.config.MaxResults]
	}

	return items
}
