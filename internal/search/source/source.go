// internal/search/source/source.go

// Package source defines the data-source contract for the fan-out and the
// two adapter families: the internal Elasticsearch index and generic
// external HTTP directories.
package source

import (
	"context"

	"bizsearch/internal/models"
)

// Source is one queryable company directory. Query returns the raw items
// for a request; errors are classified and isolated by the coordinator, an
// adapter never has to degrade itself.
type Source interface {
	ID() string
	Query(ctx context.Context, req *models.SearchRequest) ([]models.ResultItem, error)
}
